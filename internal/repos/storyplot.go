package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/AYM1104/story-book-app-backend-2/internal/logger"
	"github.com/AYM1104/story-book-app-backend-2/internal/types"
)

type StoryPlotRepo interface {
	Create(ctx context.Context, tx *gorm.DB, plot *types.StoryPlot) (*types.StoryPlot, error)
	GetByID(ctx context.Context, tx *gorm.DB, plotID int64) (*types.StoryPlot, error)
	GetLatestBySettingID(ctx context.Context, tx *gorm.DB, settingID int64) (*types.StoryPlot, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID int64) ([]*types.StoryPlot, error)
	Save(ctx context.Context, tx *gorm.DB, plot *types.StoryPlot) error
}

type storyPlotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStoryPlotRepo(db *gorm.DB, baseLog *logger.Logger) StoryPlotRepo {
	return &storyPlotRepo{db: db, log: baseLog.With("repo", "StoryPlotRepo")}
}

func (r *storyPlotRepo) Create(ctx context.Context, tx *gorm.DB, plot *types.StoryPlot) (*types.StoryPlot, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(plot).Error; err != nil {
		return nil, err
	}
	return plot, nil
}

func (r *storyPlotRepo) GetByID(ctx context.Context, tx *gorm.DB, plotID int64) (*types.StoryPlot, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.StoryPlot
	if err := transaction.WithContext(ctx).
		Preload("StorySetting").
		Where("id = ?", plotID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *storyPlotRepo) GetLatestBySettingID(ctx context.Context, tx *gorm.DB, settingID int64) (*types.StoryPlot, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.StoryPlot
	if err := transaction.WithContext(ctx).
		Where("story_setting_id = ?", settingID).
		Order("id DESC").
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *storyPlotRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID int64) ([]*types.StoryPlot, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.StoryPlot
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *storyPlotRepo) Save(ctx context.Context, tx *gorm.DB, plot *types.StoryPlot) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(plot).Error
}
