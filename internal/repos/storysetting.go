package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/AYM1104/story-book-app-backend-2/internal/logger"
	"github.com/AYM1104/story-book-app-backend-2/internal/types"
)

type StorySettingRepo interface {
	Create(ctx context.Context, tx *gorm.DB, setting *types.StorySetting) (*types.StorySetting, error)
	GetByID(ctx context.Context, tx *gorm.DB, settingID int64) (*types.StorySetting, error)
	GetByUploadImageID(ctx context.Context, tx *gorm.DB, uploadImageID int64) (*types.StorySetting, error)
	Save(ctx context.Context, tx *gorm.DB, setting *types.StorySetting) error
}

type storySettingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStorySettingRepo(db *gorm.DB, baseLog *logger.Logger) StorySettingRepo {
	return &storySettingRepo{db: db, log: baseLog.With("repo", "StorySettingRepo")}
}

func (r *storySettingRepo) Create(ctx context.Context, tx *gorm.DB, setting *types.StorySetting) (*types.StorySetting, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(setting).Error; err != nil {
		return nil, err
	}
	return setting, nil
}

func (r *storySettingRepo) GetByID(ctx context.Context, tx *gorm.DB, settingID int64) (*types.StorySetting, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.StorySetting
	if err := transaction.WithContext(ctx).
		Preload("UploadImage").
		Where("id = ?", settingID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *storySettingRepo) GetByUploadImageID(ctx context.Context, tx *gorm.DB, uploadImageID int64) (*types.StorySetting, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.StorySetting
	if err := transaction.WithContext(ctx).
		Where("upload_image_id = ?", uploadImageID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *storySettingRepo) Save(ctx context.Context, tx *gorm.DB, setting *types.StorySetting) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(setting).Error
}
