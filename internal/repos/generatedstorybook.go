package repos

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/AYM1104/story-book-app-backend-2/internal/logger"
	"github.com/AYM1104/story-book-app-backend-2/internal/types"
)

type GeneratedStoryBookRepo interface {
	Create(ctx context.Context, tx *gorm.DB, book *types.GeneratedStoryBook) (*types.GeneratedStoryBook, error)
	GetByID(ctx context.Context, tx *gorm.DB, bookID int64) (*types.GeneratedStoryBook, error)
	// ListPage returns up to limit books ordered by strictly decreasing id,
	// starting below cursor when cursor > 0.
	ListPage(ctx context.Context, tx *gorm.DB, cursor int64, limit int) ([]*types.GeneratedStoryBook, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID int64) ([]*types.GeneratedStoryBook, error)
	Save(ctx context.Context, tx *gorm.DB, book *types.GeneratedStoryBook) error
	CountAll(ctx context.Context, tx *gorm.DB) (int64, error)
	CountByStatus(ctx context.Context, tx *gorm.DB, status string) (int64, error)
	CountCreatedSince(ctx context.Context, tx *gorm.DB, since time.Time) (int64, error)
}

type generatedStoryBookRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGeneratedStoryBookRepo(db *gorm.DB, baseLog *logger.Logger) GeneratedStoryBookRepo {
	return &generatedStoryBookRepo{db: db, log: baseLog.With("repo", "GeneratedStoryBookRepo")}
}

func (r *generatedStoryBookRepo) Create(ctx context.Context, tx *gorm.DB, book *types.GeneratedStoryBook) (*types.GeneratedStoryBook, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(book).Error; err != nil {
		return nil, err
	}
	return book, nil
}

func (r *generatedStoryBookRepo) GetByID(ctx context.Context, tx *gorm.DB, bookID int64) (*types.GeneratedStoryBook, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.GeneratedStoryBook
	if err := transaction.WithContext(ctx).
		Where("id = ?", bookID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *generatedStoryBookRepo) ListPage(ctx context.Context, tx *gorm.DB, cursor int64, limit int) ([]*types.GeneratedStoryBook, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	query := transaction.WithContext(ctx).Order("id DESC")
	if cursor > 0 {
		query = query.Where("id < ?", cursor)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var results []*types.GeneratedStoryBook
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *generatedStoryBookRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID int64) ([]*types.GeneratedStoryBook, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.GeneratedStoryBook
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *generatedStoryBookRepo) Save(ctx context.Context, tx *gorm.DB, book *types.GeneratedStoryBook) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(book).Error
}

func (r *generatedStoryBookRepo) CountAll(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.GeneratedStoryBook{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *generatedStoryBookRepo) CountByStatus(ctx context.Context, tx *gorm.DB, status string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.GeneratedStoryBook{}).
		Where("image_generation_status = ?", status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *generatedStoryBookRepo) CountCreatedSince(ctx context.Context, tx *gorm.DB, since time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.GeneratedStoryBook{}).
		Where("created_at >= ?", since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
