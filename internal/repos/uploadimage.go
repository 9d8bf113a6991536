package repos

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/AYM1104/story-book-app-backend-2/internal/logger"
	"github.com/AYM1104/story-book-app-backend-2/internal/types"
)

type UploadImageRepo interface {
	Create(ctx context.Context, tx *gorm.DB, image *types.UploadImage) (*types.UploadImage, error)
	GetByID(ctx context.Context, tx *gorm.DB, imageID int64) (*types.UploadImage, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID int64) ([]*types.UploadImage, error)
	UpdateMetaData(ctx context.Context, tx *gorm.DB, imageID int64, metaData datatypes.JSON) error
}

type uploadImageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUploadImageRepo(db *gorm.DB, baseLog *logger.Logger) UploadImageRepo {
	return &uploadImageRepo{db: db, log: baseLog.With("repo", "UploadImageRepo")}
}

func (r *uploadImageRepo) Create(ctx context.Context, tx *gorm.DB, image *types.UploadImage) (*types.UploadImage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(image).Error; err != nil {
		return nil, err
	}
	return image, nil
}

func (r *uploadImageRepo) GetByID(ctx context.Context, tx *gorm.DB, imageID int64) (*types.UploadImage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.UploadImage
	if err := transaction.WithContext(ctx).
		Where("id = ?", imageID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *uploadImageRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID int64) ([]*types.UploadImage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.UploadImage
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *uploadImageRepo) UpdateMetaData(ctx context.Context, tx *gorm.DB, imageID int64, metaData datatypes.JSON) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.UploadImage{}).
		Where("id = ?", imageID).
		Update("meta_data", metaData).Error
}
