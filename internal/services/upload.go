package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/AYM1104/story-book-app-backend-2/internal/imgutil"
	"github.com/AYM1104/story-book-app-backend-2/internal/logger"
	"github.com/AYM1104/story-book-app-backend-2/internal/repos"
	"github.com/AYM1104/story-book-app-backend-2/internal/types"
	"github.com/AYM1104/story-book-app-backend-2/internal/utils"
)

// Upload canvas. Every stored photo is letterboxed onto this size.
const (
	uploadCanvasWidth  = 1920
	uploadCanvasHeight = 1080
)

var allowedUploadMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

type UploadService interface {
	// UploadImage validates, resizes, stores and (best-effort) analyzes a
	// photo, persisting the row with its vision metadata.
	UploadImage(ctx context.Context, userID int64, fileName, contentType string, content []byte) (*types.UploadImage, error)
	GetImage(ctx context.Context, imageID int64) (*types.UploadImage, error)
	GetSignedURL(ctx context.Context, imageID int64) (string, error)
	// UploadReferenceImage stores a reference photo for image-to-image
	// generation without running vision analysis.
	UploadReferenceImage(ctx context.Context, userID int64, fileName, contentType string, content []byte) (*types.UploadImage, error)
	ListImages(ctx context.Context, userID int64) ([]*types.UploadImage, error)
}

type uploadService struct {
	db            *gorm.DB
	log           *logger.Logger
	storage       StorageService
	vision        VisionService // nil when VISION_API_ENABLED=false
	imageRepo     repos.UploadImageRepo
	userRepo      repos.UserRepo
	maxUploadSize int64
}

func NewUploadService(db *gorm.DB, log *logger.Logger, storage StorageService, vision VisionService, imageRepo repos.UploadImageRepo, userRepo repos.UserRepo) UploadService {
	maxMB := utils.GetEnvAsInt64("MAX_UPLOAD_SIZE_MB", 10, log)
	return &uploadService{
		db:            db,
		log:           log.With("service", "UploadService"),
		storage:       storage,
		vision:        vision,
		imageRepo:     imageRepo,
		userRepo:      userRepo,
		maxUploadSize: maxMB * 1024 * 1024,
	}
}

func (s *uploadService) validate(contentType string, content []byte) error {
	if !allowedUploadMIME[strings.ToLower(contentType)] {
		return fmt.Errorf("%w: unsupported content type %q (allowed: image/jpeg, image/png, image/webp)", ErrValidation, contentType)
	}
	if int64(len(content)) > s.maxUploadSize {
		return fmt.Errorf("%w: file exceeds the %d MB limit", ErrValidation, s.maxUploadSize/(1024*1024))
	}
	if len(content) == 0 {
		return fmt.Errorf("%w: empty file", ErrValidation)
	}
	return nil
}

func storageKey(userID int64, kind, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	if ext == "" {
		ext = ".png"
	}
	return fmt.Sprintf("users/%d/%s/%s_%s%s", userID, kind,
		time.Now().UTC().Format("20060102_150405"), uuid.New().String()[:8], ext)
}

func (s *uploadService) UploadImage(ctx context.Context, userID int64, fileName, contentType string, content []byte) (*types.UploadImage, error) {
	if err := s.validate(contentType, content); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, nil, userID); err != nil {
		return nil, notFoundOr(err)
	}

	// Letterbox onto the fixed canvas; re-encoded output is always PNG.
	// A resize failure falls back to the original bytes, like the source.
	storedContent := content
	storedType := contentType
	storedName := fileName
	if resized, err := imgutil.ResizeToFixedCanvas(content, uploadCanvasWidth, uploadCanvasHeight); err == nil {
		storedContent = resized
		storedType = "image/png"
		storedName = strings.TrimSuffix(fileName, path.Ext(fileName)) + ".png"
	} else {
		s.log.Warn("Resize failed, storing original upload", "error", err)
	}

	key := storageKey(userID, "upload_images", storedName)
	if err := s.storage.Save(ctx, key, bytes.NewReader(storedContent), storedType); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	image := &types.UploadImage{
		UserID:      userID,
		FileName:    storedName,
		FilePath:    key,
		PublicURL:   s.storage.PublicURL(key),
		ContentType: storedType,
		SizeBytes:   int64(len(storedContent)),
		UploadedAt:  time.Now().UTC(),
	}
	if _, err := s.imageRepo.Create(ctx, nil, image); err != nil {
		return nil, err
	}

	// Vision analysis is best-effort; the upload survives its failure.
	if s.vision != nil {
		analysis, err := s.vision.AnalyzeImage(ctx, storedContent)
		if err != nil {
			s.log.Warn("Vision analysis failed, upload kept without metadata", "image_id", image.ID, "error", err)
			analysis = &ImageAnalysis{
				Labels: []AnalysisLabel{}, Text: []AnalysisText{}, Objects: []AnalysisObject{},
				Faces: []AnalysisFace{}, SafeSearch: map[string]string{}, Colors: []AnalysisColor{},
				Timestamp: time.Now().UTC().Format(time.RFC3339),
				Error:     err.Error(),
			}
		}
		raw, merr := json.Marshal(analysis)
		if merr == nil {
			if uerr := s.imageRepo.UpdateMetaData(ctx, nil, image.ID, datatypes.JSON(raw)); uerr != nil {
				s.log.Warn("Failed to persist vision metadata", "image_id", image.ID, "error", uerr)
			} else {
				image.MetaData = datatypes.JSON(raw)
			}
		}
	}

	s.log.Info("Image uploaded", "image_id", image.ID, "user_id", userID, "bytes", image.SizeBytes)
	return image, nil
}

func (s *uploadService) UploadReferenceImage(ctx context.Context, userID int64, fileName, contentType string, content []byte) (*types.UploadImage, error) {
	if err := s.validate(contentType, content); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, nil, userID); err != nil {
		return nil, notFoundOr(err)
	}

	key := storageKey(userID, "reference_images", fileName)
	if err := s.storage.Save(ctx, key, bytes.NewReader(content), contentType); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	image := &types.UploadImage{
		UserID:      userID,
		FileName:    fileName,
		FilePath:    key,
		PublicURL:   s.storage.PublicURL(key),
		ContentType: contentType,
		SizeBytes:   int64(len(content)),
		UploadedAt:  time.Now().UTC(),
	}
	if _, err := s.imageRepo.Create(ctx, nil, image); err != nil {
		return nil, err
	}
	return image, nil
}

func (s *uploadService) GetImage(ctx context.Context, imageID int64) (*types.UploadImage, error) {
	image, err := s.imageRepo.GetByID(ctx, nil, imageID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return image, nil
}

func (s *uploadService) GetSignedURL(ctx context.Context, imageID int64) (string, error) {
	image, err := s.imageRepo.GetByID(ctx, nil, imageID)
	if err != nil {
		return "", notFoundOr(err)
	}
	url, err := s.storage.SignedURL(image.FilePath, time.Hour)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return url, nil
}

func (s *uploadService) ListImages(ctx context.Context, userID int64) ([]*types.UploadImage, error) {
	return s.imageRepo.ListByUser(ctx, nil, userID)
}
