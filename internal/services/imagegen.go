package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AYM1104/story-book-app-backend-2/internal/imgutil"
	"github.com/AYM1104/story-book-app-backend-2/internal/logger"
	"github.com/AYM1104/story-book-app-backend-2/internal/repos"
	"github.com/AYM1104/story-book-app-backend-2/internal/types"
)

// noTextBlock is appended to every illustration prompt. The image model
// otherwise loves baking garbled captions into picture-book art.
const noTextBlock = `CRITICAL REQUIREMENTS:
- Absolutely NO text, NO letters, NO words, NO captions, NO speech bubbles anywhere in the image.
- The illustration must be purely visual storytelling.
- Soft watercolor picture-book style, warm colors, child friendly.
- One single scene filling the whole frame.`

// PageImage describes one persisted illustration. Width/Height/Format are
// zero when the model returns bytes the image decoder does not recognize.
type PageImage struct {
	Page        int       `json:"page"`
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	MimeType    string    `json:"mime_type"`
	SizeBytes   int       `json:"size_bytes"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	Format      string    `json:"format,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// PageImageFailure records a page whose generation failed during a batch run.
type PageImageFailure struct {
	Page  int    `json:"page"`
	Error string `json:"error"`
}

// BatchImageResult is the outcome of generating every page of a plot or book.
type BatchImageResult struct {
	Images   []*PageImage        `json:"images"`
	Failures []*PageImageFailure `json:"failures,omitempty"`
}

// ImageGenService renders storybook illustrations and persists them.
type ImageGenService interface {
	// GeneratePageImage renders one page of a plot.
	GeneratePageImage(ctx context.Context, plotID int64, page int) (*PageImage, error)
	// GenerateAllPageImages renders pages 1..5 in order, skipping empty ones.
	// A single failed page does not abort the batch.
	GenerateAllPageImages(ctx context.Context, plotID int64) (*BatchImageResult, error)
	// GeneratePageImageFromReference conditions the illustration on an
	// uploaded photo. Strength in [0,1] controls how closely the output
	// should follow the reference.
	GeneratePageImageFromReference(ctx context.Context, plotID int64, page int, uploadImageID int64, strength float64) (*PageImage, error)
	// GenerateAllPageImagesFromReference runs the reference-conditioned
	// variant over pages 1..5 with the same skip-empty, best-effort
	// semantics as GenerateAllPageImages.
	GenerateAllPageImagesFromReference(ctx context.Context, plotID int64, uploadImageID int64, strength float64) (*BatchImageResult, error)
	// GenerateBookImages renders all pages of a book and walks its
	// image-generation status pending -> generating -> completed|failed.
	GenerateBookImages(ctx context.Context, bookID int64) (*types.GeneratedStoryBook, *BatchImageResult, error)
}

type imageGenService struct {
	db       *gorm.DB
	log      *logger.Logger
	plotRepo repos.StoryPlotRepo
	bookRepo repos.GeneratedStoryBookRepo
	imgRepo  repos.UploadImageRepo
	imageGen ImageGenerator
	storage  StorageService
}

func NewImageGenService(db *gorm.DB, log *logger.Logger, plotRepo repos.StoryPlotRepo, bookRepo repos.GeneratedStoryBookRepo, imgRepo repos.UploadImageRepo, imageGen ImageGenerator, storage StorageService) ImageGenService {
	return &imageGenService{
		db:       db,
		log:      log.With("service", "ImageGenService"),
		plotRepo: plotRepo,
		bookRepo: bookRepo,
		imgRepo:  imgRepo,
		imageGen: imageGen,
		storage:  storage,
	}
}

func (s *imageGenService) GeneratePageImage(ctx context.Context, plotID int64, page int) (*PageImage, error) {
	plot, text, err := s.plotPage(ctx, plotID, page)
	if err != nil {
		return nil, err
	}
	prompt := illustrationPrompt(plot.StorySetting, text)
	img, err := s.imageGen.GenerateImage(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return s.persist(ctx, plot.UserID, page, img)
}

func (s *imageGenService) GenerateAllPageImages(ctx context.Context, plotID int64) (*BatchImageResult, error) {
	plot, err := s.plotRepo.GetByID(ctx, nil, plotID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	result := &BatchImageResult{}
	for page := 1; page <= storyPageCount; page++ {
		text := plot.Page(page)
		if strings.TrimSpace(text) == "" {
			continue
		}
		img, err := s.imageGen.GenerateImage(ctx, illustrationPrompt(plot.StorySetting, text))
		if err != nil {
			s.log.Warn("Page image generation failed", "plot_id", plotID, "page", page, "error", err)
			result.Failures = append(result.Failures, &PageImageFailure{Page: page, Error: err.Error()})
			continue
		}
		saved, err := s.persist(ctx, plot.UserID, page, img)
		if err != nil {
			s.log.Warn("Page image persistence failed", "plot_id", plotID, "page", page, "error", err)
			result.Failures = append(result.Failures, &PageImageFailure{Page: page, Error: err.Error()})
			continue
		}
		result.Images = append(result.Images, saved)
	}
	return result, nil
}

func (s *imageGenService) GeneratePageImageFromReference(ctx context.Context, plotID int64, page int, uploadImageID int64, strength float64) (*PageImage, error) {
	if strength < 0 || strength > 1 {
		return nil, fmt.Errorf("%w: strength must be between 0 and 1, got %g", ErrValidation, strength)
	}
	plot, text, err := s.plotPage(ctx, plotID, page)
	if err != nil {
		return nil, err
	}
	data, mime, err := s.referenceBytes(ctx, uploadImageID)
	if err != nil {
		return nil, err
	}

	prompt := illustrationPrompt(plot.StorySetting, text) + "\n" + referenceGuidance(strength)
	img, err := s.imageGen.GenerateImageWithReference(ctx, prompt, data, mime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return s.persist(ctx, plot.UserID, page, img)
}

func (s *imageGenService) GenerateAllPageImagesFromReference(ctx context.Context, plotID int64, uploadImageID int64, strength float64) (*BatchImageResult, error) {
	if strength < 0 || strength > 1 {
		return nil, fmt.Errorf("%w: strength must be between 0 and 1, got %g", ErrValidation, strength)
	}
	plot, err := s.plotRepo.GetByID(ctx, nil, plotID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	data, mime, err := s.referenceBytes(ctx, uploadImageID)
	if err != nil {
		return nil, err
	}

	guidance := referenceGuidance(strength)
	result := &BatchImageResult{}
	for page := 1; page <= storyPageCount; page++ {
		text := plot.Page(page)
		if strings.TrimSpace(text) == "" {
			continue
		}
		prompt := illustrationPrompt(plot.StorySetting, text) + "\n" + guidance
		img, err := s.imageGen.GenerateImageWithReference(ctx, prompt, data, mime)
		if err != nil {
			s.log.Warn("Page image-to-image generation failed", "plot_id", plotID, "page", page, "error", err)
			result.Failures = append(result.Failures, &PageImageFailure{Page: page, Error: err.Error()})
			continue
		}
		saved, err := s.persist(ctx, plot.UserID, page, img)
		if err != nil {
			s.log.Warn("Page image persistence failed", "plot_id", plotID, "page", page, "error", err)
			result.Failures = append(result.Failures, &PageImageFailure{Page: page, Error: err.Error()})
			continue
		}
		result.Images = append(result.Images, saved)
	}
	return result, nil
}

// referenceBytes loads the stored bytes of an uploaded reference image.
func (s *imageGenService) referenceBytes(ctx context.Context, uploadImageID int64) ([]byte, string, error) {
	reference, err := s.imgRepo.GetByID(ctx, nil, uploadImageID)
	if err != nil {
		return nil, "", notFoundOr(err)
	}
	data, err := s.storage.Read(ctx, reference.FilePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read reference image %d: %w", uploadImageID, err)
	}
	return data, reference.ContentType, nil
}

func (s *imageGenService) GenerateBookImages(ctx context.Context, bookID int64) (*types.GeneratedStoryBook, *BatchImageResult, error) {
	book, err := s.bookRepo.GetByID(ctx, nil, bookID)
	if err != nil {
		return nil, nil, notFoundOr(err)
	}
	if book.ImageGenerationStatus == types.ImageGenStatusGenerating {
		return nil, nil, fmt.Errorf("%w: images for book %d are already being generated", ErrInvalidState, bookID)
	}
	plot, err := s.plotRepo.GetByID(ctx, nil, book.StoryPlotID)
	if err != nil {
		return nil, nil, notFoundOr(err)
	}

	book.ImageGenerationStatus = types.ImageGenStatusGenerating
	if err := s.saveBook(ctx, book); err != nil {
		return nil, nil, err
	}

	result := &BatchImageResult{}
	for page := 1; page <= storyPageCount; page++ {
		text := book.Page(page)
		if strings.TrimSpace(text) == "" {
			continue
		}
		img, err := s.imageGen.GenerateImage(ctx, illustrationPrompt(plot.StorySetting, text))
		if err != nil {
			s.log.Warn("Book page image generation failed", "book_id", bookID, "page", page, "error", err)
			result.Failures = append(result.Failures, &PageImageFailure{Page: page, Error: err.Error()})
			continue
		}
		saved, err := s.persist(ctx, book.UserID, page, img)
		if err != nil {
			s.log.Warn("Book page image persistence failed", "book_id", bookID, "page", page, "error", err)
			result.Failures = append(result.Failures, &PageImageFailure{Page: page, Error: err.Error()})
			continue
		}
		book.SetPageImageURL(page, saved.URL)
		result.Images = append(result.Images, saved)
	}

	if len(result.Images) > 0 {
		book.ImageGenerationStatus = types.ImageGenStatusCompleted
	} else {
		book.ImageGenerationStatus = types.ImageGenStatusFailed
	}
	if err := s.saveBook(ctx, book); err != nil {
		return nil, nil, err
	}

	s.log.Info("Book images generated", "book_id", bookID, "status", book.ImageGenerationStatus,
		"generated", len(result.Images), "failed", len(result.Failures))
	return book, result, nil
}

func (s *imageGenService) plotPage(ctx context.Context, plotID int64, page int) (*types.StoryPlot, string, error) {
	if page < 1 || page > storyPageCount {
		return nil, "", fmt.Errorf("%w: page must be between 1 and %d, got %d", ErrValidation, storyPageCount, page)
	}
	plot, err := s.plotRepo.GetByID(ctx, nil, plotID)
	if err != nil {
		return nil, "", notFoundOr(err)
	}
	text := plot.Page(page)
	if strings.TrimSpace(text) == "" {
		return nil, "", fmt.Errorf("%w: plot %d page %d has no text yet", ErrInvalidState, plotID, page)
	}
	return plot, text, nil
}

func (s *imageGenService) persist(ctx context.Context, userID int64, page int, img *GeneratedImage) (*PageImage, error) {
	ext := extForMime(img.MimeType)
	key := fmt.Sprintf("users/%d/generated_images/%d_page%d_%s%s",
		userID, time.Now().Unix(), page, uuid.NewString()[:8], ext)
	if err := s.storage.Save(ctx, key, bytes.NewReader(img.Data), img.MimeType); err != nil {
		return nil, fmt.Errorf("failed to store generated image: %w", err)
	}
	saved := &PageImage{
		Page:        page,
		Key:         key,
		URL:         s.storage.PublicURL(key),
		MimeType:    img.MimeType,
		SizeBytes:   len(img.Data),
		GeneratedAt: time.Now().UTC(),
	}
	if info, err := imgutil.GetInfo(img.Data); err != nil {
		s.log.Debug("Generated image not decodable for metadata", "key", key, "error", err)
	} else {
		saved.Width = info.Width
		saved.Height = info.Height
		saved.Format = info.Format
	}
	return saved, nil
}

func (s *imageGenService) saveBook(ctx context.Context, book *types.GeneratedStoryBook) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.bookRepo.Save(ctx, tx, book)
	})
}

func illustrationPrompt(setting *types.StorySetting, pageText string) string {
	name := "the hero"
	kind := ProtagonistChild
	place := PlacePark
	if setting != nil {
		name = settingAttr(setting.ProtagonistName, name)
		kind = settingAttr(setting.ProtagonistType, kind)
		place = settingAttr(setting.SettingPlace, place)
	}
	return fmt.Sprintf(`Illustrate this children's picture-book scene:

"%s"

The protagonist is %s, a %s. The scene takes place in the %s.

%s`, pageText, name, kind, place, noTextBlock)
}

// referenceGuidance maps the image-to-image strength onto prompt wording,
// since the model takes no numeric strength parameter.
func referenceGuidance(strength float64) string {
	switch {
	case strength >= 0.75:
		return "Reproduce the reference image's character design, colors and composition as faithfully as possible."
	case strength >= 0.4:
		return "Keep the reference image's character design and color palette, but compose the scene freely."
	default:
		return "Use the reference image only as loose inspiration for the character's look."
	}
}

func extForMime(mime string) string {
	switch strings.ToLower(mime) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
