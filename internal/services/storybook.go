package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/AYM1104/story-book-app-backend-2/internal/logger"
	"github.com/AYM1104/story-book-app-backend-2/internal/repos"
	"github.com/AYM1104/story-book-app-backend-2/internal/types"
)

// StoryBookService turns a finished plot into an immutable book record and
// tracks its image-generation lifecycle.
type StoryBookService interface {
	ConfirmAndCreateBook(ctx context.Context, plotID int64) (*types.GeneratedStoryBook, error)
	GetBook(ctx context.Context, bookID int64) (*types.GeneratedStoryBook, error)
	UpdateImageURLs(ctx context.Context, bookID int64, urls map[int]string) (*types.GeneratedStoryBook, error)
	SetImageGenerationStatus(ctx context.Context, bookID int64, status string) (*types.GeneratedStoryBook, error)
}

type storyBookService struct {
	db       *gorm.DB
	log      *logger.Logger
	plotRepo repos.StoryPlotRepo
	bookRepo repos.GeneratedStoryBookRepo
}

func NewStoryBookService(db *gorm.DB, log *logger.Logger, plotRepo repos.StoryPlotRepo, bookRepo repos.GeneratedStoryBookRepo) StoryBookService {
	return &storyBookService{
		db:       db,
		log:      log.With("service", "StoryBookService"),
		plotRepo: plotRepo,
		bookRepo: bookRepo,
	}
}

// validStatusTransitions encodes the image-generation state machine.
// Failed books may be retried, which restarts generation.
var validStatusTransitions = map[string][]string{
	types.ImageGenStatusPending:    {types.ImageGenStatusGenerating},
	types.ImageGenStatusGenerating: {types.ImageGenStatusCompleted, types.ImageGenStatusFailed},
	types.ImageGenStatusFailed:     {types.ImageGenStatusGenerating},
	types.ImageGenStatusCompleted:  {},
}

func canTransition(from, to string) bool {
	for _, next := range validStatusTransitions[from] {
		if next == to {
			return true
		}
	}
	return from == to
}

// ConfirmAndCreateBook copies the plot's selected story into a new book row.
// The copy is deliberate: later edits to the plot must not rewrite books
// already delivered to the user.
func (s *storyBookService) ConfirmAndCreateBook(ctx context.Context, plotID int64) (*types.GeneratedStoryBook, error) {
	plot, err := s.plotRepo.GetByID(ctx, nil, plotID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if strings.TrimSpace(plot.SelectedTheme) == "" {
		return nil, fmt.Errorf("%w: plot %d has no selected theme", ErrInvalidState, plotID)
	}
	pages := make([]string, 0, storyPageCount)
	for n := 1; n <= storyPageCount; n++ {
		text := plot.Page(n)
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: plot %d page %d is empty", ErrInvalidState, plotID, n)
		}
		pages = append(pages, text)
	}

	book := &types.GeneratedStoryBook{
		StoryPlotID:           plotID,
		UserID:                plot.UserID,
		Title:                 plot.Title,
		Description:           plot.Description,
		Keywords:              plot.Keywords,
		StoryContent:          strings.Join(pages, "\n\n"),
		Page1:                 pages[0],
		Page2:                 pages[1],
		Page3:                 pages[2],
		Page4:                 pages[3],
		Page5:                 pages[4],
		ImageGenerationStatus: types.ImageGenStatusPending,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		_, cerr := s.bookRepo.Create(ctx, tx, book)
		return cerr
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Storybook created", "book_id", book.ID, "plot_id", plotID, "user_id", plot.UserID)
	return book, nil
}

func (s *storyBookService) GetBook(ctx context.Context, bookID int64) (*types.GeneratedStoryBook, error) {
	book, err := s.bookRepo.GetByID(ctx, nil, bookID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return book, nil
}

// UpdateImageURLs sets image URLs for the given pages. Partial updates are
// allowed; once at least one page got an image the book is marked completed.
func (s *storyBookService) UpdateImageURLs(ctx context.Context, bookID int64, urls map[int]string) (*types.GeneratedStoryBook, error) {
	book, err := s.bookRepo.GetByID(ctx, nil, bookID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	updated := 0
	for page, url := range urls {
		if page < 1 || page > storyPageCount {
			return nil, fmt.Errorf("%w: page must be between 1 and %d, got %d", ErrValidation, storyPageCount, page)
		}
		if strings.TrimSpace(url) == "" {
			continue
		}
		book.SetPageImageURL(page, url)
		updated++
	}
	if updated > 0 {
		book.ImageGenerationStatus = types.ImageGenStatusCompleted
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		return s.bookRepo.Save(ctx, tx, book)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Storybook image URLs updated", "book_id", bookID, "pages", updated)
	return book, nil
}

func (s *storyBookService) SetImageGenerationStatus(ctx context.Context, bookID int64, status string) (*types.GeneratedStoryBook, error) {
	switch status {
	case types.ImageGenStatusPending, types.ImageGenStatusGenerating, types.ImageGenStatusCompleted, types.ImageGenStatusFailed:
	default:
		return nil, fmt.Errorf("%w: unknown image generation status %q", ErrValidation, status)
	}
	book, err := s.bookRepo.GetByID(ctx, nil, bookID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if !canTransition(book.ImageGenerationStatus, status) {
		return nil, fmt.Errorf("%w: cannot move book %d from %q to %q", ErrInvalidState, bookID, book.ImageGenerationStatus, status)
	}
	book.ImageGenerationStatus = status
	err = s.db.Transaction(func(tx *gorm.DB) error {
		return s.bookRepo.Save(ctx, tx, book)
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}
