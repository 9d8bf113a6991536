package services

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/AYM1104/story-book-app-backend-2/internal/logger"
	"github.com/AYM1104/story-book-app-backend-2/internal/repos"
	"github.com/AYM1104/story-book-app-backend-2/internal/types"
)

const (
	defaultBookPageLimit = 20
	maxBookPageLimit     = 100
)

// BookSummary is the list-view shape of a finished book.
type BookSummary struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Keywords      []string  `json:"keywords"`
	CoverImageURL string    `json:"cover_image_url,omitempty"`
	ImageStatus   string    `json:"image_generation_status"`
	CreatedAt     time.Time `json:"created_at"`
}

// BookPage pairs a page's text with its illustration.
type BookPage struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
	ImageURL   string `json:"image_url,omitempty"`
}

// BookDetail is the reader-view shape of a finished book.
type BookDetail struct {
	ID          int64       `json:"id"`
	StoryPlotID int64       `json:"story_plot_id"`
	UserID      int64       `json:"user_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Keywords    []string    `json:"keywords"`
	Pages       []*BookPage `json:"pages"`
	ImageStatus string      `json:"image_generation_status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// BookListPage is one cursor page of the public book list.
type BookListPage struct {
	Books      []*BookSummary `json:"books"`
	NextCursor int64          `json:"next_cursor,omitempty"`
	HasMore    bool           `json:"has_more"`
}

// BookStats is the aggregate view used by the dashboard.
type BookStats struct {
	TotalBooks     int64   `json:"total_books"`
	RecentBooks    int64   `json:"recent_books"`
	CompletedBooks int64   `json:"completed_books"`
	CompletionRate float64 `json:"completion_rate"`
}

// BookQueryService is the read side of finished books: browsing, detail and
// aggregate stats.
type BookQueryService interface {
	// ListBooks pages through all books, newest first. cursor == 0 starts
	// from the top; limit <= 0 falls back to the default.
	ListBooks(ctx context.Context, cursor int64, limit int) (*BookListPage, error)
	GetBookDetail(ctx context.Context, bookID int64) (*BookDetail, error)
	ListUserBooks(ctx context.Context, userID int64) ([]*BookSummary, error)
	GetStats(ctx context.Context) (*BookStats, error)
}

type bookQueryService struct {
	db       *gorm.DB
	log      *logger.Logger
	bookRepo repos.GeneratedStoryBookRepo
	storage  StorageService
}

func NewBookQueryService(db *gorm.DB, log *logger.Logger, bookRepo repos.GeneratedStoryBookRepo, storage StorageService) BookQueryService {
	return &bookQueryService{
		db:       db,
		log:      log.With("service", "BookQueryService"),
		bookRepo: bookRepo,
		storage:  storage,
	}
}

func (s *bookQueryService) ListBooks(ctx context.Context, cursor int64, limit int) (*BookListPage, error) {
	if limit <= 0 {
		limit = defaultBookPageLimit
	}
	if limit > maxBookPageLimit {
		limit = maxBookPageLimit
	}
	// Fetch one extra row to learn whether another page exists.
	rows, err := s.bookRepo.ListPage(ctx, nil, cursor, limit+1)
	if err != nil {
		return nil, err
	}
	page := &BookListPage{Books: make([]*BookSummary, 0, limit)}
	if len(rows) > limit {
		page.HasMore = true
		rows = rows[:limit]
	}
	for _, book := range rows {
		page.Books = append(page.Books, s.summary(book))
	}
	if page.HasMore && len(rows) > 0 {
		page.NextCursor = rows[len(rows)-1].ID
	}
	return page, nil
}

func (s *bookQueryService) GetBookDetail(ctx context.Context, bookID int64) (*BookDetail, error) {
	book, err := s.bookRepo.GetByID(ctx, nil, bookID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	detail := &BookDetail{
		ID:          book.ID,
		StoryPlotID: book.StoryPlotID,
		UserID:      book.UserID,
		Title:       book.Title,
		Description: book.Description,
		Keywords:    types.KeywordsFromJSON(book.Keywords),
		ImageStatus: book.ImageGenerationStatus,
		CreatedAt:   book.CreatedAt,
		UpdatedAt:   book.UpdatedAt,
	}
	for n := 1; n <= storyPageCount; n++ {
		detail.Pages = append(detail.Pages, &BookPage{
			PageNumber: n,
			Text:       book.Page(n),
			ImageURL:   s.resolveURL(book.PageImageURL(n)),
		})
	}
	return detail, nil
}

func (s *bookQueryService) ListUserBooks(ctx context.Context, userID int64) ([]*BookSummary, error) {
	rows, err := s.bookRepo.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	summaries := make([]*BookSummary, 0, len(rows))
	for _, book := range rows {
		summaries = append(summaries, s.summary(book))
	}
	return summaries, nil
}

func (s *bookQueryService) GetStats(ctx context.Context) (*BookStats, error) {
	total, err := s.bookRepo.CountAll(ctx, nil)
	if err != nil {
		return nil, err
	}
	recent, err := s.bookRepo.CountCreatedSince(ctx, nil, time.Now().AddDate(0, 0, -7))
	if err != nil {
		return nil, err
	}
	completed, err := s.bookRepo.CountByStatus(ctx, nil, types.ImageGenStatusCompleted)
	if err != nil {
		return nil, err
	}
	stats := &BookStats{
		TotalBooks:     total,
		RecentBooks:    recent,
		CompletedBooks: completed,
	}
	if total > 0 {
		stats.CompletionRate = float64(completed) / float64(total)
	}
	return stats, nil
}

func (s *bookQueryService) summary(book *types.GeneratedStoryBook) *BookSummary {
	return &BookSummary{
		ID:            book.ID,
		Title:         book.Title,
		Description:   book.Description,
		Keywords:      types.KeywordsFromJSON(book.Keywords),
		CoverImageURL: s.resolveURL(book.Page1ImageURL),
		ImageStatus:   book.ImageGenerationStatus,
		CreatedAt:     book.CreatedAt,
	}
}

// resolveURL converts a bare storage key into a servable URL. Values that are
// already absolute URLs pass through unchanged.
func (s *bookQueryService) resolveURL(value string) string {
	if value == "" || strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return value
	}
	return s.storage.PublicURL(value)
}
