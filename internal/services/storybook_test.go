package services

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/AYM1104/story-book-app-backend-2/internal/repos"
	"github.com/AYM1104/story-book-app-backend-2/internal/types"
)

func newBookService(t *testing.T, db *gorm.DB) StoryBookService {
	t.Helper()
	log := testLog()
	return NewStoryBookService(db, log, repos.NewStoryPlotRepo(db, log), repos.NewGeneratedStoryBookRepo(db, log))
}

// seedSelectedPlot creates a plot that already went through theme selection.
func seedSelectedPlot(t *testing.T, db *gorm.DB) *types.StoryPlot {
	t.Helper()
	user := seedUser(t, db)
	image := seedImage(t, db, user.ID)
	setting := seedSetting(t, db, image.ID)
	plot := &types.StoryPlot{
		StorySettingID: setting.ID,
		UserID:         user.ID,
		Title:          "Pochi the explorer",
		Description:    "Pochi maps the park.",
		SelectedTheme:  "theme1",
		Keywords:       types.KeywordsToJSON([]string{"adventure", "maps", "courage"}),
		Page1:          "Pochi woke up early.",
		Page2:          "He found an old map.",
		Page3:          "The map led to a big tree.",
		Page4:          "A squirrel helped him dig.",
		Page5:          "They found a shiny acorn.",
		CurrentPage:    1,
	}
	if err := db.Create(plot).Error; err != nil {
		t.Fatalf("failed to seed plot: %v", err)
	}
	return plot
}

func TestConfirmAndCreateBook_SnapshotsPlot(t *testing.T) {
	db := newTestDB(t)
	plot := seedSelectedPlot(t, db)
	svc := newBookService(t, db)

	book, err := svc.ConfirmAndCreateBook(context.Background(), plot.ID)
	if err != nil {
		t.Fatalf("ConfirmAndCreateBook failed: %v", err)
	}
	if book.ImageGenerationStatus != types.ImageGenStatusPending {
		t.Fatalf("status = %q, want pending", book.ImageGenerationStatus)
	}
	if book.Title != plot.Title {
		t.Fatalf("title = %q, want %q", book.Title, plot.Title)
	}
	for n := 1; n <= 5; n++ {
		if book.Page(n) != plot.Page(n) {
			t.Fatalf("page %d = %q, want %q", n, book.Page(n), plot.Page(n))
		}
	}
}

func TestConfirmAndCreateBook_RequiresSelectedTheme(t *testing.T) {
	db := newTestDB(t)
	plot := seedSelectedPlot(t, db)
	plot.SelectedTheme = ""
	if err := db.Save(plot).Error; err != nil {
		t.Fatalf("failed to clear selected theme: %v", err)
	}
	svc := newBookService(t, db)

	_, err := svc.ConfirmAndCreateBook(context.Background(), plot.ID)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestConfirmAndCreateBook_RequiresAllPages(t *testing.T) {
	db := newTestDB(t)
	plot := seedSelectedPlot(t, db)
	plot.Page4 = ""
	if err := db.Save(plot).Error; err != nil {
		t.Fatalf("failed to clear page: %v", err)
	}
	svc := newBookService(t, db)

	_, err := svc.ConfirmAndCreateBook(context.Background(), plot.ID)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestConfirmAndCreateBook_BookIsIndependentOfPlot(t *testing.T) {
	db := newTestDB(t)
	plot := seedSelectedPlot(t, db)
	svc := newBookService(t, db)

	book, err := svc.ConfirmAndCreateBook(context.Background(), plot.ID)
	if err != nil {
		t.Fatalf("ConfirmAndCreateBook failed: %v", err)
	}

	plot.Page1 = "Rewritten after the book shipped."
	plot.Title = "A different title"
	if err := db.Save(plot).Error; err != nil {
		t.Fatalf("failed to mutate plot: %v", err)
	}

	reloaded, err := svc.GetBook(context.Background(), book.ID)
	if err != nil {
		t.Fatalf("GetBook failed: %v", err)
	}
	if reloaded.Page1 != "Pochi woke up early." {
		t.Fatalf("book page 1 changed after plot edit: %q", reloaded.Page1)
	}
	if reloaded.Title != "Pochi the explorer" {
		t.Fatalf("book title changed after plot edit: %q", reloaded.Title)
	}
}

func TestUpdateImageURLs_MarksCompleted(t *testing.T) {
	db := newTestDB(t)
	plot := seedSelectedPlot(t, db)
	svc := newBookService(t, db)

	book, err := svc.ConfirmAndCreateBook(context.Background(), plot.ID)
	if err != nil {
		t.Fatalf("ConfirmAndCreateBook failed: %v", err)
	}
	updated, err := svc.UpdateImageURLs(context.Background(), book.ID, map[int]string{
		1: "http://localhost:8080/uploads/p1.png",
		3: "http://localhost:8080/uploads/p3.png",
	})
	if err != nil {
		t.Fatalf("UpdateImageURLs failed: %v", err)
	}
	if updated.Page1ImageURL == "" || updated.Page3ImageURL == "" {
		t.Fatalf("expected pages 1 and 3 to carry image URLs")
	}
	if updated.Page2ImageURL != "" {
		t.Fatalf("page 2 unexpectedly got an image URL")
	}
	if updated.ImageGenerationStatus != types.ImageGenStatusCompleted {
		t.Fatalf("status = %q, want completed", updated.ImageGenerationStatus)
	}
}

func TestUpdateImageURLs_RejectsOutOfRangePage(t *testing.T) {
	db := newTestDB(t)
	plot := seedSelectedPlot(t, db)
	svc := newBookService(t, db)

	book, err := svc.ConfirmAndCreateBook(context.Background(), plot.ID)
	if err != nil {
		t.Fatalf("ConfirmAndCreateBook failed: %v", err)
	}
	_, err = svc.UpdateImageURLs(context.Background(), book.ID, map[int]string{6: "x"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSetImageGenerationStatus_EnforcesTransitions(t *testing.T) {
	db := newTestDB(t)
	plot := seedSelectedPlot(t, db)
	svc := newBookService(t, db)

	book, err := svc.ConfirmAndCreateBook(context.Background(), plot.ID)
	if err != nil {
		t.Fatalf("ConfirmAndCreateBook failed: %v", err)
	}

	// pending -> completed skips generating and must fail.
	if _, err := svc.SetImageGenerationStatus(context.Background(), book.ID, types.ImageGenStatusCompleted); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for pending->completed, got %v", err)
	}

	if _, err := svc.SetImageGenerationStatus(context.Background(), book.ID, types.ImageGenStatusGenerating); err != nil {
		t.Fatalf("pending->generating failed: %v", err)
	}
	if _, err := svc.SetImageGenerationStatus(context.Background(), book.ID, types.ImageGenStatusFailed); err != nil {
		t.Fatalf("generating->failed failed: %v", err)
	}
	// Failed books may retry.
	if _, err := svc.SetImageGenerationStatus(context.Background(), book.ID, types.ImageGenStatusGenerating); err != nil {
		t.Fatalf("failed->generating failed: %v", err)
	}
	updated, err := svc.SetImageGenerationStatus(context.Background(), book.ID, types.ImageGenStatusCompleted)
	if err != nil {
		t.Fatalf("generating->completed failed: %v", err)
	}
	if updated.ImageGenerationStatus != types.ImageGenStatusCompleted {
		t.Fatalf("status = %q, want completed", updated.ImageGenerationStatus)
	}
	if _, err := svc.SetImageGenerationStatus(context.Background(), book.ID, types.ImageGenStatusGenerating); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for completed->generating, got %v", err)
	}
}
