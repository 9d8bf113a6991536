package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/AYM1104/story-book-app-backend-2/internal/repos"
	"github.com/AYM1104/story-book-app-backend-2/internal/types"
)

func newImageGenService(t *testing.T, db *gorm.DB, gen ImageGenerator, storage StorageService) ImageGenService {
	t.Helper()
	log := testLog()
	return NewImageGenService(db, log,
		repos.NewStoryPlotRepo(db, log),
		repos.NewGeneratedStoryBookRepo(db, log),
		repos.NewUploadImageRepo(db, log),
		gen, storage)
}

func TestGeneratePageImage_PersistsIllustration(t *testing.T) {
	db := newTestDB(t)
	plot := seedSelectedPlot(t, db)
	storage := newMemStorage()
	svc := newImageGenService(t, db, &fakeImageGen{}, storage)

	image, err := svc.GeneratePageImage(context.Background(), plot.ID, 2)
	if err != nil {
		t.Fatalf("GeneratePageImage failed: %v", err)
	}
	if image.Page != 2 {
		t.Fatalf("page = %d, want 2", image.Page)
	}
	if image.URL == "" || image.Key == "" {
		t.Fatalf("missing url/key: %+v", image)
	}
	if _, err := storage.Read(context.Background(), image.Key); err != nil {
		t.Fatalf("illustration not persisted: %v", err)
	}
}

func TestGeneratePageImage_ReportsImageMetadata(t *testing.T) {
	db := newTestDB(t)
	plot := seedSelectedPlot(t, db)
	payload := tinyPNG(t, 64, 48)
	svc := newImageGenService(t, db, &fakeImageGen{data: payload}, newMemStorage())

	image, err := svc.GeneratePageImage(context.Background(), plot.ID, 1)
	if err != nil {
		t.Fatalf("GeneratePageImage failed: %v", err)
	}
	if image.Width != 64 || image.Height != 48 {
		t.Fatalf("dimensions = %dx%d, want 64x48", image.Width, image.Height)
	}
	if image.Format != "png" {
		t.Fatalf("format = %q, want png", image.Format)
	}
	if image.SizeBytes != len(payload) {
		t.Fatalf("size = %d, want %d", image.SizeBytes, len(payload))
	}
	if image.GeneratedAt.IsZero() {
		t.Fatalf("missing generated_at timestamp")
	}
}

func TestGeneratePageImage_RejectsBadPage(t *testing.T) {
	db := newTestDB(t)
	plot := seedSelectedPlot(t, db)
	svc := newImageGenService(t, db, &fakeImageGen{}, newMemStorage())

	for _, page := range []int{0, 6, -1} {
		_, err := svc.GeneratePageImage(context.Background(), plot.ID, page)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("page %d: expected ErrValidation, got %v", page, err)
		}
	}
}

func TestGeneratePageImage_SurfacesProviderFailure(t *testing.T) {
	db := newTestDB(t)
	plot := seedSelectedPlot(t, db)
	svc := newImageGenService(t, db, &fakeImageGen{err: errors.New("model overloaded")}, newMemStorage())

	_, err := svc.GeneratePageImage(context.Background(), plot.ID, 1)
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestGenerateAllPageImages_SkipsEmptyPages(t *testing.T) {
	db := newTestDB(t)
	plot := seedSelectedPlot(t, db)
	plot.Page3 = ""
	if err := db.Save(plot).Error; err != nil {
		t.Fatalf("failed to clear page: %v", err)
	}
	gen := &fakeImageGen{}
	svc := newImageGenService(t, db, gen, newMemStorage())

	result, err := svc.GenerateAllPageImages(context.Background(), plot.ID)
	if err != nil {
		t.Fatalf("GenerateAllPageImages failed: %v", err)
	}
	if len(result.Images) != 4 {
		t.Fatalf("got %d images, want 4 (page 3 empty)", len(result.Images))
	}
	if gen.calls != 4 {
		t.Fatalf("provider called %d times, want 4", gen.calls)
	}
	for _, img := range result.Images {
		if img.Page == 3 {
			t.Fatalf("empty page 3 was rendered")
		}
	}
}

func TestGeneratePageImageFromReference_ValidatesStrength(t *testing.T) {
	db := newTestDB(t)
	plot := seedSelectedPlot(t, db)
	svc := newImageGenService(t, db, &fakeImageGen{}, newMemStorage())

	for _, strength := range []float64{-0.1, 1.5} {
		_, err := svc.GeneratePageImageFromReference(context.Background(), plot.ID, 1, 1, strength)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("strength %v: expected ErrValidation, got %v", strength, err)
		}
	}
}

func TestGeneratePageImageFromReference_UsesStoredReference(t *testing.T) {
	db := newTestDB(t)
	plot := seedSelectedPlot(t, db)
	reference := seedImage(t, db, plot.UserID)
	storage := newMemStorage()
	if err := storage.Save(context.Background(), reference.FilePath, strings.NewReader("photo-bytes"), "image/png"); err != nil {
		t.Fatalf("failed to seed reference bytes: %v", err)
	}
	svc := newImageGenService(t, db, &fakeImageGen{}, storage)

	image, err := svc.GeneratePageImageFromReference(context.Background(), plot.ID, 1, reference.ID, 0.8)
	if err != nil {
		t.Fatalf("GeneratePageImageFromReference failed: %v", err)
	}
	data, err := storage.Read(context.Background(), image.Key)
	if err != nil {
		t.Fatalf("illustration not persisted: %v", err)
	}
	// The fake prefixes the reference bytes, proving they were passed through.
	if !strings.HasPrefix(string(data), "ref:photo-bytes") {
		t.Fatalf("reference bytes did not reach the generator: %q", data)
	}
}

func TestGenerateAllPageImagesFromReference_ConditionsEveryPage(t *testing.T) {
	db := newTestDB(t)
	plot := seedSelectedPlot(t, db)
	plot.Page4 = ""
	if err := db.Save(plot).Error; err != nil {
		t.Fatalf("failed to clear page: %v", err)
	}
	reference := seedImage(t, db, plot.UserID)
	storage := newMemStorage()
	if err := storage.Save(context.Background(), reference.FilePath, strings.NewReader("photo-bytes"), "image/png"); err != nil {
		t.Fatalf("failed to seed reference bytes: %v", err)
	}
	gen := &fakeImageGen{}
	svc := newImageGenService(t, db, gen, storage)

	result, err := svc.GenerateAllPageImagesFromReference(context.Background(), plot.ID, reference.ID, 0.9)
	if err != nil {
		t.Fatalf("GenerateAllPageImagesFromReference failed: %v", err)
	}
	if len(result.Images) != 4 {
		t.Fatalf("got %d images, want 4 (page 4 empty)", len(result.Images))
	}
	if gen.calls != 4 {
		t.Fatalf("provider called %d times, want 4", gen.calls)
	}
	for _, img := range result.Images {
		if img.Page == 4 {
			t.Fatalf("empty page 4 was rendered")
		}
		data, err := storage.Read(context.Background(), img.Key)
		if err != nil {
			t.Fatalf("page %d illustration not persisted: %v", img.Page, err)
		}
		if !strings.HasPrefix(string(data), "ref:photo-bytes") {
			t.Fatalf("page %d did not receive the reference bytes: %q", img.Page, data)
		}
	}
}

func TestGenerateAllPageImagesFromReference_ValidatesStrength(t *testing.T) {
	db := newTestDB(t)
	plot := seedSelectedPlot(t, db)
	svc := newImageGenService(t, db, &fakeImageGen{}, newMemStorage())

	for _, strength := range []float64{-0.1, 1.5} {
		_, err := svc.GenerateAllPageImagesFromReference(context.Background(), plot.ID, 1, strength)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("strength %v: expected ErrValidation, got %v", strength, err)
		}
	}
}

func TestGenerateBookImages_WalksStatus(t *testing.T) {
	db := newTestDB(t)
	plot := seedSelectedPlot(t, db)
	bookSvc := newBookService(t, db)
	book, err := bookSvc.ConfirmAndCreateBook(context.Background(), plot.ID)
	if err != nil {
		t.Fatalf("ConfirmAndCreateBook failed: %v", err)
	}
	svc := newImageGenService(t, db, &fakeImageGen{}, newMemStorage())

	updated, result, err := svc.GenerateBookImages(context.Background(), book.ID)
	if err != nil {
		t.Fatalf("GenerateBookImages failed: %v", err)
	}
	if updated.ImageGenerationStatus != types.ImageGenStatusCompleted {
		t.Fatalf("status = %q, want completed", updated.ImageGenerationStatus)
	}
	if len(result.Images) != 5 {
		t.Fatalf("got %d images, want 5", len(result.Images))
	}
	for n := 1; n <= 5; n++ {
		if updated.PageImageURL(n) == "" {
			t.Fatalf("page %d missing image url", n)
		}
	}
}

func TestGenerateBookImages_AllFailuresMarkFailed(t *testing.T) {
	db := newTestDB(t)
	plot := seedSelectedPlot(t, db)
	bookSvc := newBookService(t, db)
	book, err := bookSvc.ConfirmAndCreateBook(context.Background(), plot.ID)
	if err != nil {
		t.Fatalf("ConfirmAndCreateBook failed: %v", err)
	}
	svc := newImageGenService(t, db, &fakeImageGen{err: errors.New("model down")}, newMemStorage())

	updated, result, err := svc.GenerateBookImages(context.Background(), book.ID)
	if err != nil {
		t.Fatalf("GenerateBookImages failed: %v", err)
	}
	if updated.ImageGenerationStatus != types.ImageGenStatusFailed {
		t.Fatalf("status = %q, want failed", updated.ImageGenerationStatus)
	}
	if len(result.Failures) != 5 {
		t.Fatalf("got %d failures, want 5", len(result.Failures))
	}
}
