package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/AYM1104/story-book-app-backend-2/internal/logger"
	"github.com/AYM1104/story-book-app-backend-2/internal/repos"
	"github.com/AYM1104/story-book-app-backend-2/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&types.User{},
		&types.UploadImage{},
		&types.StorySetting{},
		&types.StoryPlot{},
		&types.GeneratedStoryBook{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB) *types.User {
	t.Helper()
	user := &types.User{UserName: "taro", Email: fmt.Sprintf("%s@example.com", t.Name())}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func seedImage(t *testing.T, db *gorm.DB, userID int64) *types.UploadImage {
	t.Helper()
	image := &types.UploadImage{
		UserID:      userID,
		FileName:    "photo.png",
		FilePath:    fmt.Sprintf("users/%d/upload_images/photo.png", userID),
		ContentType: "image/png",
		SizeBytes:   128,
		UploadedAt:  time.Now(),
	}
	if err := db.Create(image).Error; err != nil {
		t.Fatalf("failed to seed image: %v", err)
	}
	return image
}

func seedSetting(t *testing.T, db *gorm.DB, uploadImageID int64) *types.StorySetting {
	t.Helper()
	setting := &types.StorySetting{
		UploadImageID:   uploadImageID,
		ProtagonistName: "Pochi",
		ProtagonistType: ProtagonistAnimal,
		SettingPlace:    PlacePark,
		Tone:            types.ToneGentle,
		TargetAge:       types.TargetAgePreschool,
		Language:        "ja",
	}
	if err := db.Create(setting).Error; err != nil {
		t.Fatalf("failed to seed setting: %v", err)
	}
	return setting
}

// fakeTextGen returns a canned response or error; it counts invocations.
type fakeTextGen struct {
	mu    sync.Mutex
	resp  string
	err   error
	calls int
}

func (f *fakeTextGen) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.resp, nil
}

// fakeImageGen returns a fixed payload (data, if set) or fails outright.
type fakeImageGen struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeImageGen) GenerateImage(ctx context.Context, prompt string) (*GeneratedImage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	data := f.data
	if data == nil {
		data = []byte("not-a-real-png")
	}
	return &GeneratedImage{Data: data, MimeType: "image/png"}, nil
}

func (f *fakeImageGen) GenerateImageWithReference(ctx context.Context, prompt string, reference []byte, referenceMime string) (*GeneratedImage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &GeneratedImage{Data: append([]byte("ref:"), reference...), MimeType: "image/png"}, nil
}

// memStorage keeps objects in a map.
type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (s *memStorage) Save(ctx context.Context, key string, r io.Reader, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return nil
}

func (s *memStorage) Read(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %q not found", key)
	}
	return bytes.Clone(data), nil
}

func (s *memStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

func (s *memStorage) PublicURL(key string) string {
	return "http://localhost:8080/uploads/" + key
}

func (s *memStorage) SignedURL(key string, ttl time.Duration) (string, error) {
	return s.PublicURL(key), nil
}

func testLog() *logger.Logger {
	return logger.NewNop()
}

func newPlotService(t *testing.T, db *gorm.DB, textGen TextGenerator) StoryPlotService {
	t.Helper()
	log := testLog()
	return NewStoryPlotService(db, log,
		repos.NewStorySettingRepo(db, log),
		repos.NewStoryPlotRepo(db, log),
		repos.NewUploadImageRepo(db, log),
		textGen)
}
