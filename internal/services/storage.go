package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AYM1104/story-book-app-backend-2/internal/logger"
	"github.com/AYM1104/story-book-app-backend-2/internal/utils"
)

// StorageService abstracts where uploaded photos and generated illustrations
// live. Two backends exist: local filesystem and GCS, selected via
// STORAGE_BACKEND at startup.
type StorageService interface {
	// Save writes the object and returns nothing; the key is the caller's
	// stable reference (e.g. "users/7/upload_images/abc.png").
	Save(ctx context.Context, key string, r io.Reader, contentType string) error
	Read(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// PublicURL returns a web-servable URL for the key.
	PublicURL(key string) string
	// SignedURL returns a time-limited access URL. The local backend has no
	// signing and returns the public URL instead.
	SignedURL(key string, ttl time.Duration) (string, error)
}

const (
	StorageBackendLocal = "local"
	StorageBackendGCS   = "gcs"
)

// NewStorageService picks the backend from STORAGE_BACKEND.
func NewStorageService(ctx context.Context, log *logger.Logger) (StorageService, error) {
	backend := strings.ToLower(utils.GetEnv("STORAGE_BACKEND", StorageBackendLocal, log))
	switch backend {
	case StorageBackendGCS:
		return NewGCSStorageService(ctx, log)
	case StorageBackendLocal:
		return NewLocalStorageService(log)
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q (want %q or %q)", backend, StorageBackendLocal, StorageBackendGCS)
	}
}

type localStorageService struct {
	log     *logger.Logger
	rootDir string
	baseURL string
}

// NewLocalStorageService stores objects under LOCAL_UPLOAD_DIR and serves
// them as /uploads/<key> relative to PUBLIC_BASE_URL.
func NewLocalStorageService(log *logger.Logger) (StorageService, error) {
	rootDir := utils.GetEnv("LOCAL_UPLOAD_DIR", "uploads", log)
	baseURL := strings.TrimRight(utils.GetEnv("PUBLIC_BASE_URL", "http://localhost:8080", log), "/")
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %q: %w", rootDir, err)
	}
	return &localStorageService{
		log:     log.With("service", "LocalStorageService"),
		rootDir: rootDir,
		baseURL: baseURL,
	}, nil
}

func (s *localStorageService) path(key string) string {
	return filepath.Join(s.rootDir, filepath.FromSlash(key))
}

func (s *localStorageService) Save(ctx context.Context, key string, r io.Reader, contentType string) error {
	dst := s.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %q: %w", key, err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create file %q: %w", dst, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to write file %q: %w", dst, err)
	}
	return nil
}

func (s *localStorageService) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", key, err)
	}
	return data, nil
}

func (s *localStorageService) Delete(ctx context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil {
		return fmt.Errorf("failed to delete file %q: %w", key, err)
	}
	return nil
}

func (s *localStorageService) PublicURL(key string) string {
	return fmt.Sprintf("%s/uploads/%s", s.baseURL, key)
}

func (s *localStorageService) SignedURL(key string, ttl time.Duration) (string, error) {
	return s.PublicURL(key), nil
}
