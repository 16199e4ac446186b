package preview

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/leonardotrapani/signcap/internal/media"
)

// Handle points at a saved recorded preview.
type Handle struct {
	ID       string
	Path     string
	MimeType string
	Size     int
}

func (h Handle) IsZero() bool {
	return h.ID == ""
}

// Store keeps recorded previews on disk until they are released.
type Store struct {
	basePath string
}

func NewStore(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create preview directory: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

// DefaultDir is ~/.cache/signcap/previews.
func DefaultDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "signcap", "previews"), nil
}

func (s *Store) Dir() string {
	return s.basePath
}

func (s *Store) Save(clip *media.Clip) (Handle, error) {
	if clip == nil || clip.Size() == 0 {
		return Handle{}, media.ErrEmptyClip
	}

	ext := filepath.Ext(clip.Name)
	if ext == "" {
		ext = media.DefaultExtension
	}

	id := uuid.New().String()
	fullPath := filepath.Join(s.basePath, id+ext)

	if err := os.WriteFile(fullPath, clip.Data, 0o600); err != nil {
		os.Remove(fullPath)
		return Handle{}, fmt.Errorf("failed to save preview: %w", err)
	}

	return Handle{ID: id, Path: fullPath, MimeType: clip.MimeType, Size: clip.Size()}, nil
}

// Release deletes the preview file. Releasing a zero handle is a no-op.
func (s *Store) Release(h Handle) error {
	if h.IsZero() {
		return nil
	}

	cleanPath := filepath.Clean(h.Path)
	if filepath.Dir(cleanPath) != filepath.Clean(s.basePath) || strings.Contains(filepath.Base(cleanPath), "..") {
		return fmt.Errorf("invalid preview path %s", h.Path)
	}

	if err := os.Remove(cleanPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete preview: %w", err)
	}
	log.Printf("Preview: released %s", h.ID)
	return nil
}
