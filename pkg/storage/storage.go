package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// ImageStore defines the contract for the cover image store. The catalog
// references images by bare filename, so the store must answer existence
// checks and delete by the same filename.
type ImageStore interface {
	// Exists reports whether fileName is already present in the store.
	Exists(fileName string) bool
	// Save writes the image under fileName, creating the directory if needed.
	Save(fileName string, r io.Reader) error
	// Delete removes fileName from the store. Deleting a missing file is not
	// an error.
	Delete(fileName string) error
	// List returns every filename currently in the store.
	List() ([]string, error)
}

type localStore struct {
	dir string
}

// NewLocalStore creates a disk-backed ImageStore rooted at dir.
func NewLocalStore(dir string) (ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}
	return &localStore{dir: dir}, nil
}

func (s *localStore) path(fileName string) string {
	return filepath.Join(s.dir, filepath.Base(fileName))
}

func (s *localStore) Exists(fileName string) bool {
	if fileName == "" {
		return false
	}
	info, err := os.Stat(s.path(fileName))
	return err == nil && !info.IsDir()
}

func (s *localStore) Save(fileName string, r io.Reader) error {
	f, err := os.Create(s.path(fileName))
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to write image file: %w", err)
	}
	return nil
}

func (s *localStore) Delete(fileName string) error {
	err := os.Remove(s.path(fileName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image file: %w", err)
	}
	return nil
}

func (s *localStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]+`)

func sanitizeFilename(filename string) string {
	return unsafeFilenameChars.ReplaceAllString(filename, "_")
}

// GenerateUniqueFilename builds a collision-free filename keeping a
// sanitized trace of the original name.
func GenerateUniqueFilename(originalFilename string) string {
	timestamp := time.Now().Format("20060102")
	return fmt.Sprintf("%s-%s-%s", timestamp, uuid.New().String(), sanitizeFilename(originalFilename))
}
