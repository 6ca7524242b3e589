package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"contours/internal/logger"
)

// ErrInvalidName is returned for names that do not reduce to a usable file name.
var ErrInvalidName = errors.New("invalid image name")

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// StoredImage describes one image kept on disk.
type StoredImage struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified"`
}

// ImageService keeps uploaded originals under one directory so they can be
// reopened by name. The base name of a file is the annotation key.
type ImageService struct {
	imagesDir string
	logger    *logger.Logger
	mu        sync.Mutex
}

func NewImageService(imagesDir string, logger *logger.Logger) *ImageService {
	return &ImageService{
		imagesDir: imagesDir,
		logger:    logger,
	}
}

// CleanName reduces a client-supplied name to a base file name with a
// supported image extension.
func CleanName(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == ".." || strings.HasPrefix(base, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if !allowedExtensions[strings.ToLower(filepath.Ext(base))] {
		return "", fmt.Errorf("%w: unsupported extension in %q", ErrInvalidName, name)
	}
	return base, nil
}

// Save writes data under the cleaned name, replacing an existing file.
func (s *ImageService) Save(name string, data []byte) (string, error) {
	clean, err := CleanName(name)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.imagesDir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write image %s: %w", clean, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write image %s: %w", clean, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.imagesDir, clean)); err != nil {
		return "", fmt.Errorf("failed to store image %s: %w", clean, err)
	}

	s.logger.Info("Stored image %s (%d bytes)", clean, len(data))
	return clean, nil
}

// Open returns the bytes of a stored image.
func (s *ImageService) Open(name string) ([]byte, error) {
	clean, err := CleanName(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.imagesDir, clean))
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", clean, err)
	}
	return data, nil
}

// List returns the stored images sorted by name. A missing directory is empty.
func (s *ImageService) List() ([]StoredImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.imagesDir)
	if errors.Is(err, os.ErrNotExist) {
		return []StoredImage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read image directory: %w", err)
	}

	images := make([]StoredImage, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := CleanName(e.Name()); err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			s.logger.Error("Error getting file info for %s: %v", e.Name(), err)
			continue
		}
		images = append(images, StoredImage{
			Name:    e.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(images, func(i, j int) bool {
		return images[i].Name < images[j].Name
	})
	return images, nil
}
