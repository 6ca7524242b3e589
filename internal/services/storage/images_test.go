package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"contours/internal/config"
	"contours/internal/logger"
)

func setupImageService(t *testing.T) (*ImageService, string) {
	t.Helper()
	dir := t.TempDir()
	log := logger.NewLogger(&config.Config{LogDirectory: filepath.Join(dir, "logs")})
	imagesDir := filepath.Join(dir, "images")
	return NewImageService(imagesDir, log), imagesDir
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"apple.png", "apple.png", false},
		{"photos/IMG_01.JPG", "IMG_01.JPG", false},
		{"..\\..\\evil.jpeg", "evil.jpeg", false},
		{"scan.webp", "scan.webp", false},
		{"../../etc/passwd", "", true},
		{".hidden.png", "", true},
		{"notes.txt", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := CleanName(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidName) {
				t.Errorf("CleanName(%q): expected ErrInvalidName, got %q, %v", tt.in, got, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("CleanName(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestImageService_SaveOpenList(t *testing.T) {
	s, dir := setupImageService(t)

	images, err := s.List()
	if err != nil || len(images) != 0 {
		t.Fatalf("Expected empty list before first save, got %v, %v", images, err)
	}

	name, err := s.Save("sub/b.png", []byte("second"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if name != "b.png" {
		t.Errorf("Expected cleaned name b.png, got %s", name)
	}
	s.Save("a.jpg", []byte("first"))
	s.Save("b.png", []byte("replaced"))
	os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0644)

	data, err := s.Open("b.png")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if string(data) != "replaced" {
		t.Errorf("Expected replaced content, got %q", data)
	}

	images, err = s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(images) != 2 || images[0].Name != "a.jpg" || images[1].Name != "b.png" {
		t.Errorf("Unexpected listing: %+v", images)
	}
	if images[1].Size != int64(len("replaced")) {
		t.Errorf("Expected size %d, got %d", len("replaced"), images[1].Size)
	}

	if _, err := s.Open("missing.png"); err == nil {
		t.Error("Expected error opening a missing image")
	}
}
