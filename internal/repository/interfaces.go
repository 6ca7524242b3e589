package repository

import (
	"errors"

	"contours/internal/models"
)

// Failure kinds reported by annotation stores. Every store error wraps exactly
// one of them, so callers can tell an outage from a bad statement and neither
// from "no annotations" (which is an empty result with a nil error).
var (
	ErrConnection = errors.New("annotation store unavailable")
	ErrQuery      = errors.New("annotation store query failed")
)

// AnnotationRepository defines the interface for per-image annotation storage.
type AnnotationRepository interface {
	// Read operations
	Fetch(imageName string) ([]models.AnnotationEntry, error)
	List() ([]models.ImageAnnotations, error)
	GetStats() (*models.AnnotationStats, error)

	// Write operations: full replacement of one image's set
	Put(imageName string, entries map[int]string) error
	BulkPut(sets []models.ImageAnnotations) error

	// Delete operations
	Delete(imageName string) error
}
