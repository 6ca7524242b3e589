package sqlite

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"contours/internal/models"
	"contours/internal/repository"
)

// AnnotationRepository implements repository.AnnotationRepository for SQLite.
type AnnotationRepository struct {
	db *DB
}

// NewAnnotationRepository creates a new SQLite annotation repository.
func NewAnnotationRepository(db *DB) *AnnotationRepository {
	return &AnnotationRepository{db: db}
}

// Fetch returns the stored (number, name) pairs for an image in stored order.
// An image without a row yields an empty slice and a nil error.
func (r *AnnotationRepository) Fetch(imageName string) ([]models.AnnotationEntry, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var numbers, names string
	err := r.db.Conn().QueryRow(`
		SELECT contour_numbers, contour_names
		FROM contours WHERE image_name = ?
	`, imageName).Scan(&numbers, &names)

	if err == sql.ErrNoRows {
		return []models.AnnotationEntry{}, nil
	}
	if err != nil {
		return nil, classify("failed to get contours", err)
	}

	entries, err := decodeArrays(numbers, names)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", repository.ErrQuery, err)
	}
	return entries, nil
}

// Put replaces the stored set for an image. The existence check and the
// insert, update or delete it leads to run in one transaction:
//   - no row, empty set: nothing to do
//   - no row, entries: insert
//   - row, empty set: delete the row
//   - row, entries: overwrite both arrays
func (r *AnnotationRepository) Put(imageName string, entries map[int]string) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", repository.ErrConnection, err)
	}
	defer tx.Rollback()

	if err := putTx(tx, imageName, entries); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %w", repository.ErrConnection, err)
	}
	return nil
}

// BulkPut applies Put semantics to several images in a single transaction.
// Duplicate numbers within one set keep the last name.
func (r *AnnotationRepository) BulkPut(sets []models.ImageAnnotations) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", repository.ErrConnection, err)
	}
	defer tx.Rollback()

	for _, set := range sets {
		entries := make(map[int]string, len(set.Contours))
		for _, c := range set.Contours {
			entries[c.Number] = c.Name
		}
		if err := putTx(tx, set.ImageName, entries); err != nil {
			return fmt.Errorf("image %s: %w", set.ImageName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %w", repository.ErrConnection, err)
	}
	return nil
}

func putTx(tx *sql.Tx, imageName string, entries map[int]string) error {
	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM contours WHERE image_name = ?`, imageName).Scan(&count); err != nil {
		return classify("failed to check image existence", err)
	}
	exists := count > 0

	if len(entries) == 0 {
		if !exists {
			return nil
		}
		if _, err := tx.Exec(`DELETE FROM contours WHERE image_name = ?`, imageName); err != nil {
			return classify("failed to delete contours", err)
		}
		return nil
	}

	numbers, names, err := encodeArrays(entries)
	if err != nil {
		return fmt.Errorf("%w: %w", repository.ErrQuery, err)
	}

	if !exists {
		_, err = tx.Exec(`
			INSERT INTO contours (image_name, contour_numbers, contour_names)
			VALUES (?, ?, ?)
		`, imageName, numbers, names)
		if err != nil {
			return classify("failed to insert contours", err)
		}
		return nil
	}

	_, err = tx.Exec(`
		UPDATE contours
		SET contour_numbers = ?, contour_names = ?, updated_at = CURRENT_TIMESTAMP
		WHERE image_name = ?
	`, numbers, names, imageName)
	if err != nil {
		return classify("failed to update contours", err)
	}
	return nil
}

// List returns every stored annotation set ordered by image name.
func (r *AnnotationRepository) List() ([]models.ImageAnnotations, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return r.list()
}

func (r *AnnotationRepository) list() ([]models.ImageAnnotations, error) {
	rows, err := r.db.Conn().Query(`
		SELECT image_name, contour_numbers, contour_names
		FROM contours ORDER BY image_name
	`)
	if err != nil {
		return nil, classify("failed to query contours", err)
	}
	defer rows.Close()

	var sets []models.ImageAnnotations
	for rows.Next() {
		var name, numbers, labels string
		if err := rows.Scan(&name, &numbers, &labels); err != nil {
			return nil, classify("failed to scan contours", err)
		}
		entries, err := decodeArrays(numbers, labels)
		if err != nil {
			return nil, fmt.Errorf("%w: image %s: %w", repository.ErrQuery, name, err)
		}
		sets = append(sets, models.ImageAnnotations{ImageName: name, Contours: entries})
	}
	if err := rows.Err(); err != nil {
		return nil, classify("failed to iterate contours", err)
	}

	return sets, nil
}

// GetStats returns statistics about stored annotations.
func (r *AnnotationRepository) GetStats() (*models.AnnotationStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	sets, err := r.list()
	if err != nil {
		return nil, err
	}

	stats := &models.AnnotationStats{
		AnnotatedImages: len(sets),
		LabelCounts:     make(map[string]int),
	}
	for _, set := range sets {
		stats.TotalContours += len(set.Contours)
		for _, c := range set.Contours {
			if c.Name != "" {
				stats.LabelCounts[c.Name]++
			}
		}
	}
	return stats, nil
}

// Delete removes the row of an image, if any.
func (r *AnnotationRepository) Delete(imageName string) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM contours WHERE image_name = ?`, imageName); err != nil {
		return classify("failed to delete contours", err)
	}
	return nil
}

// classify wraps a database error with the failure kind it represents.
func classify(msg string, err error) error {
	kind := repository.ErrQuery
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		strings.Contains(err.Error(), "database is closed") {
		kind = repository.ErrConnection
	}
	return fmt.Errorf("%w: %s: %w", kind, msg, err)
}
