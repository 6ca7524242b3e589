package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNotLoaded is returned by operations that need a loaded image.
	ErrNotLoaded = errors.New("no image loaded")

	// ErrInvalidIndex matches any *InvalidIndexError.
	ErrInvalidIndex = errors.New("invalid region index")

	// ErrNotAnnotated is returned when relabeling a region that has no annotation.
	ErrNotAnnotated = errors.New("region is not annotated")
)

// InvalidIndexError reports an index outside the current region list.
type InvalidIndexError struct {
	Index int
	Count int
}

func (e *InvalidIndexError) Error() string {
	return fmt.Sprintf("region index %d out of range [0, %d)", e.Index, e.Count)
}

func (e *InvalidIndexError) Is(target error) bool {
	return target == ErrInvalidIndex
}
