// Package session holds the annotation state of the image being edited.
//
// A Session is either unloaded or loaded. Loading runs detection and seeds
// the annotation set from the store; after that the set changes only through
// Add, Remove and Relabel, and the store is written only by Save.
package session

import (
	"fmt"
	"sort"

	"contours/internal/models"
	"contours/internal/services/vision"
)

// Extractor finds regions in a decoded image.
type Extractor interface {
	Extract(buf vision.PixelBuffer) ([]vision.Region, error)
}

// Store reads and replaces the persisted annotation set of an image.
type Store interface {
	Fetch(imageName string) ([]models.AnnotationEntry, error)
	Put(imageName string, entries map[int]string) error
}

// Session tracks detected regions, the edited annotation set and whether
// that set differs from the store.
type Session struct {
	extractor Extractor
	store     Store

	loaded  bool
	key     string
	regions []vision.Region
	saved   map[int]string
	orphans map[int]string
	dirty   bool
}

// New creates an unloaded session.
func New(extractor Extractor, store Store) *Session {
	return &Session{
		extractor: extractor,
		store:     store,
	}
}

// Load detects regions in buf and seeds the annotation set from the store
// entry for key. Any previous in-memory state is discarded, so callers must
// check Dirty first if they care about unsaved edits. On error the session
// keeps its previous state.
//
// Stored entries whose index does not exist in the new region list are kept
// aside as orphans: they cannot be added or relabeled, Save writes them back
// as-is, and Remove discards them.
func (s *Session) Load(key string, buf vision.PixelBuffer) error {
	regions, err := s.extractor.Extract(buf)
	if err != nil {
		return fmt.Errorf("failed to extract regions: %w", err)
	}

	entries, err := s.store.Fetch(key)
	if err != nil {
		return fmt.Errorf("failed to fetch annotations for %s: %w", key, err)
	}

	saved := make(map[int]string, len(entries))
	orphans := make(map[int]string)
	for _, e := range entries {
		if e.Number < 0 || e.Number >= len(regions) {
			orphans[e.Number] = e.Name
			continue
		}
		saved[e.Number] = e.Name
	}

	s.loaded = true
	s.key = key
	s.regions = regions
	s.saved = saved
	s.orphans = orphans
	s.dirty = false
	return nil
}

// Unload discards all state.
func (s *Session) Unload() {
	s.loaded = false
	s.key = ""
	s.regions = nil
	s.saved = nil
	s.orphans = nil
	s.dirty = false
}

func (s *Session) checkIndex(index int) error {
	if index < 0 || index >= len(s.regions) {
		return &InvalidIndexError{Index: index, Count: len(s.regions)}
	}
	return nil
}

func (s *Session) checkIndices(indices []int) error {
	if !s.loaded {
		return ErrNotLoaded
	}
	for _, i := range indices {
		if err := s.checkIndex(i); err != nil {
			return err
		}
	}
	return nil
}

// Add annotates each region with an empty label. Regions that already carry
// an annotation are left alone. Nothing changes if any index is invalid.
func (s *Session) Add(indices ...int) error {
	if err := s.checkIndices(indices); err != nil {
		return err
	}

	for _, i := range indices {
		if _, ok := s.saved[i]; ok {
			continue
		}
		s.saved[i] = ""
		s.dirty = true
	}
	return nil
}

// Remove drops the annotations of the given regions. Orphan indices are
// accepted too. Nothing changes if any index is invalid.
func (s *Session) Remove(indices ...int) error {
	if !s.loaded {
		return ErrNotLoaded
	}
	for _, i := range indices {
		if _, ok := s.orphans[i]; ok {
			continue
		}
		if err := s.checkIndex(i); err != nil {
			return err
		}
	}

	for _, i := range indices {
		if _, ok := s.saved[i]; ok {
			delete(s.saved, i)
			s.dirty = true
		}
		if _, ok := s.orphans[i]; ok {
			delete(s.orphans, i)
			s.dirty = true
		}
	}
	return nil
}

// Relabel sets the label of an annotated region.
func (s *Session) Relabel(index int, label string) error {
	if err := s.checkIndices([]int{index}); err != nil {
		return err
	}

	old, ok := s.saved[index]
	if !ok {
		return fmt.Errorf("region %d: %w", index, ErrNotAnnotated)
	}
	if old != label {
		s.saved[index] = label
		s.dirty = true
	}
	return nil
}

// Save replaces the stored set with the current annotations plus orphans.
// A failed write leaves the session untouched and dirty.
func (s *Session) Save() error {
	if !s.loaded {
		return ErrNotLoaded
	}

	entries := make(map[int]string, len(s.saved)+len(s.orphans))
	for i, name := range s.orphans {
		entries[i] = name
	}
	for i, name := range s.saved {
		entries[i] = name
	}

	if err := s.store.Put(s.key, entries); err != nil {
		return fmt.Errorf("failed to save annotations for %s: %w", s.key, err)
	}

	s.dirty = false
	return nil
}

// Locate returns the lowest index whose region contains (x, y).
func (s *Session) Locate(x, y int) (int, bool) {
	return vision.Locate(s.regions, x, y)
}

func (s *Session) Loaded() bool {
	return s.loaded
}

func (s *Session) ImageKey() string {
	return s.key
}

func (s *Session) Dirty() bool {
	return s.dirty
}

// Regions returns a copy of the detected regions.
func (s *Session) Regions() []vision.Region {
	return vision.CloneRegions(s.regions)
}

// RegionCount returns the number of detected regions.
func (s *Session) RegionCount() int {
	return len(s.regions)
}

// Saved returns a copy of the annotation set.
func (s *Session) Saved() map[int]string {
	return copyMap(s.saved)
}

// SavedIndices returns the annotated region indices in ascending order.
func (s *Session) SavedIndices() []int {
	indices := make([]int, 0, len(s.saved))
	for i := range s.saved {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

// Entries returns the annotation set ordered by region index.
func (s *Session) Entries() []models.AnnotationEntry {
	return models.EntriesFromMap(s.saved)
}

// Orphans returns stored entries that did not match a detected region.
func (s *Session) Orphans() []models.AnnotationEntry {
	return models.EntriesFromMap(s.orphans)
}

func copyMap(m map[int]string) map[int]string {
	out := make(map[int]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
