package services

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"

	"contours/internal/config"
	"contours/internal/dto"
	"contours/internal/logger"
	"contours/internal/services/session"
	"contours/internal/services/storage"
	"contours/internal/services/vision"
	"contours/internal/services/vision/cv"
	"contours/internal/services/websocket"
	"contours/internal/surface"
)

var (
	// ErrUnsavedChanges is returned when switching images would discard
	// unsaved annotations and the caller did not force it.
	ErrUnsavedChanges = errors.New("current image has unsaved annotations")

	// ErrInvalidImage is returned when uploaded data cannot be decoded.
	ErrInvalidImage = errors.New("invalid image")

	// ErrUnknownLayer is returned by Overlay for an unsupported layer name.
	ErrUnknownLayer = errors.New("unknown overlay layer")
)

// Layer names accepted by Overlay.
const (
	LayerOutlines   = "outlines"
	LayerSaved      = "saved"
	LayerHighlights = "highlights"
	LayerComposite  = "composite"
)

// Manager is the controller behind the HTTP and websocket surfaces. It owns
// the annotation session of the open image and runs one operation at a time.
type Manager struct {
	extractor session.Extractor
	store     session.Store
	images    *storage.ImageService
	hub       *websocket.HubService
	surface   *surface.Surface
	logger    *logger.Logger
	maxHeight int

	mu           sync.Mutex
	session      *session.Session
	base         *image.NRGBA
	selection    []int
	showContours bool
}

func NewManager(extractor session.Extractor, store session.Store, images *storage.ImageService, hub *websocket.HubService, cfg *config.Config, logger *logger.Logger) *Manager {
	m := &Manager{
		extractor:    extractor,
		store:        store,
		images:       images,
		hub:          hub,
		surface:      surface.New(nil),
		logger:       logger,
		maxHeight:    cfg.MaxImageHeight,
		session:      session.New(extractor, store),
		showContours: true,
	}

	m.surface.OnClick(surface.ButtonPrimary, m.selectAt)
	m.surface.OnClick(surface.ButtonSecondary, m.addAt)

	return m
}

// UploadImage opens an uploaded image, replacing the current one, and stores
// it. It refuses with ErrUnsavedChanges when the open image is dirty, unless
// force is set. Nothing is stored unless the image loads.
func (m *Manager) UploadImage(name string, data []byte, force bool) (string, error) {
	clean, err := storage.CleanName(name)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkUnsaved(force); err != nil {
		return "", err
	}

	img, err := vision.DecodeImage(bytes.NewReader(data), m.maxHeight)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	s, err := m.prepare(clean, img)
	if err != nil {
		return "", err
	}
	if _, err := m.images.Save(clean, data); err != nil {
		return "", err
	}

	m.activate(s, img)
	return clean, nil
}

// OpenImage opens a previously stored image. Opening the image that is
// already open is a no-op unless force is set.
func (m *Manager) OpenImage(name string, force bool) error {
	clean, err := storage.CleanName(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !force && m.session.Loaded() && m.session.ImageKey() == clean {
		return nil
	}
	if err := m.checkUnsaved(force); err != nil {
		return err
	}

	data, err := m.images.Open(clean)
	if err != nil {
		return err
	}
	img, err := vision.DecodeImage(bytes.NewReader(data), m.maxHeight)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	s, err := m.prepare(clean, img)
	if err != nil {
		return err
	}
	m.activate(s, img)
	return nil
}

// CloseImage unloads the open image. It refuses with ErrUnsavedChanges when
// the image is dirty, unless force is set.
func (m *Manager) CloseImage(force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkUnsaved(force); err != nil {
		return err
	}
	if m.session.Loaded() {
		m.logger.Info("Closed %s", m.session.ImageKey())
	}

	m.session.Unload()
	m.base = nil
	m.selection = nil
	m.surface.SetRenderable(nil)
	m.broadcast()
	return nil
}

func (m *Manager) checkUnsaved(force bool) error {
	if !force && m.session.Dirty() {
		return fmt.Errorf("%w: %s", ErrUnsavedChanges, m.session.ImageKey())
	}
	return nil
}

// prepare runs detection on a fresh session without touching the current one.
func (m *Manager) prepare(name string, img *image.NRGBA) (*session.Session, error) {
	s := session.New(m.extractor, m.store)
	if err := s.Load(name, vision.NewPixelBuffer(img)); err != nil {
		m.logger.Error("Failed to load %s: %v", name, err)
		return nil, err
	}
	return s, nil
}

// activate swaps in a prepared session.
func (m *Manager) activate(s *session.Session, img *image.NRGBA) {
	name := s.ImageKey()
	m.session = s
	m.base = img
	m.selection = nil
	m.surface.SetRenderable(img)

	m.logger.Info("Loaded %s (%dx%d): %d regions, %d annotations",
		name, img.Bounds().Dx(), img.Bounds().Dy(), s.RegionCount(), len(s.Saved()))
	if orphans := s.Orphans(); len(orphans) > 0 {
		m.logger.Warning("%s: %d stored annotation(s) reference regions that were not detected: %v",
			name, len(orphans), orphans)
	}

	m.broadcast()
}

// HandleClick routes a click through the surface and reports whether any
// handler received it.
func (m *Manager) HandleClick(e surface.Event) bool {
	return m.surface.Dispatch(e)
}

// selectAt highlights the region under the cursor, or clears the highlight.
func (m *Manager) selectAt(e surface.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if idx, ok := m.session.Locate(e.Pos.X, e.Pos.Y); ok {
		m.selection = []int{idx}
	} else {
		m.selection = nil
	}
	m.broadcast()
}

// addAt annotates the region under the cursor.
func (m *Manager) addAt(e surface.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.session.Locate(e.Pos.X, e.Pos.Y)
	if !ok {
		return
	}
	if err := m.session.Add(idx); err != nil {
		m.logger.Error("Failed to add region %d: %v", idx, err)
		return
	}
	m.broadcast()
}

// Select replaces the highlighted regions.
func (m *Manager) Select(indices []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.session.Loaded() {
		return session.ErrNotLoaded
	}
	count := m.session.RegionCount()
	seen := make(map[int]bool, len(indices))
	selection := make([]int, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= count {
			return &session.InvalidIndexError{Index: i, Count: count}
		}
		if !seen[i] {
			seen[i] = true
			selection = append(selection, i)
		}
	}
	sort.Ints(selection)

	m.selection = selection
	m.broadcast()
	return nil
}

func (m *Manager) Add(indices []int) error {
	return m.mutate(func(s *session.Session) error { return s.Add(indices...) })
}

func (m *Manager) Remove(indices []int) error {
	return m.mutate(func(s *session.Session) error { return s.Remove(indices...) })
}

func (m *Manager) Relabel(index int, label string) error {
	return m.mutate(func(s *session.Session) error { return s.Relabel(index, label) })
}

// Save persists the annotations of the open image.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.session.Save(); err != nil {
		m.logger.Error("%v", err)
		return err
	}
	m.logger.Info("Saved %d annotation(s) for %s", len(m.session.Saved()), m.session.ImageKey())
	m.broadcast()
	return nil
}

func (m *Manager) mutate(op func(*session.Session) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := op(m.session); err != nil {
		return err
	}
	m.broadcast()
	return nil
}

// SetShowContours toggles the outline and highlight layers of the composite.
func (m *Manager) SetShowContours(show bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.showContours = show
	m.broadcast()
}

// Snapshot returns the current session state.
func (m *Manager) Snapshot() dto.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.snapshot()
}

func (m *Manager) snapshot() dto.SessionState {
	state := dto.SessionState{
		Loaded:       m.session.Loaded(),
		Image:        m.session.ImageKey(),
		Dirty:        m.session.Dirty(),
		ShowContours: m.showContours,
		Regions:      []dto.RegionView{},
		Annotations:  []dto.AnnotationView{},
		Selection:    append([]int{}, m.selection...),
		Orphans:      m.session.Orphans(),
	}
	if state.Loaded {
		bounds := m.surface.Bounds()
		state.Width = bounds.Dx()
		state.Height = bounds.Dy()
	}

	saved := m.session.Saved()
	for i, r := range m.session.Regions() {
		points := make([]dto.Point, len(r))
		for j, p := range r {
			points[j] = dto.Point{X: p.X, Y: p.Y}
		}
		_, annotated := saved[i]
		state.Regions = append(state.Regions, dto.RegionView{
			Index:     i,
			Color:     vision.ColorFor(i, vision.AlphaOpaque).Hex(),
			Hue:       vision.HueFor(i),
			Points:    points,
			Annotated: annotated,
		})
	}
	for _, e := range m.session.Entries() {
		state.Annotations = append(state.Annotations, dto.AnnotationView{
			Number: e.Number,
			Name:   e.Name,
			Color:  vision.ColorFor(e.Number, vision.AlphaOpaque).Hex(),
		})
	}
	return state
}

// broadcast pushes the snapshot to viewers. Callers hold m.mu.
func (m *Manager) broadcast() {
	if m.hub == nil {
		return
	}
	state := m.snapshot()
	if err := m.hub.BroadcastJSON(dto.SurfaceMessage{Type: "state", State: &state}); err != nil {
		m.logger.Error("Failed to broadcast session state: %v", err)
	}
}

// Overlay renders one layer of the open image as PNG. The composite draws
// saved regions over the image, plus outlines and highlights when contours
// are shown.
func (m *Manager) Overlay(layer string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.session.Loaded() || m.base == nil {
		return nil, session.ErrNotLoaded
	}

	regions := m.session.Regions()
	w, h := m.base.Bounds().Dx(), m.base.Bounds().Dy()
	saved := m.session.SavedIndices()

	var img image.Image
	var err error
	switch layer {
	case LayerOutlines:
		img, err = cv.RenderOutlines(regions, w, h)
	case LayerSaved:
		img, err = cv.RenderSaved(regions, w, h, saved)
	case LayerHighlights:
		img, err = cv.RenderHighlights(regions, w, h, m.selection)
	case LayerComposite:
		img, err = m.composite(regions, w, h, saved)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayer, layer)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to render %s layer: %w", layer, err)
	}

	return vision.EncodePNG(img)
}

func (m *Manager) composite(regions []vision.Region, w, h int, saved []int) (image.Image, error) {
	savedLayer, err := cv.RenderSaved(regions, w, h, saved)
	if err != nil {
		return nil, err
	}
	if !m.showContours {
		return vision.Composite(m.base, savedLayer), nil
	}

	outlines, err := cv.RenderOutlines(regions, w, h)
	if err != nil {
		return nil, err
	}
	highlights, err := cv.RenderHighlights(regions, w, h, m.selection)
	if err != nil {
		return nil, err
	}
	return vision.Composite(m.base, outlines, savedLayer, highlights), nil
}

// ListImages returns the stored images.
func (m *Manager) ListImages() ([]storage.StoredImage, error) {
	return m.images.List()
}

func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.hub
}

// PublishState broadcasts the current snapshot, e.g. to a newly connected viewer.
func (m *Manager) PublishState() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcast()
}
