// Package surface turns pointer input on a rendered image into discrete
// click events delivered to registered handlers.
package surface

import (
	"fmt"
	"image"
	"sync"
)

// Button identifies which pointer button produced an event.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
)

func (b Button) String() string {
	switch b {
	case ButtonPrimary:
		return "primary"
	case ButtonSecondary:
		return "secondary"
	default:
		return fmt.Sprintf("button(%d)", int(b))
	}
}

// ParseButton maps a client-side button name to a Button.
func ParseButton(s string) (Button, error) {
	switch s {
	case "primary", "left":
		return ButtonPrimary, nil
	case "secondary", "right":
		return ButtonSecondary, nil
	}
	return 0, fmt.Errorf("unknown button %q", s)
}

// Event is a single click at Pos in image coordinates.
type Event struct {
	Button Button
	Pos    image.Point
}

// Renderable is anything with a pixel extent.
type Renderable interface {
	Bounds() image.Rectangle
}

// Handler receives events for one button.
type Handler func(Event)

// Surface wraps a Renderable and routes click events to handlers.
type Surface struct {
	mu         sync.RWMutex
	renderable Renderable
	handlers   map[Button][]Handler
}

func New(r Renderable) *Surface {
	return &Surface{
		renderable: r,
		handlers:   make(map[Button][]Handler),
	}
}

// OnClick registers h for events of button b.
func (s *Surface) OnClick(b Button, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[b] = append(s.handlers[b], h)
}

// SetRenderable replaces the wrapped renderable.
func (s *Surface) SetRenderable(r Renderable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderable = r
}

// Bounds returns the extent of the wrapped renderable, empty if there is none.
func (s *Surface) Bounds() image.Rectangle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.renderable == nil {
		return image.Rectangle{}
	}
	return s.renderable.Bounds()
}

// Dispatch delivers e to the handlers of its button and reports whether it
// was delivered. Events outside the renderable are dropped.
func (s *Surface) Dispatch(e Event) bool {
	s.mu.RLock()
	var handlers []Handler
	if s.renderable != nil && e.Pos.In(s.renderable.Bounds()) {
		handlers = append(handlers, s.handlers[e.Button]...)
	}
	s.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
	return len(handlers) > 0
}
