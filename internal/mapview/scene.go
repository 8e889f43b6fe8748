package mapview

import (
	"slices"
	"sync"

	"github.com/couchcryptid/crime-map-service/internal/domain"
)

// JoinStats counts what the last keyed join did.
type JoinStats struct {
	Entered int `json:"entered"`
	Updated int `json:"updated"`
	Exited  int `json:"exited"`
}

// SceneState is a point-in-time copy of everything on a Scene.
type SceneState struct {
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	Months   []string `json:"months"`
	Selected string   `json:"selected"`
	Shapes   []Shape  `json:"shapes"`
	Tooltip  Tooltip  `json:"tooltip"`
}

type binding struct {
	shape   Shape
	handler EventHandler
}

// Scene is a retained, in-process Surface. It keeps the selector, shapes and
// tooltip, and dispatches user events to the handlers bound by the Controller
// the way a browser dispatches DOM events. Dispatch never holds the scene's
// lock while a handler runs, so handlers may call back into the Scene.
type Scene struct {
	width, height int

	mu       sync.RWMutex
	months   []string
	selected string
	selector EventHandler
	order    []string
	shapes   map[string]*binding
	tooltip  Tooltip
	lastJoin JoinStats
}

// NewScene creates an empty width x height scene.
func NewScene(width, height int) *Scene {
	return &Scene{
		width:  width,
		height: height,
		shapes: make(map[string]*binding),
	}
}

// Size returns the scene's canvas dimensions.
func (s *Scene) Size() (int, int) { return s.width, s.height }

func (s *Scene) SetMonthOptions(months []string, selected string, h EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.months = slices.Clone(months)
	s.selected = selected
	s.selector = h
}

func (s *Scene) SetSelected(month string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = month
}

func (s *Scene) JoinShapes(shapes []Shape, h EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats JoinStats
	next := make(map[string]*binding, len(shapes))
	order := make([]string, 0, len(shapes))
	for _, sh := range shapes {
		if _, dup := next[sh.Key]; dup {
			continue
		}
		if b, ok := s.shapes[sh.Key]; ok {
			b.shape = sh
			b.handler = h
			next[sh.Key] = b
			stats.Updated++
		} else {
			next[sh.Key] = &binding{shape: sh, handler: h}
			stats.Entered++
		}
		order = append(order, sh.Key)
	}
	for key := range s.shapes {
		if _, keep := next[key]; !keep {
			stats.Exited++
		}
	}
	s.shapes = next
	s.order = order
	s.lastJoin = stats
}

func (s *Scene) SetStrokeWidth(key string, width float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.shapes[key]; ok {
		b.shape.StrokeWidth = width
	}
}

func (s *Scene) ShowTooltip(lines []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tooltip.Visible = true
	s.tooltip.Lines = slices.Clone(lines)
}

func (s *Scene) MoveTooltip(p domain.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tooltip.Position = p
}

func (s *Scene) HideTooltip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tooltip.Visible = false
}

// Select changes the selector's value and fires its change event.
func (s *Scene) Select(month string) {
	s.mu.Lock()
	s.selected = month
	h := s.selector
	s.mu.Unlock()

	if h != nil {
		h.OnMonthChange(month)
	}
}

// HoverEnter fires the pointer-enter event on the shape with key. It reports
// false when no such shape is on the scene.
func (s *Scene) HoverEnter(key string) bool {
	h, ok := s.handlerFor(key)
	if ok && h != nil {
		h.OnHover(key)
	}
	return ok
}

// PointerMove fires a pointer-move event at p over the shape with key.
func (s *Scene) PointerMove(key string, p domain.Point) bool {
	h, ok := s.handlerFor(key)
	if ok && h != nil {
		h.OnPointerMove(p)
	}
	return ok
}

// HoverLeave fires the pointer-leave event on the shape with key.
func (s *Scene) HoverLeave(key string) bool {
	h, ok := s.handlerFor(key)
	if ok && h != nil {
		h.OnHoverEnd(key)
	}
	return ok
}

func (s *Scene) handlerFor(key string) (EventHandler, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.shapes[key]
	if !ok {
		return nil, false
	}
	return b.handler, true
}

// Shape returns the shape with key.
func (s *Scene) Shape(key string) (Shape, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.shapes[key]
	if !ok {
		return Shape{}, false
	}
	return b.shape, true
}

// Tooltip returns the overlay's current state.
func (s *Scene) Tooltip() Tooltip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := s.tooltip
	t.Lines = slices.Clone(t.Lines)
	return t
}

// LastJoin reports the enter/update/exit counts of the most recent join.
func (s *Scene) LastJoin() JoinStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastJoin
}

// State returns a copy of the scene.
func (s *Scene) State() SceneState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shapes := make([]Shape, 0, len(s.order))
	for _, key := range s.order {
		shapes = append(shapes, s.shapes[key].shape)
	}
	t := s.tooltip
	t.Lines = slices.Clone(t.Lines)
	return SceneState{
		Width:    s.width,
		Height:   s.height,
		Months:   slices.Clone(s.months),
		Selected: s.selected,
		Shapes:   shapes,
		Tooltip:  t,
	}
}
