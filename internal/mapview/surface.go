package mapview

import "github.com/couchcryptid/crime-map-service/internal/domain"

// Drawing defaults.
const (
	StrokeColor       = "#333"
	StrokeWidth       = 0.5
	HoverStrokeWidth  = 2.0
	TooltipOffsetX    = 10.0
	TooltipOffsetY    = -20.0
	DefaultCanvasSize = 600
)

// Shape is one rendered district.
type Shape struct {
	Key         string  `json:"key"`
	District    int     `json:"district"`
	Label       string  `json:"label"`
	Crimes      int     `json:"crimes"`
	Fill        string  `json:"fill"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"stroke_width"`
	Path        string  `json:"path"`
}

// Tooltip is the hover overlay.
type Tooltip struct {
	Visible  bool         `json:"visible"`
	Lines    []string     `json:"lines,omitempty"`
	Position domain.Point `json:"position"`
}

// EventHandler receives the events a Surface forwards from its month
// selector and its district shapes.
type EventHandler interface {
	OnMonthChange(month string)
	OnHover(key string)
	OnPointerMove(p domain.Point)
	OnHoverEnd(key string)
}

// Surface is the rendering target the Controller drives. Implementations
// route selector changes and pointer events on shapes to the bound handler.
type Surface interface {
	// SetMonthOptions fills the month selector and binds its change events.
	SetMonthOptions(months []string, selected string, h EventHandler)
	// SetSelected updates the selector's current value without firing events.
	SetSelected(month string)
	// JoinShapes replaces the rendered shapes by key: new keys enter,
	// existing keys are updated in place, missing keys exit. Pointer events
	// on every joined shape are bound to h.
	JoinShapes(shapes []Shape, h EventHandler)
	SetStrokeWidth(key string, width float64)
	ShowTooltip(lines []string)
	MoveTooltip(p domain.Point)
	HideTooltip()
}
