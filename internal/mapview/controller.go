package mapview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/crime-map-service/internal/domain"
	"github.com/couchcryptid/crime-map-service/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	geojson "github.com/paulmach/go.geojson"
)

// Observer is notified after every redraw. Observe must not block.
type Observer interface {
	Observe(event domain.RedrawEvent)
}

// Options tunes a Controller. Zero values select the defaults.
type Options struct {
	CanvasSize int
	Ramp       *domain.Ramp
	Clock      clockwork.Clock
	ViewID     string
	Observer   Observer
}

// Frame is one month composed against the boundaries, before it reaches a Surface.
type Frame struct {
	Month     string
	HasData   bool
	DomainMax int
	Shapes    []Shape
	Lookup    domain.Lookup
}

// layer holds the per-feature values that do not depend on the month.
type layer struct {
	keys        []string
	districts   []int
	hasDistrict []bool
	labels      []string
	paths       []string
	index       map[string]int
}

// Controller keeps a Surface showing the selected month's choropleth.
// It implements EventHandler; its methods are safe for concurrent use and
// each call runs to completion before the next one starts.
type Controller struct {
	surface Surface
	size    int
	ramp    *domain.Ramp
	clock   clockwork.Clock
	viewID  string
	obs     Observer
	logger  *slog.Logger
	metrics *observability.Metrics

	mu          sync.Mutex
	dataset     domain.MonthlyDataset
	months      []string
	layer       *layer
	current     string
	lookup      domain.Lookup
	initialized atomic.Bool
}

// New creates a Controller drawing onto surface. Call Initialize before use.
func New(surface Surface, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Controller {
	c := &Controller{
		surface: surface,
		size:    opts.CanvasSize,
		ramp:    opts.Ramp,
		clock:   opts.Clock,
		viewID:  opts.ViewID,
		obs:     opts.Observer,
		logger:  logger,
		metrics: metrics,
	}
	if c.size <= 0 {
		c.size = DefaultCanvasSize
	}
	if c.ramp == nil {
		c.ramp = domain.DefaultRamp
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	if c.viewID == "" {
		c.viewID = uuid.NewString()
	}
	return c
}

// Initialize loads the dataset and boundaries, fills the month selector,
// selects the earliest month and draws it. It fails with
// domain.ErrInvalidInput when either input is empty, in which case nothing
// is drawn.
func (c *Controller) Initialize(dataset domain.MonthlyDataset, features *geojson.FeatureCollection) error {
	if len(dataset) == 0 {
		return fmt.Errorf("%w: dataset has no months", domain.ErrInvalidInput)
	}
	if features == nil || len(features.Features) == 0 {
		return fmt.Errorf("%w: feature collection is empty", domain.ErrInvalidInput)
	}

	size := float64(c.size)
	projection, err := domain.FitSize(size, size, features)
	if err != nil {
		return fmt.Errorf("fit projection: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.dataset = dataset
	c.months = dataset.Months()
	c.layer = buildLayer(features, projection)
	c.current = c.months[0]

	c.surface.SetMonthOptions(c.months, c.current, c)
	c.surface.HideTooltip()
	c.redrawLocked(c.current, domain.TriggerInitial)
	c.initialized.Store(true)

	c.logger.Info("map initialized",
		"months", len(c.months),
		"first_month", c.months[0],
		"last_month", c.months[len(c.months)-1],
		"features", len(c.layer.keys),
		"scale", projection.Scale(),
	)
	return nil
}

func buildLayer(fc *geojson.FeatureCollection, p domain.Projection) *layer {
	n := len(fc.Features)
	l := &layer{
		keys:        domain.FeatureKeys(fc),
		districts:   make([]int, n),
		hasDistrict: make([]bool, n),
		labels:      make([]string, n),
		paths:       make([]string, n),
		index:       make(map[string]int, n),
	}
	for i, f := range fc.Features {
		l.districts[i], l.hasDistrict[i] = domain.DistrictOf(f)
		l.labels[i] = domain.DistrictLabel(f)
		if f != nil {
			l.paths[i] = p.Path(f.Geometry)
		}
		l.index[l.keys[i]] = i
	}
	return l
}

// CheckReadiness returns nil once the map has been initialized.
func (c *Controller) CheckReadiness(_ context.Context) error {
	if !c.initialized.Load() {
		return errors.New("map has not been initialized")
	}
	return nil
}

// CurrentMonth is the selected month.
func (c *Controller) CurrentMonth() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Months returns the selectable months in ascending order.
func (c *Controller) Months() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.months)
}

// Record returns a district's full record for month.
func (c *Controller) Record(month string, district int) (domain.DistrictRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dataset.Record(month, district)
}

// Redraw recolors and rejoins every district for month. A month that is not
// in the dataset draws every district at the zero color.
func (c *Controller) Redraw(month string) Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized.Load() {
		c.logger.Warn("redraw before initialize", "month", month)
		return Frame{Month: month}
	}
	return c.redrawLocked(month, domain.TriggerRedraw)
}

func (c *Controller) redrawLocked(month string, trigger domain.Trigger) Frame {
	start := c.clock.Now()

	frame := c.compose(month)
	c.surface.JoinShapes(frame.Shapes, c)
	c.lookup = frame.Lookup

	c.metrics.Redraws.WithLabelValues(string(trigger)).Inc()
	c.metrics.RedrawDuration.Observe(c.clock.Since(start).Seconds())
	c.metrics.FeaturesRendered.Set(float64(len(frame.Shapes)))

	if !frame.Lookup.HasMonth() {
		c.logger.Warn("month not in dataset, drawing zero values", "month", month)
	}
	if dups := frame.Lookup.Duplicates(); len(dups) > 0 {
		c.logger.Warn("duplicate district records, last one wins", "month", month, "districts", dups)
	}
	c.logger.Debug("map redrawn",
		"month", month,
		"trigger", trigger,
		"domain_max", frame.DomainMax,
		"shapes", len(frame.Shapes),
	)

	if c.obs != nil {
		c.obs.Observe(domain.RedrawEvent{
			ID:                uuid.NewString(),
			ViewID:            c.viewID,
			Trigger:           trigger,
			Month:             month,
			HasData:           frame.HasData,
			DomainMax:         frame.DomainMax,
			Features:          len(frame.Shapes),
			DistrictsWithData: frame.Lookup.Len(),
			RenderedAt:        start.UTC(),
		})
	}
	return frame
}

// compose builds the shapes for month without touching the Surface.
func (c *Controller) compose(month string) Frame {
	lookup := domain.BuildLookup(c.dataset, month)
	scale := domain.NewColorScale(c.ramp, lookup.Max())

	shapes := make([]Shape, len(c.layer.keys))
	for i, key := range c.layer.keys {
		crimes := 0
		if c.layer.hasDistrict[i] {
			crimes = lookup.Crimes(c.layer.districts[i])
		}
		shapes[i] = Shape{
			Key:         key,
			District:    c.layer.districts[i],
			Label:       c.layer.labels[i],
			Crimes:      crimes,
			Fill:        scale.Color(crimes).Hex(),
			Stroke:      StrokeColor,
			StrokeWidth: StrokeWidth,
			Path:        c.layer.paths[i],
		}
	}
	return Frame{
		Month:     month,
		HasData:   lookup.Len() > 0,
		DomainMax: lookup.Max(),
		Shapes:    shapes,
		Lookup:    lookup,
	}
}

// Preview composes month into a standalone scene state without changing the
// selection or the Surface. It reports false for months outside the dataset.
func (c *Controller) Preview(month string) (SceneState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized.Load() || !c.dataset.Has(month) {
		return SceneState{}, false
	}
	frame := c.compose(month)
	return SceneState{
		Width:    c.size,
		Height:   c.size,
		Months:   slices.Clone(c.months),
		Selected: month,
		Shapes:   frame.Shapes,
	}, true
}

// OnMonthChange selects month and redraws. Unknown months draw zero values.
func (c *Controller) OnMonthChange(month string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized.Load() {
		return
	}
	c.current = month
	c.surface.SetSelected(month)
	c.metrics.MonthChanges.Inc()
	c.redrawLocked(month, domain.TriggerMonthChange)
}

// OnHover shows the tooltip for the shape with key and thickens its outline.
func (c *Controller) OnHover(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.shapeIndex(key)
	if !ok {
		c.logger.Debug("hover on unknown shape", "key", key)
		return
	}
	crimes := 0
	if c.layer.hasDistrict[i] {
		crimes = c.lookup.Crimes(c.layer.districts[i])
	}
	c.surface.ShowTooltip(TooltipLines(c.layer.labels[i], crimes, c.lookup.Month()))
	c.surface.SetStrokeWidth(key, HoverStrokeWidth)
	c.metrics.HoverEvents.WithLabelValues("enter").Inc()
}

// OnPointerMove keeps the tooltip just off the pointer.
func (c *Controller) OnPointerMove(p domain.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.surface.MoveTooltip(domain.Point{X: p.X + TooltipOffsetX, Y: p.Y + TooltipOffsetY})
	c.metrics.HoverEvents.WithLabelValues("move").Inc()
}

// OnHoverEnd hides the tooltip and restores the shape's outline.
func (c *Controller) OnHoverEnd(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.surface.HideTooltip()
	if _, ok := c.shapeIndex(key); ok {
		c.surface.SetStrokeWidth(key, StrokeWidth)
	}
	c.metrics.HoverEvents.WithLabelValues("leave").Inc()
}

func (c *Controller) shapeIndex(key string) (int, bool) {
	if c.layer == nil {
		return 0, false
	}
	i, ok := c.layer.index[key]
	return i, ok
}

// TooltipLines is the tooltip text for a district.
func TooltipLines(label string, crimes int, month string) []string {
	return []string{
		"District " + label,
		"Crimes: " + strconv.Itoa(crimes),
		"Month: " + month,
	}
}
