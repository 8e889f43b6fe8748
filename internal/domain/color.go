package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/interp"
)

// OrRd is the nine-class ColorBrewer orange-red sequential scheme, light to dark.
var OrRd = []string{
	"#fff7ec", "#fee8c8", "#fdd49e", "#fdbb84", "#fc8d59",
	"#ef6548", "#d7301f", "#b30000", "#7f0000",
}

// Color is an opaque sRGB color.
type Color struct {
	R, G, B uint8
}

// Hex formats the color as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseHex parses "#rrggbb" or "rrggbb".
func ParseHex(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return Color{}, fmt.Errorf("parse color %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Ramp interpolates linearly, per channel, across evenly spaced color stops.
type Ramp struct {
	r, g, b interp.PiecewiseLinear
	first   Color
}

// NewRamp builds a ramp from at least two hex color stops.
func NewRamp(stops []string) (*Ramp, error) {
	if len(stops) < 2 {
		return nil, fmt.Errorf("color ramp needs at least 2 stops, got %d", len(stops))
	}

	xs := make([]float64, len(stops))
	rs := make([]float64, len(stops))
	gs := make([]float64, len(stops))
	bs := make([]float64, len(stops))
	var first Color
	for i, s := range stops {
		c, err := ParseHex(s)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			first = c
		}
		xs[i] = float64(i) / float64(len(stops)-1)
		rs[i], gs[i], bs[i] = float64(c.R), float64(c.G), float64(c.B)
	}

	ramp := &Ramp{first: first}
	if err := ramp.r.Fit(xs, rs); err != nil {
		return nil, fmt.Errorf("fit red channel: %w", err)
	}
	if err := ramp.g.Fit(xs, gs); err != nil {
		return nil, fmt.Errorf("fit green channel: %w", err)
	}
	if err := ramp.b.Fit(xs, bs); err != nil {
		return nil, fmt.Errorf("fit blue channel: %w", err)
	}
	return ramp, nil
}

// MustRamp is NewRamp for package-level schemes; it panics on a bad scheme.
func MustRamp(stops []string) *Ramp {
	r, err := NewRamp(stops)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultRamp is the OrRd ramp used by the map.
var DefaultRamp = MustRamp(OrRd)

// At returns the color at t, clamped to [0, 1]. NaN maps to the first stop.
func (r *Ramp) At(t float64) Color {
	if math.IsNaN(t) || t <= 0 {
		return r.first
	}
	if t > 1 {
		t = 1
	}
	return Color{
		R: channel(r.r.Predict(t)),
		G: channel(r.g.Predict(t)),
		B: channel(r.b.Predict(t)),
	}
}

func channel(v float64) uint8 {
	v = math.Round(v)
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}

// ColorScale maps a crime count in the domain [0, max] onto a ramp.
// A collapsed domain (max <= 0) maps every count to the ramp's zero color.
type ColorScale struct {
	ramp *Ramp
	max  float64
}

// NewColorScale returns a scale with domain [0, max].
func NewColorScale(ramp *Ramp, max int) ColorScale {
	if ramp == nil {
		ramp = DefaultRamp
	}
	return ColorScale{ramp: ramp, max: float64(max)}
}

// Domain returns the scale's lower and upper bounds.
func (s ColorScale) Domain() (float64, float64) { return 0, s.max }

// Degenerate reports whether the domain has collapsed to a single point.
func (s ColorScale) Degenerate() bool { return s.max <= 0 }

// Color returns the fill for count.
func (s ColorScale) Color(count int) Color {
	if s.Degenerate() {
		return s.Zero()
	}
	return s.ramp.At(float64(count) / s.max)
}

// Zero is the color for a count of zero.
func (s ColorScale) Zero() Color { return s.ramp.At(0) }
