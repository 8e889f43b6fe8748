package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	geojson "github.com/paulmach/go.geojson"
)

// Point is a position on the canvas, in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Projection is a uniform scale plus translation of source coordinates onto
// the canvas, with the Y axis reflected so larger latitudes sit higher.
type Projection struct {
	k, tx, ty float64
}

// FitSize fits every feature of fc into a width x height canvas, centered,
// preserving aspect ratio.
func FitSize(width, height float64, fc *geojson.FeatureCollection) (Projection, error) {
	if width <= 0 || height <= 0 {
		return Projection{}, fmt.Errorf("%w: canvas %gx%g", ErrInvalidInput, width, height)
	}
	if fc == nil || len(fc.Features) == 0 {
		return Projection{}, fmt.Errorf("%w: feature collection is empty", ErrInvalidInput)
	}
	b, ok := CollectionBounds(fc)
	if !ok {
		return Projection{}, fmt.Errorf("%w: features carry no polygon coordinates", ErrInvalidInput)
	}

	dx, dy := b.MaxX-b.MinX, b.MaxY-b.MinY
	var k float64
	switch {
	case dx > 0 && dy > 0:
		k = math.Min(width/dx, height/dy)
	case dx > 0:
		k = width / dx
	case dy > 0:
		k = height / dy
	default:
		k = 1
	}

	// Reflected Y bounds are [-MaxY, -MinY].
	return Projection{
		k:  k,
		tx: (width - k*(b.MaxX+b.MinX)) / 2,
		ty: (height + k*(b.MaxY+b.MinY)) / 2,
	}, nil
}

// Scale is the projection's uniform scale factor.
func (p Projection) Scale() float64 { return p.k }

// Project maps a source coordinate onto the canvas.
func (p Projection) Project(x, y float64) Point {
	return Point{X: p.k*x + p.tx, Y: -p.k*y + p.ty}
}

// Path renders the geometry's polygons as SVG path data. Each ring becomes
// one "M...L...Z" subpath; a closing vertex that repeats the first is dropped.
// Geometries without polygons render as an empty path.
func (p Projection) Path(g *geojson.Geometry) string {
	var sb strings.Builder
	for _, poly := range polygons(g) {
		for _, ring := range poly {
			p.writeRing(&sb, ring)
		}
	}
	return sb.String()
}

func (p Projection) writeRing(sb *strings.Builder, ring [][]float64) {
	n := len(ring)
	if n > 1 && samePoint(ring[0], ring[n-1]) {
		n--
	}
	wrote := 0
	for i := 0; i < n; i++ {
		if len(ring[i]) < 2 {
			continue
		}
		pt := p.Project(ring[i][0], ring[i][1])
		if wrote == 0 {
			sb.WriteByte('M')
		} else {
			sb.WriteByte('L')
		}
		sb.WriteString(formatCoord(pt.X))
		sb.WriteByte(',')
		sb.WriteString(formatCoord(pt.Y))
		wrote++
	}
	if wrote > 0 {
		sb.WriteByte('Z')
	}
}

func samePoint(a, b []float64) bool {
	return len(a) >= 2 && len(b) >= 2 && a[0] == b[0] && a[1] == b[1]
}

// formatCoord rounds to three decimals and trims trailing zeros.
func formatCoord(v float64) string {
	r := math.Round(v*1000) / 1000
	if r == 0 {
		r = 0 // drop the sign of negative zero
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
