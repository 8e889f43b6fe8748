package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	geojson "github.com/paulmach/go.geojson"
)

// DistrictProperty is the feature property holding the police district number.
const DistrictProperty = "dist_num"

// DistrictOf resolves a feature's district number from its dist_num property.
// Strings are read like a lenient integer parse: leading whitespace and an
// optional sign, then the leading digits ("011" -> 11, "7A" -> 7).
func DistrictOf(f *geojson.Feature) (int, bool) {
	if f == nil || f.Properties == nil {
		return 0, false
	}
	switch v := f.Properties[DistrictProperty].(type) {
	case string:
		return parseLeadingInt(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int(math.Trunc(v)), true
	case int:
		return v, true
	case json.Number:
		return parseLeadingInt(v.String())
	}
	return 0, false
}

// DistrictLabel is the text used for the district in tooltips. Unparsable
// values fall back to the raw property.
func DistrictLabel(f *geojson.Feature) string {
	if d, ok := DistrictOf(f); ok {
		return strconv.Itoa(d)
	}
	if f == nil || f.Properties == nil {
		return "unknown"
	}
	if v, ok := f.Properties[DistrictProperty]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return "unknown"
}

func parseLeadingInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\r\n")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// FeatureKeys returns a stable identity per feature for keyed joins. Feature
// ids are used when every feature has a distinct one; otherwise keys fall back
// to the feature's position in the collection.
func FeatureKeys(fc *geojson.FeatureCollection) []string {
	keys := make([]string, len(fc.Features))
	seen := make(map[string]struct{}, len(fc.Features))
	useIDs := true
	for i, f := range fc.Features {
		if f == nil || f.ID == nil {
			useIDs = false
			break
		}
		k := fmt.Sprint(f.ID)
		if _, dup := seen[k]; dup || k == "" {
			useIDs = false
			break
		}
		seen[k] = struct{}{}
		keys[i] = k
	}
	if !useIDs {
		for i := range keys {
			keys[i] = "feature-" + strconv.Itoa(i)
		}
	}
	return keys
}

// Bounds is an axis-aligned bounding box in source coordinates.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// CollectionBounds returns the bounds of every polygon vertex in fc. It
// reports false when the collection carries no coordinates.
func CollectionBounds(fc *geojson.FeatureCollection) (Bounds, bool) {
	b := Bounds{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	found := false
	for _, f := range fc.Features {
		if f == nil {
			continue
		}
		for _, poly := range polygons(f.Geometry) {
			for _, ring := range poly {
				for _, pt := range ring {
					if len(pt) < 2 {
						continue
					}
					found = true
					b.MinX = math.Min(b.MinX, pt[0])
					b.MaxX = math.Max(b.MaxX, pt[0])
					b.MinY = math.Min(b.MinY, pt[1])
					b.MaxY = math.Max(b.MaxY, pt[1])
				}
			}
		}
	}
	return b, found
}

// polygons flattens Polygon and MultiPolygon geometries into a list of
// polygons. Other geometry types contribute nothing.
func polygons(g *geojson.Geometry) [][][][]float64 {
	if g == nil {
		return nil
	}
	switch {
	case g.IsPolygon():
		return [][][][]float64{g.Polygon}
	case g.IsMultiPolygon():
		return g.MultiPolygon
	case g.IsCollection():
		var out [][][][]float64
		for _, child := range g.Geometries {
			out = append(out, polygons(child)...)
		}
		return out
	}
	return nil
}
