// Command validate checks the map inputs for integrity problems before they
// are served: malformed month keys, duplicate or negative district records,
// boundaries without a usable district number, and districts that appear on
// only one side of the data/geometry pair.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -dataset data/map_pie_data_monthly.json \
//	  -geojson data/police_districts.geojson
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sort"

	"github.com/couchcryptid/crime-map-service/internal/adapter/file"
	"github.com/couchcryptid/crime-map-service/internal/domain"
	"github.com/couchcryptid/crime-map-service/internal/mapview"
	"github.com/couchcryptid/crime-map-service/internal/observability"
	geojson "github.com/paulmach/go.geojson"
	"github.com/prometheus/client_golang/prometheus"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
	notes  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	datasetPath := flag.String("dataset", "data/map_pie_data_monthly.json", "path to the monthly dataset JSON")
	geojsonPath := flag.String("geojson", "data/police_districts.geojson", "path to the district boundaries")
	logLevel := flag.String("log-level", "warn", "log level for the render phase: debug, info, warn or error")
	flag.Parse()

	if *datasetPath == "" || *geojsonPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(observability.NewCLILogger(*logLevel), *datasetPath, *geojsonPath); code != 0 {
		os.Exit(code)
	}
}

func run(logger *slog.Logger, datasetPath, geojsonPath string) int {
	fmt.Println("=== Crime Map Input Validation ===")
	fmt.Println()

	dataset, err := file.LoadDataset(datasetPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	features, err := file.LoadFeatures(geojsonPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	phases := validate(logger, dataset, features)

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Inputs: %d months, %d records, %d boundary features\n",
		len(dataset), countRecords(dataset), len(features.Features))

	for _, p := range phases {
		if p.passed() && len(p.notes) == 0 {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
		for _, n := range p.notes {
			fmt.Printf("  note: %s\n", n)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validate(logger *slog.Logger, dataset domain.MonthlyDataset, features *geojson.FeatureCollection) []*phase {
	return []*phase{
		validateMonths(dataset),
		validateRecords(dataset),
		validateBoundaries(features),
		validateCoverage(dataset, features),
		validateRender(logger, dataset, features),
	}
}

func countRecords(d domain.MonthlyDataset) int {
	n := 0
	for _, recs := range d {
		n += len(recs)
	}
	return n
}

// ── Phase 1: Month keys ──

func validateMonths(d domain.MonthlyDataset) *phase {
	p := &phase{name: "Phase 1: Month keys"}
	if len(d) == 0 {
		p.errorf("dataset has no months")
		return p
	}
	for _, month := range d.Months() {
		if !domain.ValidMonth(month) {
			p.errorf("month key %q is not YYYY-MM", month)
		}
		for i, r := range d[month] {
			if r.MonthYear != "" && r.MonthYear != month {
				p.errorf("%s record %d: Month_Year is %q", month, i, r.MonthYear)
			}
		}
		if len(d[month]) == 0 {
			p.notef("%s has no records and renders at the zero color", month)
		}
	}
	return p
}

// ── Phase 2: District records ──

func validateRecords(d domain.MonthlyDataset) *phase {
	p := &phase{name: "Phase 2: District records"}
	for _, month := range d.Months() {
		for i, r := range d[month] {
			if r.TotalCrimes < 0 {
				p.errorf("%s district %d: negative total_crimes %d", month, r.District, r.TotalCrimes)
			}
			if r.TotalCrimes >= 0 && (r.Domestic > r.TotalCrimes || r.Arrest > r.TotalCrimes) {
				p.errorf("%s district %d: breakdown exceeds total (domestic=%d arrest=%d total=%d)",
					month, r.District, r.Domestic, r.Arrest, r.TotalCrimes)
			}
			if !percentage(r.DomesticPercentage) || !percentage(r.ArrestPercentage) {
				p.errorf("%s record %d: percentage outside [0, 100]", month, i)
			}
		}
		if dups := domain.BuildLookup(d, month).Duplicates(); len(dups) > 0 {
			p.errorf("%s: duplicate records for districts %v (last one wins)", month, dups)
		}
	}
	return p
}

func percentage(v float64) bool { return v >= 0 && v <= 100 }

// ── Phase 3: Boundaries ──

func validateBoundaries(fc *geojson.FeatureCollection) *phase {
	p := &phase{name: "Phase 3: Boundaries (GeoJSON)"}
	if len(fc.Features) == 0 {
		p.errorf("feature collection is empty")
		return p
	}
	seen := make(map[int]int)
	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			p.errorf("feature %d has no geometry", i)
			continue
		}
		if !f.Geometry.IsPolygon() && !f.Geometry.IsMultiPolygon() {
			p.errorf("feature %d: geometry %s is not a polygon", i, f.Geometry.Type)
		}
		d, ok := domain.DistrictOf(f)
		if !ok {
			p.errorf("feature %d: %s %q is not an integer", i, domain.DistrictProperty, domain.DistrictLabel(f))
			continue
		}
		if prev, dup := seen[d]; dup {
			p.notef("district %d has several features (%d and %d)", d, prev, i)
		}
		seen[d] = i
	}
	return p
}

// ── Phase 4: Coverage ──
// Every district with data must have a boundary, otherwise it is never drawn.

func validateCoverage(d domain.MonthlyDataset, fc *geojson.FeatureCollection) *phase {
	p := &phase{name: "Phase 4: Data / boundary coverage"}

	drawn := make(map[int]bool)
	for _, f := range fc.Features {
		if n, ok := domain.DistrictOf(f); ok {
			drawn[n] = true
		}
	}
	withData := make(map[int]bool)
	for _, recs := range d {
		for _, r := range recs {
			withData[r.District] = true
		}
	}

	for _, n := range sortedKeys(withData) {
		if !drawn[n] {
			p.errorf("district %d has records but no boundary", n)
		}
	}
	for _, n := range sortedKeys(drawn) {
		if !withData[n] {
			p.notef("district %d has a boundary but no records in any month", n)
		}
	}
	return p
}

func sortedKeys(m map[int]bool) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// ── Phase 5: Render ──
// Every month must compose into one shape per feature with its max at the top color.

func validateRender(logger *slog.Logger, d domain.MonthlyDataset, fc *geojson.FeatureCollection) *phase {
	p := &phase{name: "Phase 5: Render every month"}

	scene := mapview.NewScene(mapview.DefaultCanvasSize, mapview.DefaultCanvasSize)
	ctrl := mapview.New(scene, mapview.Options{}, logger, observability.NewMetricsWithRegistry(prometheus.NewRegistry()))
	if err := ctrl.Initialize(d, fc); err != nil {
		p.errorf("initialize: %v", err)
		return p
	}

	top := domain.DefaultRamp.At(1).Hex()
	for _, month := range ctrl.Months() {
		st, ok := ctrl.Preview(month)
		if !ok {
			p.errorf("%s: preview failed", month)
			continue
		}
		if len(st.Shapes) != len(fc.Features) {
			p.errorf("%s: %d shapes for %d features", month, len(st.Shapes), len(fc.Features))
		}
		lookup := domain.BuildLookup(d, month)
		if lookup.Max() == 0 {
			continue
		}
		if !slices.ContainsFunc(st.Shapes, func(s mapview.Shape) bool { return s.Fill == top }) {
			p.notef("%s: the busiest district (%d crimes) has no boundary", month, lookup.Max())
		}
	}
	return p
}
