// Package file loads the map's two inputs from disk: the prepared monthly
// dataset and the district boundary GeoJSON.
package file

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/couchcryptid/crime-map-service/internal/domain"
	geojson "github.com/paulmach/go.geojson"
)

// monthlyDataKey is the field of the full preparation output that holds the
// per-month records. Other fields of that document are ignored.
const monthlyDataKey = "monthly_data"

// wireRecord accepts numbers written as integers or floats ("7" or "7.0").
type wireRecord struct {
	District                   json.Number `json:"District"`
	MonthYear                  string      `json:"Month_Year"`
	TotalCrimes                json.Number `json:"total_crimes"`
	Domestic                   json.Number `json:"Domestic"`
	Arrest                     json.Number `json:"Arrest"`
	DomesticPercentage         *float64    `json:"domestic_percentage"`
	ArrestPercentage           *float64    `json:"arrest_percentage"`
	WeaponsViolationCount      json.Number `json:"weapons_violation_count"`
	NarcoticsCount             json.Number `json:"narcotics_count"`
	CriminalSexualAssaultCount json.Number `json:"criminal_sexual_assault_count"`
}

func (w wireRecord) record() (domain.DistrictRecord, error) {
	district, err := toInt(w.District)
	if err != nil {
		return domain.DistrictRecord{}, fmt.Errorf("District: %w", err)
	}
	total, err := toInt(w.TotalCrimes)
	if err != nil {
		return domain.DistrictRecord{}, fmt.Errorf("total_crimes: %w", err)
	}
	r := domain.DistrictRecord{
		District:    district,
		MonthYear:   w.MonthYear,
		TotalCrimes: total,
	}
	// Breakdown fields are informational; unreadable values decode as zero.
	r.Domestic, _ = toInt(w.Domestic)
	r.Arrest, _ = toInt(w.Arrest)
	r.WeaponsViolationCount, _ = toInt(w.WeaponsViolationCount)
	r.NarcoticsCount, _ = toInt(w.NarcoticsCount)
	r.CriminalSexualAssaultCount, _ = toInt(w.CriminalSexualAssaultCount)
	if w.DomesticPercentage != nil {
		r.DomesticPercentage = *w.DomesticPercentage
	}
	if w.ArrestPercentage != nil {
		r.ArrestPercentage = *w.ArrestPercentage
	}
	return r, nil
}

func toInt(n json.Number) (int, error) {
	if n == "" {
		return 0, nil
	}
	if i, err := n.Int64(); err == nil {
		return int(i), nil
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a number: %q", n.String())
	}
	return int(math.Trunc(f)), nil
}

// LoadDataset reads the monthly dataset at path.
func LoadDataset(path string) (domain.MonthlyDataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	d, err := DecodeDataset(f)
	if err != nil {
		return nil, fmt.Errorf("decode dataset %s: %w", path, err)
	}
	return d, nil
}

// DecodeDataset parses either the full preparation output, whose
// "monthly_data" field maps months to records, or that map on its own.
func DecodeDataset(r io.Reader) (domain.MonthlyDataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("dataset must be a JSON object: %w", err)
	}
	if nested, ok := top[monthlyDataKey]; ok {
		top = nil
		if err := json.Unmarshal(nested, &top); err != nil {
			return nil, fmt.Errorf("%s must be an object keyed by month: %w", monthlyDataKey, err)
		}
	}

	out := make(domain.MonthlyDataset, len(top))
	for month, raw := range top {
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			out[month] = []domain.DistrictRecord{}
			continue
		}
		var wire []wireRecord
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, fmt.Errorf("month %q: records must be an array: %w", month, err)
		}
		records := make([]domain.DistrictRecord, 0, len(wire))
		for i, w := range wire {
			rec, err := w.record()
			if err != nil {
				return nil, fmt.Errorf("month %q record %d: %w", month, i, err)
			}
			records = append(records, rec)
		}
		out[month] = records
	}
	return out, nil
}

// LoadFeatures reads the district boundaries at path.
func LoadFeatures(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read boundaries: %w", err)
	}
	fc, err := DecodeFeatures(data)
	if err != nil {
		return nil, fmt.Errorf("decode boundaries %s: %w", path, err)
	}
	return fc, nil
}

// DecodeFeatures parses a GeoJSON FeatureCollection.
func DecodeFeatures(data []byte) (*geojson.FeatureCollection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("want a FeatureCollection, got %q", fc.Type)
	}
	return fc, nil
}
