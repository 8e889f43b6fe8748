package domain

import (
	"errors"
	"maps"
	"slices"
	"time"
)

// MonthLayout is the time layout of month keys.
const MonthLayout = "2006-01"

// ErrInvalidInput is returned when the dataset or the boundaries cannot back a map.
var ErrInvalidInput = errors.New("invalid input")

// DistrictRecord is one district's tally for one month.
type DistrictRecord struct {
	District    int    `json:"District"`
	MonthYear   string `json:"Month_Year,omitempty"`
	TotalCrimes int    `json:"total_crimes"`

	// Breakdowns carried over from the preparation step.
	Domestic                   int     `json:"Domestic,omitempty"`
	Arrest                     int     `json:"Arrest,omitempty"`
	DomesticPercentage         float64 `json:"domestic_percentage,omitempty"`
	ArrestPercentage           float64 `json:"arrest_percentage,omitempty"`
	WeaponsViolationCount      int     `json:"weapons_violation_count,omitempty"`
	NarcoticsCount             int     `json:"narcotics_count,omitempty"`
	CriminalSexualAssaultCount int     `json:"criminal_sexual_assault_count,omitempty"`
}

// MonthlyDataset maps a month key ("YYYY-MM") to that month's district records.
type MonthlyDataset map[string][]DistrictRecord

// Months returns the month keys in ascending order.
func (d MonthlyDataset) Months() []string {
	return slices.Sorted(maps.Keys(d))
}

// ValidMonth reports whether s is a well-formed "YYYY-MM" key.
func ValidMonth(s string) bool {
	_, err := time.Parse(MonthLayout, s)
	return err == nil
}

// Has reports whether month is a key of the dataset.
func (d MonthlyDataset) Has(month string) bool {
	_, ok := d[month]
	return ok
}

// Record returns the record for district in month. When a district appears
// more than once the last record wins, matching [BuildLookup].
func (d MonthlyDataset) Record(month string, district int) (DistrictRecord, bool) {
	records := d[month]
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].District == district {
			return records[i], true
		}
	}
	return DistrictRecord{}, false
}

// Lookup is the crime total per district for a single month.
type Lookup struct {
	month      string
	hasMonth   bool
	totals     map[int]int
	max        int
	duplicates []int
}

// BuildLookup tallies month's records in one pass. A month that is not in the
// dataset yields an empty lookup.
func BuildLookup(d MonthlyDataset, month string) Lookup {
	records, ok := d[month]
	l := Lookup{
		month:    month,
		hasMonth: ok,
		totals:   make(map[int]int, len(records)),
	}
	for _, r := range records {
		if _, seen := l.totals[r.District]; seen {
			l.duplicates = append(l.duplicates, r.District)
		}
		l.totals[r.District] = r.TotalCrimes
	}
	// Max runs over final values so a later duplicate can lower it.
	for _, v := range l.totals {
		if v > l.max {
			l.max = v
		}
	}
	return l
}

// Month is the month the lookup was built for.
func (l Lookup) Month() string { return l.month }

// HasMonth reports whether the month existed in the dataset.
func (l Lookup) HasMonth() bool { return l.hasMonth }

// Crimes returns the district's total, or 0 when the district has no record.
func (l Lookup) Crimes(district int) int { return l.totals[district] }

// Has reports whether the district has a record this month.
func (l Lookup) Has(district int) bool {
	_, ok := l.totals[district]
	return ok
}

// Max is the largest total this month, 0 when there are no records.
func (l Lookup) Max() int { return l.max }

// Len is the number of distinct districts with a record.
func (l Lookup) Len() int { return len(l.totals) }

// Duplicates lists districts that appeared more than once, in scan order.
func (l Lookup) Duplicates() []int { return l.duplicates }
