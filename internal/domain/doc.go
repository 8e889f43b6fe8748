// Package domain models monthly crime tallies by police district and the
// pieces needed to shade district boundaries by those tallies.
//
// # Data Source
//
// Monthly tallies come from the offline preparation step that aggregates the
// city's incident CSV into one record per (District, Month_Year). Its output,
// map_pie_data_monthly.json, nests the per-month records under
// "monthly_data":
//
//	{"monthly_data": {"2023-01": [{"District": 1, "total_crimes": 10, ...}]}}
//
// District boundaries are a GeoJSON FeatureCollection of Polygon and
// MultiPolygon features. Each feature carries the district number in the
// "dist_num" property, usually as a string ("1", "011").
//
// # Conventions
//
// Month keys are "YYYY-MM" and sort lexicographically into calendar order.
//
// A district with no record for a month has zero crimes for that month. This
// is the normal case for sparse months, not an error.
//
// Duplicate records for the same district within one month are a data
// quality issue. The last record wins and the district is reported by
// [Lookup.Duplicates].
//
// # Color
//
// Counts are shaded on the nine-class ColorBrewer OrRd ramp. The color domain
// is [0, max] where max is the largest tally of the displayed month. A month
// whose max is zero (or that has no records at all) collapses the domain; every
// district then takes the ramp's zero color. See [ColorScale].
//
// # Projection
//
// Boundaries are drawn with an identity projection: source coordinates are
// scaled uniformly and translated so the collection fits the canvas, with the
// Y axis reflected so north is up. See [FitSize].
package domain
