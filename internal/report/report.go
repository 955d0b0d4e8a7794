// Package report renders aggregated spending series. It only consumes
// (label, value) pairs and preformatted text lines; all aggregation
// happens upstream, so rendering has no analytics logic of its own.
package report

import "time"

// Point is one labeled value in a series. Values are decimal units,
// not cents, because they are display-only at this point.
type Point struct {
	Label string
	Value float64
}

// Data is everything a report needs, already aggregated and formatted.
type Data struct {
	User        string
	GeneratedAt time.Time
	Categories  []Point  // 30-day category totals, ranked
	Weekdays    []Point  // Monday-first weekday totals
	TrendTotal  float64  // sum over the trend window
	TrendDays   int      // length of the trend window
	Recurring   []string // preformatted recurring-charge lines
	Insights    []string
	Largest     []Point // biggest transactions: label is "date category"
}
