package analytics

import (
	"time"

	"spendlens/internal/core"
)

// weekdayOrder fixes the bucket identity: Monday first, Sunday last.
var weekdayOrder = [7]time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
	time.Sunday,
}

// WeekdayProfile sums amounts per weekday over the full record set and
// always returns exactly 7 buckets, Monday first, including zero
// buckets for weekdays with no spending.
func (e *Engine) WeekdayProfile(records []core.Expense) ([]WeekdayTotal, error) {
	if len(records) == 0 {
		return nil, ErrEmptyLedger
	}

	totals := make(map[time.Weekday]core.Money, 7)
	for _, r := range records {
		wd := r.Date.Weekday()
		totals[wd] = totals[wd].Add(r.Amount)
	}

	out := make([]WeekdayTotal, 0, 7)
	for _, wd := range weekdayOrder {
		out = append(out, WeekdayTotal{Weekday: wd, Total: totals[wd]})
	}
	return out, nil
}
