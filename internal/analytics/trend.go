package analytics

import (
	"spendlens/internal/core"
)

// validMonths are the lookback windows the trend accepts.
var validMonths = map[int]bool{1: true, 3: true, 6: true, 12: true}

// DailyTrend sums amounts per calendar day over the last N months,
// N in {1, 3, 6, 12}. The series covers every day in
// [today-N months, today] inclusive; days with no spending carry a
// zero total so charts render continuous lines. Records on the same
// day are summed, records outside the window are excluded.
func (e *Engine) DailyTrend(records []core.Expense, months int) ([]DayTotal, error) {
	if !validMonths[months] {
		return nil, ErrInvalidWindow
	}
	if len(records) == 0 {
		return nil, ErrEmptyLedger
	}

	end := e.today()
	start := core.DateOf(end.AddDate(0, -months, 0))

	totals := make(map[string]core.Money)
	for _, r := range records {
		if !inWindow(r.Date, start, end) {
			continue
		}
		key := r.Date.String()
		totals[key] = totals[key].Add(r.Amount)
	}

	var out []DayTotal
	for d := start; !d.After(end.Time); d = d.Next() {
		out = append(out, DayTotal{Day: d, Total: totals[d.String()]})
	}
	return out, nil
}
