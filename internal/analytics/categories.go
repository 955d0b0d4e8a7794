package analytics

import (
	"sort"
	"strings"

	"spendlens/internal/core"
)

// categoryWindowDays is the fixed recent window for category rankings.
const categoryWindowDays = 30

// OtherBucket is the fold target for categories beyond top-K when
// Config.FoldOther is set. Folding is opt-in; the default behavior is
// plain truncation at K.
const OtherBucket = "Other"

// TopCategories groups the last 30 days of records by normalized
// category (case-insensitive, whitespace-collapsed), sums each group
// and returns the top k ordered by total descending, equal totals
// broken by name ascending. k <= 0 falls back to the configured
// default. The display name is the first-seen spelling of the label.
func (e *Engine) TopCategories(records []core.Expense, k int) ([]CategoryTotal, error) {
	if len(records) == 0 {
		return nil, ErrEmptyLedger
	}
	if k <= 0 {
		k = e.cfg.TopCategories
	}

	end := e.today()
	start := core.DateOf(end.AddDate(0, 0, -categoryWindowDays))

	totals := make(map[string]core.Money)
	display := make(map[string]string)
	for _, r := range records {
		if !inWindow(r.Date, start, end) {
			continue
		}
		key := core.NormalizeCategory(r.Category)
		if _, seen := display[key]; !seen {
			display[key] = strings.TrimSpace(r.Category)
		}
		totals[key] = totals[key].Add(r.Amount)
	}

	out := make([]CategoryTotal, 0, len(totals))
	for key, total := range totals {
		out = append(out, CategoryTotal{Name: display[key], Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total.Cents != out[j].Total.Cents {
			return out[i].Total.Cents > out[j].Total.Cents
		}
		return out[i].Name < out[j].Name
	})

	if len(out) <= k {
		return out, nil
	}
	if !e.cfg.FoldOther {
		return out[:k], nil
	}

	var folded core.Money
	for _, c := range out[k:] {
		folded = folded.Add(c.Total)
	}
	return append(out[:k:k], CategoryTotal{Name: OtherBucket, Total: folded}), nil
}

// recentTotal sums every record in the trailing 30-day window,
// regardless of category. Share-of-spending figures divide by this,
// never by a truncated ranking.
func (e *Engine) recentTotal(records []core.Expense) core.Money {
	end := e.today()
	start := core.DateOf(end.AddDate(0, 0, -categoryWindowDays))

	var total core.Money
	for _, r := range records {
		if inWindow(r.Date, start, end) {
			total = total.Add(r.Amount)
		}
	}
	return total
}
