package analytics

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"spendlens/internal/core"
)

// Insight kinds, stable identifiers for the HTTP layer and reports.
const (
	InsightEmpty       = "empty"
	InsightTopCategory = "top_category"
	InsightWeekDelta   = "week_over_week"
	InsightRecurring   = "recurring"
	InsightLargeTxn    = "large_transaction"
	InsightWeeklyLimit = "weekly_limit"
)

const noExpensesText = "No expenses recorded yet. Add some expenses or upload a bank CSV to get insights."

// WeekOverWeekChange compares the trailing 7 days of spending to the
// preceding 7 days and returns the percentage change. It returns
// ErrInsufficientHistory when the ledger covers fewer than 14 days or
// the preceding week has no spending to compare against.
func (e *Engine) WeekOverWeekChange(records []core.Expense) (float64, error) {
	if len(records) == 0 {
		return 0, ErrEmptyLedger
	}

	today := e.today()
	earliest := records[0].Date
	for _, r := range records[1:] {
		if r.Date.Before(earliest.Time) {
			earliest = r.Date
		}
	}
	if earliest.After(today.AddDate(0, 0, -13)) {
		return 0, ErrInsufficientHistory
	}

	recentStart := core.DateOf(today.AddDate(0, 0, -6))
	prevStart := core.DateOf(today.AddDate(0, 0, -13))
	prevEnd := core.DateOf(today.AddDate(0, 0, -7))

	var recent, prev core.Money
	for _, r := range records {
		switch {
		case inWindow(r.Date, recentStart, today):
			recent = recent.Add(r.Amount)
		case inWindow(r.Date, prevStart, prevEnd):
			prev = prev.Add(r.Amount)
		}
	}
	if prev.Cents == 0 {
		return 0, ErrInsufficientHistory
	}
	return float64(recent.Cents-prev.Cents) / float64(prev.Cents) * 100, nil
}

// Insights composes the fixed set of textual observations: top
// category share of 30-day spend, week-over-week delta, recurring
// charges, outlier transactions and the weekly-limit balance. Read
// side only; deterministic given identical inputs.
func (e *Engine) Insights(records []core.Expense, limit core.WeeklyLimit) ([]Insight, error) {
	if len(records) == 0 {
		return []Insight{{Kind: InsightEmpty, Text: noExpensesText}}, nil
	}

	var out []Insight

	if cats, err := e.TopCategories(records, 0); err == nil && len(cats) > 0 {
		total := e.recentTotal(records)
		if total.Cents > 0 {
			pct := float64(cats[0].Total.Cents) / float64(total.Cents) * 100
			out = append(out, Insight{
				Kind: InsightTopCategory,
				Text: fmt.Sprintf("In the last 30 days, your top category is %s accounting for %.0f%% of your spending.", cats[0].Name, pct),
			})
		}
	}

	out = append(out, e.weekDeltaInsight(records))

	if rec, err := e.DetectRecurring(records); err == nil && len(rec) > 0 {
		names := make([]string, 0, 3)
		for _, c := range rec {
			names = append(names, c.Signature)
			if len(names) == 3 {
				break
			}
		}
		out = append(out, Insight{
			Kind: InsightRecurring,
			Text: fmt.Sprintf("Detected recurring charges: %s. Consider adding them to 'Subscriptions'.", strings.Join(names, ", ")),
		})
	}

	if txn, ok := outlierTransaction(records); ok {
		out = append(out, Insight{
			Kind: InsightLargeTxn,
			Text: fmt.Sprintf("A large transaction detected: %s on %s.", txn.Amount, txn.Date),
		})
	}

	out = append(out, e.weeklyLimitInsight(records, limit))
	return out, nil
}

func (e *Engine) weekDeltaInsight(records []core.Expense) Insight {
	change, err := e.WeekOverWeekChange(records)
	switch {
	case errors.Is(err, ErrInsufficientHistory):
		return Insight{Kind: InsightWeekDelta, Text: "Not enough data to compare weeks yet. Keep logging expenses for at least two weeks."}
	case err != nil:
		return Insight{Kind: InsightWeekDelta, Text: "Not enough data to compare weeks yet."}
	case change > 10:
		return Insight{Kind: InsightWeekDelta, Text: fmt.Sprintf("Spending increased by %.0f%% compared to the previous week.", change)}
	case change < -10:
		return Insight{Kind: InsightWeekDelta, Text: fmt.Sprintf("Good job, spending decreased by %.0f%% from last week.", -change)}
	default:
		return Insight{Kind: InsightWeekDelta, Text: "Spending is stable compared to last week."}
	}
}

func (e *Engine) weeklyLimitInsight(records []core.Expense, limit core.WeeklyLimit) Insight {
	today := e.today()
	start := core.DateOf(today.AddDate(0, 0, -6))

	var spent core.Money
	for _, r := range records {
		if inWindow(r.Date, start, today) {
			spent = spent.Add(r.Amount)
		}
	}

	if spent.Cents > limit.Amount.Cents {
		over := core.Money{Cents: spent.Cents - limit.Amount.Cents}
		return Insight{
			Kind: InsightWeeklyLimit,
			Text: fmt.Sprintf("You are %s over your weekly limit of %s.", over, limit.Amount),
		}
	}
	remaining := core.Money{Cents: limit.Amount.Cents - spent.Cents}
	return Insight{
		Kind: InsightWeeklyLimit,
		Text: fmt.Sprintf("You have %s left of your weekly limit of %s.", remaining, limit.Amount),
	}
}

// outlierTransaction returns the largest record when it exceeds three
// times the mean amount.
func outlierTransaction(records []core.Expense) (core.Expense, bool) {
	largest := records[0]
	var sum int64
	for _, r := range records {
		sum += r.Amount.Cents
		if r.Amount.Cents > largest.Amount.Cents {
			largest = r
		}
	}
	mean := float64(sum) / float64(len(records))
	return largest, float64(largest.Amount.Cents) > mean*3
}

// LargestTransactions returns the n biggest records in the full set,
// amount descending, ties by date ascending.
func (e *Engine) LargestTransactions(records []core.Expense, n int) ([]core.Expense, error) {
	if len(records) == 0 {
		return nil, ErrEmptyLedger
	}
	sorted := append([]core.Expense(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Amount.Cents != sorted[j].Amount.Cents {
			return sorted[i].Amount.Cents > sorted[j].Amount.Cents
		}
		return sorted[i].Date.Before(sorted[j].Date.Time)
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted, nil
}
