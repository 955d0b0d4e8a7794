package analytics

import (
	"errors"
	"time"

	"spendlens/internal/core"
)

// Heuristic constants are open parameters, injected rather than
// hard-coded so they can be tuned against real data.
type Config struct {
	// TopCategories is the default K for category rankings.
	TopCategories int
	// FoldOther folds categories beyond top-K into a single "Other"
	// bucket. Off by default; rankings then simply truncate.
	FoldOther bool
	// AmountTolerancePct is the relative band for clustering recurring
	// amounts (0.05 means ±5%).
	AmountTolerancePct float64
	// WeeklyJitterDays and MonthlyJitterDays bound how far successive
	// gaps may drift from the 7- and 30-day intervals.
	WeeklyJitterDays  int
	MonthlyJitterDays int
	// MinOccurrences is the minimum hits before a signature can be
	// flagged as recurring.
	MinOccurrences int
}

func DefaultConfig() Config {
	return Config{
		TopCategories:      5,
		AmountTolerancePct: 0.05,
		WeeklyJitterDays:   2,
		MonthlyJitterDays:  5,
		MinOccurrences:     3,
	}
}

var (
	ErrEmptyLedger         = errors.New("ledger has no records")
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrInvalidWindow       = errors.New("invalid lookback window")
)

// Engine computes aggregates over one user's records. Every operation
// takes the record slice explicitly and is pure given (records, now),
// so recomputing on an unchanged ledger yields identical results.
type Engine struct {
	cfg Config
	now func() time.Time
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg, now: time.Now}
}

// WithClock fixes the engine's notion of today. Used by tests and by
// the report worker to pin a whole report to one instant.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	return &Engine{cfg: e.cfg, now: now}
}

func (e *Engine) today() core.Date {
	return core.DateOf(e.now())
}

// Result types consumed by the chart renderer and the HTTP layer.
// All are ephemeral, derived fresh per query.
type (
	DayTotal struct {
		Day   core.Date
		Total core.Money
	}

	CategoryTotal struct {
		Name  string
		Total core.Money
	}

	WeekdayTotal struct {
		Weekday time.Weekday
		Total   core.Money
	}

	// Candidate is a probable recurring charge.
	Candidate struct {
		Signature    string
		Interval     string // "weekly" or "monthly"
		Occurrences  int
		MeanGapDays  float64
		LastAmount   core.Money
		NextExpected core.Date
		Confidence   string // "high", "medium" or "low"
	}

	Insight struct {
		Kind string
		Text string
	}

	Answer struct {
		Intent Intent
		Text   string
	}
)

// inWindow reports whether d falls in [start, end], inclusive on both sides.
func inWindow(d, start, end core.Date) bool {
	return !d.Before(start.Time) && !d.After(end.Time)
}

func sumAmounts(records []core.Expense) core.Money {
	var total core.Money
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total
}
