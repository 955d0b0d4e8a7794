package analytics

import (
	"math"
	"testing"
	"time"

	"spendlens/internal/core"
)

func TestDetectRecurring_MonthlyCharge(t *testing.T) {
	e := testEngine()
	records := []core.Expense{
		exp(core.NewDate(2026, 6, 1), 1299, "entertainment", "NETFLIX"),
		exp(core.NewDate(2026, 7, 1), 1299, "entertainment", "NETFLIX"),
		exp(core.NewDate(2026, 8, 1), 1299, "entertainment", "NETFLIX"),
		exp(core.NewDate(2026, 8, 14), 4200, "food", "groceries run"),
	}

	got, err := e.DetectRecurring(records)
	if err != nil {
		t.Fatalf("DetectRecurring() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("candidates = %d, want exactly 1", len(got))
	}

	c := got[0]
	if c.Signature != "NETFLIX" {
		t.Fatalf("signature = %q, want NETFLIX", c.Signature)
	}
	if c.Interval != "monthly" {
		t.Fatalf("interval = %q, want monthly", c.Interval)
	}
	if c.Occurrences != 3 {
		t.Fatalf("occurrences = %d, want 3", c.Occurrences)
	}
	if math.Abs(c.MeanGapDays-30) > 1 {
		t.Fatalf("mean gap = %.1f, want ~30", c.MeanGapDays)
	}
	if c.LastAmount.Cents != 1299 {
		t.Fatalf("last amount = %d, want 1299", c.LastAmount.Cents)
	}
	if c.NextExpected.Before(core.NewDate(2026, 8, 26).Time) {
		t.Fatalf("next expected = %s, want about a month after the last charge", c.NextExpected)
	}
}

func TestDetectRecurring_NeverFewerThanMinimum(t *testing.T) {
	e := testEngine()
	records := []core.Expense{
		exp(core.NewDate(2026, 7, 1), 999, "music", "SPOTIFY"),
		exp(core.NewDate(2026, 8, 1), 999, "music", "SPOTIFY"),
	}

	got, err := e.DetectRecurring(records)
	if err != nil {
		t.Fatalf("DetectRecurring() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("candidates = %d, want 0 for two occurrences", len(got))
	}
}

func TestDetectRecurring_AmountDriftSplitsBands(t *testing.T) {
	e := testEngine()
	// Same note, but the amount doubles halfway: neither band reaches
	// three occurrences, so nothing qualifies.
	records := []core.Expense{
		exp(core.NewDate(2026, 6, 1), 1000, "gym", "GYM FEE"),
		exp(core.NewDate(2026, 7, 1), 1000, "gym", "GYM FEE"),
		exp(core.NewDate(2026, 8, 1), 2000, "gym", "GYM FEE"),
		exp(core.NewDate(2026, 8, 29), 2000, "gym", "GYM FEE"),
	}

	got, err := e.DetectRecurring(records)
	if err != nil {
		t.Fatalf("DetectRecurring() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("candidates = %d, want 0 after band split", len(got))
	}
}

func TestDetectRecurring_ToleranceKeepsBandTogether(t *testing.T) {
	e := testEngine()
	// 3% wobble stays inside the default ±5% band.
	records := []core.Expense{
		exp(core.NewDate(2026, 6, 10), 1000, "utilities", "POWER CO"),
		exp(core.NewDate(2026, 7, 10), 1030, "utilities", "POWER CO"),
		exp(core.NewDate(2026, 8, 9), 990, "utilities", "POWER CO"),
	}

	got, err := e.DetectRecurring(records)
	if err != nil {
		t.Fatalf("DetectRecurring() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("candidates = %d, want 1", len(got))
	}
}

func TestDetectRecurring_WeeklyCadence(t *testing.T) {
	e := testEngine()
	records := []core.Expense{
		exp(core.NewDate(2026, 8, 3), 500, "transport", "BUS PASS"),
		exp(core.NewDate(2026, 8, 10), 500, "transport", "BUS PASS"),
		exp(core.NewDate(2026, 8, 18), 500, "transport", "BUS PASS"), // 8-day gap, inside ±2d jitter
		exp(core.NewDate(2026, 8, 24), 500, "transport", "BUS PASS"),
	}

	got, err := e.DetectRecurring(records)
	if err != nil {
		t.Fatalf("DetectRecurring() error = %v", err)
	}
	if len(got) != 1 || got[0].Interval != "weekly" {
		t.Fatalf("got %+v, want one weekly candidate", got)
	}
}

func TestDetectRecurring_IrregularGapsRejected(t *testing.T) {
	e := testEngine()
	records := []core.Expense{
		exp(core.NewDate(2026, 6, 1), 700, "food", "CAFE"),
		exp(core.NewDate(2026, 6, 4), 700, "food", "CAFE"),
		exp(core.NewDate(2026, 7, 20), 700, "food", "CAFE"),
	}

	got, err := e.DetectRecurring(records)
	if err != nil {
		t.Fatalf("DetectRecurring() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("candidates = %d, want 0 for irregular gaps", len(got))
	}
}

func TestDetectRecurring_NoteWinsOverCategory(t *testing.T) {
	e := testEngine()
	// Same category throughout; the noted records group by note, the
	// bare one stays under the category signature and cannot reach
	// three occurrences alone.
	records := []core.Expense{
		exp(core.NewDate(2026, 6, 1), 1299, "subscriptions", "NETFLIX"),
		exp(core.NewDate(2026, 7, 1), 1299, "subscriptions", "NETFLIX"),
		exp(core.NewDate(2026, 8, 1), 1299, "subscriptions", "NETFLIX"),
		exp(core.NewDate(2026, 7, 15), 1299, "subscriptions", ""),
	}

	got, err := e.DetectRecurring(records)
	if err != nil {
		t.Fatalf("DetectRecurring() error = %v", err)
	}
	if len(got) != 1 || got[0].Signature != "NETFLIX" {
		t.Fatalf("got %+v, want single NETFLIX candidate", got)
	}
}

func TestDetectRecurring_RankedByConfidence(t *testing.T) {
	e := testEngine()
	var records []core.Expense
	// Six tight weekly charges vs three monthly ones.
	start := core.NewDate(2026, 7, 6)
	for i := 0; i < 6; i++ {
		records = append(records, exp(core.DateOf(start.AddDate(0, 0, i*7)), 500, "transport", "TRAIN"))
	}
	records = append(records,
		exp(core.NewDate(2026, 6, 1), 1299, "tv", "NETFLIX"),
		exp(core.NewDate(2026, 7, 1), 1299, "tv", "NETFLIX"),
		exp(core.NewDate(2026, 8, 1), 1299, "tv", "NETFLIX"),
	)

	got, err := e.DetectRecurring(records)
	if err != nil {
		t.Fatalf("DetectRecurring() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("candidates = %d, want 2", len(got))
	}
	if got[0].Signature != "TRAIN" {
		t.Fatalf("top candidate = %q, want TRAIN (more occurrences)", got[0].Signature)
	}
	if got[0].Confidence != "high" {
		t.Fatalf("TRAIN confidence = %q, want high", got[0].Confidence)
	}

	var wd time.Weekday = got[0].NextExpected.Weekday()
	if wd != time.Monday {
		t.Fatalf("next expected weekday = %v, want Monday continuation", wd)
	}
}
