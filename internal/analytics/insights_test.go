package analytics

import (
	"errors"
	"math"
	"strings"
	"testing"

	"spendlens/internal/core"
)

func findInsight(t *testing.T, insights []Insight, kind string) Insight {
	t.Helper()
	for _, in := range insights {
		if in.Kind == kind {
			return in
		}
	}
	t.Fatalf("no %s insight in %+v", kind, insights)
	return Insight{}
}

func TestWeekOverWeekChange_DoubledSpend(t *testing.T) {
	e := testEngine()
	var records []core.Expense
	// 7 days at 10.00 followed by 7 days at 20.00.
	for i := 13; i >= 7; i-- {
		records = append(records, exp(daysAgo(i), 1000, "food", ""))
	}
	for i := 6; i >= 0; i-- {
		records = append(records, exp(daysAgo(i), 2000, "food", ""))
	}

	change, err := e.WeekOverWeekChange(records)
	if err != nil {
		t.Fatalf("WeekOverWeekChange() error = %v", err)
	}
	if math.Abs(change-100) > 0.001 {
		t.Fatalf("change = %.2f%%, want +100%%", change)
	}
}

func TestWeekOverWeekChange_InsufficientHistory(t *testing.T) {
	e := testEngine()
	var records []core.Expense
	for i := 0; i < 10; i++ {
		records = append(records, exp(daysAgo(i), 1000, "food", ""))
	}

	if _, err := e.WeekOverWeekChange(records); !errors.Is(err, ErrInsufficientHistory) {
		t.Fatalf("error = %v, want ErrInsufficientHistory for <14 days", err)
	}
}

func TestWeekOverWeekChange_EmptyLedger(t *testing.T) {
	if _, err := testEngine().WeekOverWeekChange(nil); !errors.Is(err, ErrEmptyLedger) {
		t.Fatalf("error = %v, want ErrEmptyLedger", err)
	}
}

func TestInsights_EmptyLedger(t *testing.T) {
	got, err := testEngine().Insights(nil, core.DefaultWeeklyLimit())
	if err != nil {
		t.Fatalf("Insights() error = %v", err)
	}
	if len(got) != 1 || got[0].Kind != InsightEmpty {
		t.Fatalf("got %+v, want single empty-ledger insight", got)
	}
}

func TestInsights_TopCategoryShare(t *testing.T) {
	e := testEngine()
	records := []core.Expense{
		exp(daysAgo(1), 7500, "Rent", ""),
		exp(daysAgo(2), 2500, "Food", ""),
		exp(daysAgo(20), 1000, "Food", ""),
	}

	got, err := e.Insights(records, core.DefaultWeeklyLimit())
	if err != nil {
		t.Fatalf("Insights() error = %v", err)
	}
	top := findInsight(t, got, InsightTopCategory)
	if !strings.Contains(top.Text, "Rent") || !strings.Contains(top.Text, "68%") {
		t.Fatalf("top category insight = %q, want Rent at 68%%", top.Text)
	}
}

func TestInsights_TopCategoryShareBeyondRankingCutoff(t *testing.T) {
	e := testEngine()
	// Six categories in the window, one more than the ranking keeps.
	// The share divides by the full 10000, not the truncated top-5 sum.
	records := []core.Expense{
		exp(daysAgo(1), 5000, "Rent", ""),
		exp(daysAgo(2), 1000, "Food", ""),
		exp(daysAgo(3), 1000, "Transport", ""),
		exp(daysAgo(4), 1000, "Utilities", ""),
		exp(daysAgo(5), 1000, "Clothes", ""),
		exp(daysAgo(6), 1000, "Games", ""),
	}

	got, err := e.Insights(records, core.DefaultWeeklyLimit())
	if err != nil {
		t.Fatalf("Insights() error = %v", err)
	}
	top := findInsight(t, got, InsightTopCategory)
	if !strings.Contains(top.Text, "Rent") || !strings.Contains(top.Text, "50%") {
		t.Fatalf("top category insight = %q, want Rent at 50%% of total spend", top.Text)
	}
}

func TestOutlierComparesAgainstExactMean(t *testing.T) {
	// 102+102+102+913 = 1219: mean 304.75, threshold 914.25. Truncating
	// the mean to 304 would flag 913 as an outlier.
	records := []core.Expense{
		exp(daysAgo(1), 102, "food", ""),
		exp(daysAgo(2), 102, "food", ""),
		exp(daysAgo(3), 102, "food", ""),
		exp(daysAgo(4), 913, "rent", ""),
	}
	if _, ok := outlierTransaction(records); ok {
		t.Fatal("913 is below three times the mean of 304.75")
	}

	// 102*3+1000 = 1306: mean 326.5, threshold 979.5.
	records[3] = exp(daysAgo(4), 1000, "rent", "")
	got, ok := outlierTransaction(records)
	if !ok || got.Amount.Cents != 1000 {
		t.Fatalf("outlierTransaction() = %v,%v, want the 1000-cent record", got, ok)
	}
}

func TestInsights_InsufficientHistoryIsExplicit(t *testing.T) {
	e := testEngine()
	records := []core.Expense{exp(daysAgo(2), 1000, "food", "")}

	got, err := e.Insights(records, core.DefaultWeeklyLimit())
	if err != nil {
		t.Fatalf("Insights() error = %v", err)
	}
	delta := findInsight(t, got, InsightWeekDelta)
	if !strings.Contains(delta.Text, "Not enough data") {
		t.Fatalf("week delta insight = %q, want explicit not-enough-data text", delta.Text)
	}
}

func TestInsights_WeeklyLimitOverspend(t *testing.T) {
	e := testEngine()
	records := []core.Expense{
		exp(daysAgo(1), 90000, "travel", ""),
		exp(daysAgo(3), 20000, "travel", ""),
	}
	limit := core.WeeklyLimit{Amount: core.Money{Cents: 100000}}

	got, err := e.Insights(records, limit)
	if err != nil {
		t.Fatalf("Insights() error = %v", err)
	}
	wl := findInsight(t, got, InsightWeeklyLimit)
	if !strings.Contains(wl.Text, "over your weekly limit") {
		t.Fatalf("weekly limit insight = %q, want overspend warning", wl.Text)
	}
	if !strings.Contains(wl.Text, "100.00") {
		t.Fatalf("weekly limit insight = %q, want 100.00 overspend amount", wl.Text)
	}
}

func TestInsights_LargeTransaction(t *testing.T) {
	e := testEngine()
	records := []core.Expense{
		exp(daysAgo(1), 500, "food", ""),
		exp(daysAgo(2), 500, "food", ""),
		exp(daysAgo(3), 500, "food", ""),
		exp(daysAgo(4), 50000, "electronics", "new laptop"),
	}

	got, err := e.Insights(records, core.DefaultWeeklyLimit())
	if err != nil {
		t.Fatalf("Insights() error = %v", err)
	}
	large := findInsight(t, got, InsightLargeTxn)
	if !strings.Contains(large.Text, "500.00") {
		t.Fatalf("large transaction insight = %q, want the 500.00 outlier", large.Text)
	}
}

func TestInsights_Deterministic(t *testing.T) {
	e := testEngine()
	records := []core.Expense{
		exp(daysAgo(1), 1000, "food", "lunch"),
		exp(daysAgo(8), 1000, "food", "lunch"),
		exp(daysAgo(15), 1000, "food", "lunch"),
		exp(daysAgo(20), 3000, "rent", ""),
	}

	first, err := e.Insights(records, core.DefaultWeeklyLimit())
	if err != nil {
		t.Fatalf("Insights() error = %v", err)
	}
	second, _ := e.Insights(records, core.DefaultWeeklyLimit())
	if len(first) != len(second) {
		t.Fatalf("recompute changed insight count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("recompute changed insight %d: %q vs %q", i, first[i].Text, second[i].Text)
		}
	}
}

func TestLargestTransactions(t *testing.T) {
	e := testEngine()
	records := []core.Expense{
		exp(daysAgo(3), 100, "a", ""),
		exp(daysAgo(2), 300, "b", ""),
		exp(daysAgo(1), 200, "c", ""),
		exp(daysAgo(5), 300, "d", ""),
	}

	got, err := e.LargestTransactions(records, 3)
	if err != nil {
		t.Fatalf("LargestTransactions() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// Amount descending; the 300-tie resolves by earlier date first.
	if got[0].Category != "d" || got[1].Category != "b" || got[2].Category != "c" {
		t.Fatalf("order = %s,%s,%s want d,b,c", got[0].Category, got[1].Category, got[2].Category)
	}
}
