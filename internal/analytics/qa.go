package analytics

import (
	"fmt"
	"strings"

	"spendlens/internal/core"
)

// Intent is one recognized category of spending question. The resolver
// is a rule-based dispatcher over this fixed set, not a language model.
type Intent string

const (
	IntentOverspending  Intent = "overspending"
	IntentTopCategories Intent = "top_categories"
	IntentMonthTotal    Intent = "month_total"
	IntentSavingTips    Intent = "saving_tips"
	IntentSubscriptions Intent = "subscriptions"
	IntentSummary       Intent = "summary"
	IntentWeeklyBudget  Intent = "weekly_budget"
	IntentUnknown       Intent = "unknown"
)

const (
	emptyLedgerAnswer = "No expenses recorded yet. Add expenses or upload CSV so I can analyze your spending."
	fallbackAnswer    = "Sorry, I don't understand that question yet. Try: 'Where am I overspending?', 'How much this month?', 'Top categories', or 'Any subscriptions?'"
)

// intentRules are checked in declared order; the first match wins, so
// resolution is deterministic for any input.
var intentRules = []struct {
	intent Intent
	match  func(q string) bool
}{
	{IntentOverspending, containsAny("overspend")},
	{IntentTopCategories, containsAny("top categor", "biggest categor")},
	{IntentMonthTotal, func(q string) bool {
		return strings.Contains(q, "this month") && (strings.Contains(q, "spen") || strings.Contains(q, "how much"))
	}},
	{IntentSavingTips, containsAny("how to save", "saving tips", "tips")},
	{IntentSubscriptions, containsAny("recurring", "subscription")},
	{IntentWeeklyBudget, containsAny("weekly limit", "weekly budget", "budget left")},
	{IntentSummary, func(q string) bool {
		switch q {
		case "summary", "give me summary", "give me a summary", "overview":
			return true
		}
		return false
	}},
}

func containsAny(needles ...string) func(string) bool {
	return func(q string) bool {
		for _, n := range needles {
			if strings.Contains(q, n) {
				return true
			}
		}
		return false
	}
}

// MatchIntent maps a free-text question to an intent by keyword
// matching. Unrecognized input maps to IntentUnknown, never an error.
func MatchIntent(question string) Intent {
	q := strings.ToLower(strings.TrimSpace(question))
	for _, rule := range intentRules {
		if rule.match(q) {
			return rule.intent
		}
	}
	return IntentUnknown
}

// AnswerQuestion resolves the question's intent and answers it from
// the aggregation primitives. No state persists across questions.
func (e *Engine) AnswerQuestion(records []core.Expense, limit core.WeeklyLimit, question string) (Answer, error) {
	intent := MatchIntent(question)

	if len(records) == 0 {
		return Answer{Intent: intent, Text: emptyLedgerAnswer}, nil
	}

	switch intent {
	case IntentOverspending:
		return Answer{Intent: intent, Text: e.answerOverspending(records)}, nil
	case IntentTopCategories:
		return Answer{Intent: intent, Text: e.answerTopCategories(records)}, nil
	case IntentMonthTotal:
		return Answer{Intent: intent, Text: e.answerMonthTotal(records)}, nil
	case IntentSavingTips:
		return Answer{Intent: intent, Text: e.answerSavingTips(records)}, nil
	case IntentSubscriptions:
		return Answer{Intent: intent, Text: e.answerSubscriptions(records)}, nil
	case IntentWeeklyBudget:
		return Answer{Intent: intent, Text: e.answerWeeklyBudget(records, limit)}, nil
	case IntentSummary:
		return Answer{Intent: intent, Text: e.answerSummary(records, limit)}, nil
	default:
		return Answer{Intent: IntentUnknown, Text: fallbackAnswer}, nil
	}
}

func (e *Engine) answerOverspending(records []core.Expense) string {
	cats, err := e.TopCategories(records, 0)
	if err != nil || len(cats) == 0 {
		return "I couldn't find spending records for the last 30 days."
	}
	total := e.recentTotal(records)
	pct := 0.0
	if total.Cents > 0 {
		pct = float64(cats[0].Total.Cents) / float64(total.Cents) * 100
	}
	return fmt.Sprintf("You're spending most on %s, %.0f%% of month spending. Try limiting frequency or set a sub-budget for %s.",
		cats[0].Name, pct, cats[0].Name)
}

func (e *Engine) answerTopCategories(records []core.Expense) string {
	cats, err := e.TopCategories(records, 0)
	if err != nil || len(cats) == 0 {
		return "No category data found."
	}
	lines := make([]string, 0, len(cats))
	for i, c := range cats {
		lines = append(lines, fmt.Sprintf("%d. %s: %s", i+1, c.Name, c.Total))
	}
	return "Top categories (last 30 days):\n" + strings.Join(lines, "\n")
}

func (e *Engine) answerMonthTotal(records []core.Expense) string {
	today := e.today()
	start := core.NewDate(today.Year(), today.Month(), 1)

	var total core.Money
	for _, r := range records {
		if inWindow(r.Date, start, today) {
			total = total.Add(r.Amount)
		}
	}
	return fmt.Sprintf("You've spent %s this month so far.", total)
}

func (e *Engine) answerSavingTips(records []core.Expense) string {
	tips := []string{}
	if cats, err := e.TopCategories(records, 0); err == nil && len(cats) > 0 {
		saved := core.Money{Cents: cats[0].Total.Cents / 10}
		tips = append(tips, fmt.Sprintf("Cut down %s by 10%% and save %s monthly.", cats[0].Name, saved))
	}
	tips = append(tips, "Unsubscribe unused services; cook at home; set weekly budgets.")
	return "Suggested actions:\n- " + strings.Join(tips, "\n- ")
}

func (e *Engine) answerSubscriptions(records []core.Expense) string {
	rec, err := e.DetectRecurring(records)
	if err != nil || len(rec) == 0 {
		return "No obvious recurring charges detected."
	}
	lines := make([]string, 0, len(rec))
	for _, c := range rec {
		lines = append(lines, fmt.Sprintf("%s: %s %s, %d times, next around %s",
			c.Signature, c.LastAmount, c.Interval, c.Occurrences, c.NextExpected))
	}
	return "Recurring payments found:\n" + strings.Join(lines, "\n")
}

func (e *Engine) answerWeeklyBudget(records []core.Expense, limit core.WeeklyLimit) string {
	return e.weeklyLimitInsight(records, limit).Text
}

func (e *Engine) answerSummary(records []core.Expense, limit core.WeeklyLimit) string {
	insights, err := e.Insights(records, limit)
	if err != nil {
		return noExpensesText
	}
	lines := make([]string, 0, len(insights))
	for _, in := range insights {
		lines = append(lines, in.Text)
	}
	return strings.Join(lines, "\n")
}
