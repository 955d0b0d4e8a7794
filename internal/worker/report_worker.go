package worker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"spendlens/internal/amqp"
	"spendlens/internal/analytics"
	"spendlens/internal/core"
	"spendlens/internal/ledger"
	"spendlens/internal/log"
	"spendlens/internal/report"
)

// Consumer is the slice of the AMQP client the worker needs.
type Consumer interface {
	ConsumeReportRequests(ctx context.Context, handler func(*amqp.ReportRequestMessage) error) error
}

// Renderer writes a report and returns its path.
type Renderer interface {
	Render(data report.Data) (string, error)
}

// Exporter pushes a report summary to an external sink. Optional.
type Exporter interface {
	Export(ctx context.Context, data report.Data) error
}

// ReportWorker consumes report requests, runs the analytics engine
// over the user's ledger and renders the result. A periodic tick also
// refreshes reports for every known user, so a lost message only
// delays a report instead of losing it.
type ReportWorker struct {
	store    ledger.Store
	engine   *analytics.Engine
	renderer Renderer
	exporter Exporter
	interval time.Duration
	logger   *log.Logger
}

func NewReportWorker(store ledger.Store, engine *analytics.Engine, renderer Renderer, exporter Exporter, interval time.Duration, logger *log.Logger) *ReportWorker {
	return &ReportWorker{
		store:    store,
		engine:   engine,
		renderer: renderer,
		exporter: exporter,
		interval: interval,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Run blocks until ctx is cancelled, consuming requests and running
// the periodic refresh concurrently.
func (w *ReportWorker) Run(ctx context.Context, consumer Consumer) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.ConsumeReportRequests(ctx, func(msg *amqp.ReportRequestMessage) error {
			return w.HandleReportRequest(ctx, msg)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.RefreshAll(ctx); err != nil {
					w.logger.ErrorContext(ctx, "Periodic report refresh failed", "error", err)
				}
			}
		}
	})

	return g.Wait()
}

// HandleReportRequest builds one user's report.
func (w *ReportWorker) HandleReportRequest(ctx context.Context, msg *amqp.ReportRequestMessage) error {
	path, err := w.BuildReport(ctx, msg.User)
	if err != nil {
		return fmt.Errorf("build report for %s: %w", msg.User, err)
	}
	w.logger.InfoContext(ctx, "Report request handled",
		log.FieldUser, msg.User,
		log.FieldReportPath, path)
	return nil
}

// RefreshAll rebuilds reports for every user with recorded expenses.
// Per-user failures are logged and skipped so one bad ledger does not
// stall the rest.
func (w *ReportWorker) RefreshAll(ctx context.Context) error {
	users, err := w.store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	for _, user := range users {
		if _, err := w.BuildReport(ctx, user); err != nil {
			w.logger.ErrorContext(ctx, "Refresh failed for user",
				log.FieldUser, user, "error", err)
		}
	}
	return nil
}

// BuildReport reads the user's ledger, runs every aggregate at one
// pinned instant and renders the result. Returns the report path.
func (w *ReportWorker) BuildReport(ctx context.Context, user string) (string, error) {
	records, err := w.store.ListExpenses(ctx, user)
	if err != nil {
		return "", fmt.Errorf("list expenses: %w", err)
	}
	limit, err := w.store.GetWeeklyLimit(ctx, user)
	if err != nil {
		return "", fmt.Errorf("get weekly limit: %w", err)
	}

	now := time.Now()
	engine := w.engine.WithClock(func() time.Time { return now })

	data := w.assemble(engine, user, now, records, limit)

	path, err := w.renderer.Render(data)
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	if w.exporter != nil {
		if err := w.exporter.Export(ctx, data); err != nil {
			// Export is best effort; the PDF already exists.
			w.logger.WarnContext(ctx, "Report export failed", log.FieldUser, user, "error", err)
		}
	}
	return path, nil
}

// assemble flattens engine output into the renderer's label/value
// form. Engine errors for empty or short ledgers leave their section
// empty; the renderer prints a placeholder line instead.
func (w *ReportWorker) assemble(engine *analytics.Engine, user string, now time.Time, records []core.Expense, limit core.WeeklyLimit) report.Data {
	data := report.Data{User: user, GeneratedAt: now}

	if trend, err := engine.DailyTrend(records, 1); err == nil {
		data.TrendDays = len(trend)
		for _, d := range trend {
			data.TrendTotal += units(d.Total)
		}
	}

	if cats, err := engine.TopCategories(records, 0); err == nil {
		for _, c := range cats {
			data.Categories = append(data.Categories, report.Point{Label: c.Name, Value: units(c.Total)})
		}
	}

	if weekdays, err := engine.WeekdayProfile(records); err == nil {
		for _, b := range weekdays {
			data.Weekdays = append(data.Weekdays, report.Point{Label: b.Weekday.String(), Value: units(b.Total)})
		}
	}

	if rec, err := engine.DetectRecurring(records); err == nil {
		for _, c := range rec {
			data.Recurring = append(data.Recurring, fmt.Sprintf("%s: %s %s, %d times, next around %s",
				c.Signature, c.LastAmount, c.Interval, c.Occurrences, c.NextExpected))
		}
	}

	if insights, err := engine.Insights(records, limit); err == nil {
		for _, in := range insights {
			data.Insights = append(data.Insights, in.Text)
		}
	}

	if largest, err := engine.LargestTransactions(records, 5); err == nil {
		for _, t := range largest {
			data.Largest = append(data.Largest, report.Point{
				Label: fmt.Sprintf("%s %s", t.Date, t.Category),
				Value: units(t.Amount),
			})
		}
	}

	return data
}

func units(m core.Money) float64 {
	return float64(m.Cents) / 100.0
}
