package ledger

import (
	"context"

	"spendlens/internal/core"
)

// Ports for ledger adapters. The analytics engine only ever sees the
// slice returned by Reader; it never reaches into storage itself.
type (
	Reader interface {
		// ListExpenses returns every expense recorded for the user,
		// ordered by date ascending.
		ListExpenses(ctx context.Context, user string) ([]core.Expense, error)
	}

	Writer interface {
		Append(ctx context.Context, user string, e core.Expense) (rowRef string, err error)
	}

	// UserLister enumerates users with at least one recorded expense.
	// The report worker uses it for scheduled full refreshes.
	UserLister interface {
		ListUsers(ctx context.Context) ([]string, error)
	}

	// LimitStore holds the per-user weekly spending ceiling.
	LimitStore interface {
		// GetWeeklyLimit returns the stored limit, or the default when
		// the user never set one.
		GetWeeklyLimit(ctx context.Context, user string) (core.WeeklyLimit, error)
		SetWeeklyLimit(ctx context.Context, user string, l core.WeeklyLimit) error
	}

	// Store is the full ledger surface the HTTP server and worker wire in.
	Store interface {
		Reader
		Writer
		UserLister
		LimitStore
	}
)

// ImportSummary reports the outcome of a bulk import. Malformed rows
// are skipped, never stored.
type ImportSummary struct {
	Imported int
	Skipped  int
}
