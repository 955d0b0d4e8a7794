package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"spendlens/internal/core"

	_ "modernc.org/sqlite"
)

// Repository is the durable ledger backend. Dates are stored as
// YYYY-MM-DD text so range scans and ordering work lexically.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Append implements ledger.Writer.
func (r *Repository) Append(ctx context.Context, user string, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (user, day, amount_cents, category, note) VALUES (?, ?, ?, ?, ?)`,
		user, e.Date.String(), e.Amount.Cents, e.Category, e.Note)
	if err != nil {
		return "", fmt.Errorf("insert expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("last insert id: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

// ListExpenses implements ledger.Reader.
func (r *Repository) ListExpenses(ctx context.Context, user string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT day, amount_cents, category, note FROM expenses WHERE user = ? ORDER BY day ASC, id ASC`,
		user)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			day   string
			cents int64
			e     core.Expense
		)
		if err := rows.Scan(&day, &cents, &e.Category, &e.Note); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		t, err := time.Parse("2006-01-02", day)
		if err != nil {
			return nil, fmt.Errorf("parse stored day %q: %w", day, err)
		}
		e.Date = core.DateOf(t)
		e.Amount = core.Money{Cents: cents}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListUsers implements ledger.UserLister.
func (r *Repository) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user FROM expenses ORDER BY user ASC`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetWeeklyLimit implements ledger.LimitStore, falling back to the
// default when the user never set a limit.
func (r *Repository) GetWeeklyLimit(ctx context.Context, user string) (core.WeeklyLimit, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT amount_cents FROM weekly_limits WHERE user = ?`, user).Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultWeeklyLimit(), nil
	}
	if err != nil {
		return core.WeeklyLimit{}, fmt.Errorf("query weekly limit: %w", err)
	}
	return core.WeeklyLimit{Amount: core.Money{Cents: cents}}, nil
}

// SetWeeklyLimit implements ledger.LimitStore.
func (r *Repository) SetWeeklyLimit(ctx context.Context, user string, l core.WeeklyLimit) error {
	if err := l.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO weekly_limits (user, amount_cents, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(user) DO UPDATE SET amount_cents = excluded.amount_cents, updated_at = CURRENT_TIMESTAMP`,
		user, l.Amount.Cents)
	if err != nil {
		return fmt.Errorf("upsert weekly limit: %w", err)
	}
	return nil
}
