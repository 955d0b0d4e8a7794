package core

import (
	"errors"
	"strings"
	"time"
)

// DefaultWeeklyLimitCents is used when a user has never set a limit.
const DefaultWeeklyLimitCents int64 = 100000

type (
	// Date is a calendar date with no time component. All grouping in the
	// analytics engine keys on the stored date, never on ingestion time.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Expense is one ledger record. Immutable once written; the analytics
	// engine never mutates it.
	Expense struct {
		Date     Date
		Amount   Money
		Category string // user-chosen label, case-insensitive for grouping
		Note     string // optional free text
	}

	// WeeklyLimit is the per-user budget ceiling for the current week.
	WeeklyLimit struct {
		Amount Money
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyCategory = errors.New("empty category")
	ErrZeroDate      = errors.New("date cannot be zero")
)

// NewDate creates a Date from year, month, day, normalized to midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its calendar date in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// Next returns the following calendar day.
func (d Date) Next() Date {
	return Date{Time: d.AddDate(0, 0, 1)}
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns the sum of two amounts.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if len(e.Note) > 200 {
		return errors.New("note too long (max 200 characters)")
	}
	return nil
}

// NormalizeCategory returns the grouping key for a category label:
// trimmed, inner whitespace collapsed, lowercased.
func NormalizeCategory(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func (l WeeklyLimit) Validate() error {
	return l.Amount.Validate()
}

// DefaultWeeklyLimit returns the limit applied to users who never set one.
func DefaultWeeklyLimit() WeeklyLimit {
	return WeeklyLimit{Amount: Money{Cents: DefaultWeeklyLimitCents}}
}
