package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"spendlens/internal/core"
)

// Store keeps each user's ledger in memory. It is the default backend
// and the one the tests run against.
type Store struct {
	mu     sync.Mutex
	items  map[string][]core.Expense
	limits map[string]core.WeeklyLimit
}

func New() *Store {
	return &Store{
		items:  make(map[string][]core.Expense),
		limits: make(map[string]core.WeeklyLimit),
	}
}

// Append stores the expense and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, user string, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[user] = append(s.items[user], e)
	return fmt.Sprintf("mem:%s:%d", user, len(s.items[user])), nil
}

// ListExpenses returns the user's expenses ordered by date ascending.
func (s *Store) ListExpenses(_ context.Context, user string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Expense(nil), s.items[user]...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date.Time)
	})
	return out, nil
}

// ListUsers returns every user with at least one expense, sorted.
func (s *Store) ListUsers(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]string, 0, len(s.items))
	for u, items := range s.items {
		if len(items) > 0 {
			users = append(users, u)
		}
	}
	sort.Strings(users)
	return users, nil
}

// GetWeeklyLimit falls back to the default when the user never set one.
func (s *Store) GetWeeklyLimit(_ context.Context, user string) (core.WeeklyLimit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.limits[user]; ok {
		return l, nil
	}
	return core.DefaultWeeklyLimit(), nil
}

func (s *Store) SetWeeklyLimit(_ context.Context, user string, l core.WeeklyLimit) error {
	if err := l.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limits[user] = l
	return nil
}
