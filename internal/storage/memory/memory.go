// Package memory is an in-process Repository used for local development
// and tests. Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"spendlog/internal/core"
	"spendlog/internal/storage"
)

type Store struct {
	mu         sync.Mutex
	now        func() time.Time
	categories map[string]core.Category
	users      map[string]core.User
	expenses   map[string]core.Expense
	activity   []core.Activity
}

// New returns a store preloaded with the given categories.
func New(cats []core.Category) *Store {
	s := &Store{
		now:        time.Now,
		categories: make(map[string]core.Category),
		users:      make(map[string]core.User),
		expenses:   make(map[string]core.Expense),
	}
	for _, c := range cats {
		s.categories[c.ID] = c
	}
	return s
}

// NewWithDefaults returns a store with the built-in categories.
func NewWithDefaults() *Store {
	return New(storage.DefaultCategories())
}

var _ storage.Repository = (*Store)(nil)

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) ListExpenses(_ context.Context, ownerID string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0)
	for _, e := range s.expenses {
		if e.OwnerID == ownerID {
			out = append(out, s.withCategory(e))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetExpense(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, core.ErrNotFound
	}
	return s.withCategory(e), nil
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[e.CategoryID]; !ok {
		return core.Expense{}, core.ErrUnknownCategory
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := s.now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	e.Description = strings.TrimSpace(e.Description)
	s.expenses[e.ID] = e
	return s.withCategory(e), nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.expenses[e.ID]
	if !ok || existing.OwnerID != e.OwnerID {
		return core.Expense{}, core.ErrNotFound
	}
	if _, ok := s.categories[e.CategoryID]; !ok {
		return core.Expense{}, core.ErrUnknownCategory
	}
	existing.Amount = e.Amount
	existing.CategoryID = e.CategoryID
	existing.Description = strings.TrimSpace(e.Description)
	existing.Date = e.Date
	existing.UpdatedAt = s.now()
	s.expenses[e.ID] = existing
	return s.withCategory(existing), nil
}

func (s *Store) DeleteExpense(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.expenses[id]
	if !ok || existing.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) DeleteExpensesByOwner(_ context.Context, ownerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, e := range s.expenses {
		if e.OwnerID == ownerID {
			delete(s.expenses, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) ListCategories(context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, id string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, core.ErrNotFound
	}
	return c, nil
}

func (s *Store) UpsertCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.categories {
		if existing.Name == c.Name {
			existing.Icon, existing.Color = c.Icon, c.Color
			s.categories[id] = existing
			return nil
		}
	}
	if c.ID == "" {
		c.ID = storage.CategoryID(c.Name)
	}
	s.categories[c.ID] = c
	return nil
}

func (s *Store) UpsertUser(_ context.Context, u core.User) (core.User, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Email == "" {
		return core.User{}, fmt.Errorf("%w: email is required", core.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.users {
		if existing.Email == u.Email {
			if u.Name != "" {
				existing.Name = u.Name
				s.users[id] = existing
			}
			return existing, nil
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (s *Store) RecordActivity(_ context.Context, a core.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	for _, existing := range s.activity {
		if existing.ID == a.ID {
			return nil
		}
	}
	if a.OccurredAt.IsZero() {
		a.OccurredAt = s.now()
	}
	s.activity = append(s.activity, a)
	return nil
}

func (s *Store) ListActivity(_ context.Context, ownerID string, limit int) ([]core.Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Activity, 0)
	for i := len(s.activity) - 1; i >= 0 && len(out) < limit; i-- {
		if s.activity[i].OwnerID == ownerID {
			out = append(out, s.activity[i])
		}
	}
	return out, nil
}

// withCategory must be called with mu held.
func (s *Store) withCategory(e core.Expense) core.Expense {
	e.Category = s.categories[e.CategoryID]
	return e
}
