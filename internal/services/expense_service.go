package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"spendlog/internal/amqp"
	"spendlog/internal/cache"
	"spendlog/internal/core"
	"spendlog/internal/dashboard"
	applog "spendlog/internal/log"
	"spendlog/internal/storage"
)

const categoriesKey = "categories"

// EventPublisher announces committed expense changes.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// ExpenseService applies ownership and validation rules on top of the
// repository and publishes a change event after each committed mutation.
type ExpenseService struct {
	repo       storage.Repository
	publisher  EventPublisher
	categories cache.Cache[[]core.Category]
	clock      core.Clock
	logger     *slog.Logger
}

var _ dashboard.Gateway = (*ExpenseService)(nil)

type Option func(*ExpenseService)

// WithPublisher enables change events. A nil publisher leaves them off.
func WithPublisher(p EventPublisher) Option {
	return func(s *ExpenseService) { s.publisher = p }
}

func WithCategoryCache(c cache.Cache[[]core.Category]) Option {
	return func(s *ExpenseService) { s.categories = c }
}

func WithClock(c core.Clock) Option {
	return func(s *ExpenseService) { s.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *ExpenseService) { s.logger = l }
}

func NewExpenseService(repo storage.Repository, opts ...Option) *ExpenseService {
	s := &ExpenseService{
		repo:   repo,
		clock:  core.SystemClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func requireOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return core.ErrUnauthenticated
	}
	return nil
}

func (s *ExpenseService) List(ctx context.Context, ownerID string) ([]core.Expense, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	list, err := s.repo.ListExpenses(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return list, nil
}

func (s *ExpenseService) Create(ctx context.Context, ownerID string, in core.ExpenseInput) (core.Expense, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Expense{}, err
	}
	if err := s.validate(ctx, in); err != nil {
		return core.Expense{}, err
	}

	e, err := s.repo.CreateExpense(ctx, in.Apply(core.Expense{OwnerID: ownerID}))
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense created", applog.NewFields().
		WithOperation(applog.OpCreate).
		WithOwner(ownerID).
		WithExpense(e.ID, e.Amount.String(), e.CategoryID).
		ToSlice()...)
	s.publish(ctx, core.ActionCreated, e)
	return e, nil
}

// Update rejects unknown ids and foreign records before looking at the input.
func (s *ExpenseService) Update(ctx context.Context, ownerID, id string, in core.ExpenseInput) (core.Expense, error) {
	existing, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return core.Expense{}, err
	}
	if err := s.validate(ctx, in); err != nil {
		return core.Expense{}, err
	}

	e, err := s.repo.UpdateExpense(ctx, in.Apply(existing))
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense updated", applog.NewFields().
		WithOperation(applog.OpUpdate).
		WithOwner(ownerID).
		WithExpense(id, e.Amount.String(), e.CategoryID).
		ToSlice()...)
	s.publish(ctx, core.ActionUpdated, e)
	return e, nil
}

func (s *ExpenseService) Delete(ctx context.Context, ownerID, id string) error {
	existing, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteExpense(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense deleted", applog.NewFields().
		WithOperation(applog.OpDelete).
		WithOwner(ownerID).
		WithExpense(id, "", "").
		ToSlice()...)
	s.publish(ctx, core.ActionDeleted, existing)
	return nil
}

// CheckOwner reports ErrNotFound or ErrForbidden the way Update and Delete
// would, without changing anything.
func (s *ExpenseService) CheckOwner(ctx context.Context, ownerID, id string) error {
	_, err := s.owned(ctx, ownerID, id)
	return err
}

func (s *ExpenseService) owned(ctx context.Context, ownerID, id string) (core.Expense, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Expense{}, err
	}
	e, err := s.repo.GetExpense(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Expense{}, core.ErrNotFound
		}
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	if e.OwnerID != ownerID {
		s.logger.WarnContext(ctx, "Expense access denied",
			applog.NewFields().WithOwner(ownerID).WithExpense(id, "", "").ToSlice()...)
		return core.Expense{}, core.ErrForbidden
	}
	return e, nil
}

func (s *ExpenseService) validate(ctx context.Context, in core.ExpenseInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	cats, err := s.Categories(ctx)
	if err != nil {
		return err
	}
	for _, c := range cats {
		if c.ID == in.CategoryID {
			return nil
		}
	}
	return core.ErrUnknownCategory
}

// Categories returns the category list, served from cache when configured.
func (s *ExpenseService) Categories(ctx context.Context) ([]core.Category, error) {
	if s.categories != nil {
		if cats, ok := s.categories.Get(ctx, categoriesKey); ok {
			return cats, nil
		}
	}
	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if s.categories != nil && len(cats) > 0 {
		s.categories.Set(ctx, categoriesKey, cats)
	}
	return cats, nil
}

// Activity returns the most recent change entries for ownerID.
func (s *ExpenseService) Activity(ctx context.Context, ownerID string, limit int) ([]core.Activity, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	acts, err := s.repo.ListActivity(ctx, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return acts, nil
}

// Ping reports whether the backing store is reachable.
func (s *ExpenseService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *ExpenseService) publish(ctx context.Context, action core.ActivityAction, e core.Expense) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not configured, skipping expense event",
			applog.NewFields().WithEvent("", string(action)).ToSlice()...)
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, amqp.NewExpenseEvent(action, e, s.clock.Now())); err != nil {
		// the change is already committed
		s.logger.ErrorContext(ctx, "Failed to publish expense event", applog.NewFields().
			WithEvent("", string(action)).
			WithOwner(e.OwnerID).
			WithExpense(e.ID, e.Amount.String(), e.CategoryID).
			WithError(err).
			ToSlice()...)
	}
}

// Close releases the repository. The publisher is owned by the caller.
func (s *ExpenseService) Close() error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.Close(); err != nil {
		return fmt.Errorf("close expense service: %w", err)
	}
	return nil
}
