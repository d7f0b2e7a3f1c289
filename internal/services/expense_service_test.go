package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlog/internal/amqp"
	"spendlog/internal/cache"
	"spendlog/internal/core"
	applog "spendlog/internal/log"
	"spendlog/internal/storage"
	"spendlog/internal/storage/memory"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.ExpenseEvent
	err    error
}

func (f *fakePublisher) PublishExpenseEvent(_ context.Context, ev *amqp.ExpenseEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) actions() []core.ActivityAction {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.ActivityAction, len(f.events))
	for i, ev := range f.events {
		out[i] = ev.Action
	}
	return out
}

var now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(t *testing.T, opts ...Option) (*ExpenseService, *memory.Store, *fakePublisher) {
	t.Helper()
	store := memory.NewWithDefaults()
	pub := &fakePublisher{}
	opts = append([]Option{
		WithPublisher(pub),
		WithClock(&core.FixedClock{FixedNow: now}),
		WithLogger(quietLogger()),
	}, opts...)
	return NewExpenseService(store, opts...), store, pub
}

func input(cents int64, category, desc string) core.ExpenseInput {
	return core.ExpenseInput{
		Amount:      core.MoneyFromCents(cents),
		CategoryID:  storage.CategoryID(category),
		Description: desc,
		Date:        now.AddDate(0, 0, -1),
	}
}

func TestExpenseService_CreateAndList(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newService(t)

	e, err := svc.Create(ctx, "alice", input(25050, "Food & Dining", "  Lunch  "))
	require.NoError(t, err)
	assert.Equal(t, "alice", e.OwnerID)
	assert.Equal(t, "Lunch", e.Description)
	assert.Equal(t, "Food & Dining", e.Category.Name)

	_, err = svc.Create(ctx, "bob", input(100, "Travel", ""))
	require.NoError(t, err)

	list, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, e.ID, list[0].ID)

	assert.Equal(t, []core.ActivityAction{core.ActionCreated, core.ActionCreated}, pub.actions())
	assert.Equal(t, now, pub.events[0].OccurredAt)
}

func TestExpenseService_LogsExpenseFields(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	svc, _, _ := newService(t, WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))

	e, err := svc.Create(ctx, "alice", input(1250, "Shopping", ""))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "alice", e.ID))

	var records []map[string]any
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var rec map[string]any
		require.NoError(t, dec.Decode(&rec))
		records = append(records, rec)
	}
	require.Len(t, records, 2)

	assert.Equal(t, "Expense created", records[0]["msg"])
	assert.Equal(t, applog.OpCreate, records[0][applog.FieldOperation])
	assert.Equal(t, "alice", records[0][applog.FieldOwnerID])
	assert.Equal(t, e.ID, records[0][applog.FieldExpenseID])
	assert.Equal(t, "12.50", records[0][applog.FieldAmount])
	assert.Equal(t, e.CategoryID, records[0][applog.FieldCategoryID])

	assert.Equal(t, "Expense deleted", records[1]["msg"])
	assert.Equal(t, applog.OpDelete, records[1][applog.FieldOperation])
	assert.Equal(t, e.ID, records[1][applog.FieldExpenseID])
}

func TestExpenseService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newService(t)

	tests := []struct {
		name string
		in   core.ExpenseInput
		want error
	}{
		{"negative amount", func() core.ExpenseInput {
			in := input(0, "Other", "")
			in.Amount = core.MoneyFromCents(-1)
			return in
		}(), core.ErrInvalidAmount},
		{"no category", core.ExpenseInput{Amount: core.MoneyFromCents(1), Date: now}, core.ErrEmptyCategory},
		{"unknown category", core.ExpenseInput{Amount: core.MoneyFromCents(1), CategoryID: "nope", Date: now}, core.ErrUnknownCategory},
		{"no date", core.ExpenseInput{Amount: core.MoneyFromCents(1), CategoryID: storage.CategoryID("Other")}, core.ErrMissingDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "alice", tt.in)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}

	_, err := svc.Create(ctx, "", input(1, "Other", ""))
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
	assert.Empty(t, pub.actions())
}

func TestExpenseService_UpdateAndDeleteOwnership(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newService(t)

	e, err := svc.Create(ctx, "alice", input(1000, "Shopping", "Socks"))
	require.NoError(t, err)

	// not-found is reported before forbidden, and both before validation
	bad := core.ExpenseInput{}
	_, err = svc.Update(ctx, "alice", "missing", bad)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = svc.Update(ctx, "mallory", e.ID, bad)
	assert.ErrorIs(t, err, core.ErrForbidden)
	_, err = svc.Update(ctx, "alice", e.ID, bad)
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = svc.Update(ctx, "", e.ID, bad)
	assert.ErrorIs(t, err, core.ErrUnauthenticated)

	assert.ErrorIs(t, svc.Delete(ctx, "mallory", e.ID), core.ErrForbidden)
	assert.ErrorIs(t, svc.CheckOwner(ctx, "mallory", e.ID), core.ErrForbidden)
	assert.ErrorIs(t, svc.CheckOwner(ctx, "alice", "missing"), core.ErrNotFound)
	assert.NoError(t, svc.CheckOwner(ctx, "alice", e.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "alice", "missing"), core.ErrNotFound)

	updated, err := svc.Update(ctx, "alice", e.ID, input(1500, "Groceries", "Veg"))
	require.NoError(t, err)
	assert.Equal(t, "alice", updated.OwnerID)
	assert.Equal(t, "Groceries", updated.Category.Name)
	assert.Equal(t, "15.00", updated.Amount.String())

	require.NoError(t, svc.Delete(ctx, "alice", e.ID))
	list, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Equal(t, []core.ActivityAction{core.ActionCreated, core.ActionUpdated, core.ActionDeleted}, pub.actions())
	assert.Equal(t, "15.00", pub.events[2].Amount.String(), "delete event carries the last known amount")
}

func TestExpenseService_PublishFailureDoesNotFailRequest(t *testing.T) {
	ctx := context.Background()
	svc, store, pub := newService(t)
	pub.err = errors.New("broker down")

	e, err := svc.Create(ctx, "alice", input(100, "Other", ""))
	require.NoError(t, err)
	_, err = store.GetExpense(ctx, e.ID)
	assert.NoError(t, err)
}

func TestExpenseService_WithoutPublisher(t *testing.T) {
	svc := NewExpenseService(memory.NewWithDefaults(), WithLogger(quietLogger()))
	_, err := svc.Create(context.Background(), "alice", input(100, "Other", ""))
	assert.NoError(t, err)
}

type countingStore struct {
	*memory.Store
	calls int
}

func (c *countingStore) ListCategories(ctx context.Context) ([]core.Category, error) {
	c.calls++
	return c.Store.ListCategories(ctx)
}

func TestExpenseService_CategoriesAreCached(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: memory.NewWithDefaults()}
	svc := NewExpenseService(store,
		WithCategoryCache(cache.NewLRUCache[[]core.Category](1, time.Hour)),
		WithLogger(quietLogger()))

	for i := 0; i < 3; i++ {
		cats, err := svc.Categories(ctx)
		require.NoError(t, err)
		assert.Len(t, cats, 12)
	}
	_, err := svc.Create(ctx, "alice", input(100, "Other", ""))
	require.NoError(t, err)
	assert.Equal(t, 1, store.calls)
}

func TestExpenseService_Activity(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t)
	require.NoError(t, store.RecordActivity(ctx, core.Activity{OwnerID: "alice", ExpenseID: "x", Action: core.ActionCreated}))

	acts, err := svc.Activity(ctx, "alice", 5)
	require.NoError(t, err)
	assert.Len(t, acts, 1)

	_, err = svc.Activity(ctx, "", 5)
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

func TestExpenseService_Close(t *testing.T) {
	assert.NoError(t, NewExpenseService(nil).Close())
	assert.NoError(t, NewExpenseService(memory.NewWithDefaults()).Close())
}
