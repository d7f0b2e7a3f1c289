package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"spendlog/internal/core"
	applog "spendlog/internal/log"
)

// ErrBusy is returned when a record already has a mutation in flight.
var ErrBusy = errors.New("expense has a pending change")

// Gateway is the server side of expense persistence as seen by a controller.
type Gateway interface {
	List(ctx context.Context, ownerID string) ([]core.Expense, error)
	Create(ctx context.Context, ownerID string, in core.ExpenseInput) (core.Expense, error)
	Update(ctx context.Context, ownerID, id string, in core.ExpenseInput) (core.Expense, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// Controller owns the filter state and local expense collection of a single
// dashboard visit. Local data only changes after the gateway confirms a
// mutation, and it is always replaced with the server's canonical record.
type Controller struct {
	mu sync.Mutex

	gw    Gateway
	owner string
	clock core.Clock

	filter     Filter
	expenses   []core.Expense
	selectedID string
	createOpen bool
	inflight   map[string]struct{}
}

type Option func(*Controller)

func WithClock(c core.Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

func WithDefaultPeriod(p core.Period) Option {
	return func(ctl *Controller) { ctl.filter = DefaultFilter(p) }
}

// WithExpenses seeds the collection with records already fetched for this owner.
func WithExpenses(expenses []core.Expense) Option {
	return func(ctl *Controller) {
		ctl.expenses = append([]core.Expense(nil), expenses...)
	}
}

func NewController(gw Gateway, owner string, opts ...Option) *Controller {
	c := &Controller{
		gw:       gw,
		owner:    owner,
		clock:    core.SystemClock{},
		filter:   DefaultFilter(core.DefaultPeriod),
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Owner() string { return c.owner }

// Load replaces the collection with the owner's records from the gateway.
func (c *Controller) Load(ctx context.Context) error {
	list, err := c.gw.List(ctx, c.owner)
	if err != nil {
		return fmt.Errorf("load expenses: %w", err)
	}
	c.mu.Lock()
	c.expenses = append([]core.Expense(nil), list...)
	c.mu.Unlock()
	return nil
}

func (c *Controller) Filter() Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Expenses returns a copy of the local collection.
func (c *Controller) Expenses() []core.Expense {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Expense(nil), c.expenses...)
}

// View computes the dashboard for the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Compute(c.expenses, c.filter, c.clock.Now())
}

func (c *Controller) SetPeriod(p core.Period) error {
	if !p.IsValid() {
		return core.ErrInvalidPeriod
	}
	c.update(func(f Filter) Filter { return f.WithPeriod(p) })
	return nil
}

func (c *Controller) SetStartDate(d time.Time) {
	c.update(func(f Filter) Filter { return f.WithStartDate(d) })
}

func (c *Controller) SetEndDate(d time.Time) {
	c.update(func(f Filter) Filter { return f.WithEndDate(d) })
}

func (c *Controller) SetCategory(id string) {
	c.update(func(f Filter) Filter { return f.WithCategory(id) })
}

func (c *Controller) SetSearch(s string) {
	c.update(func(f Filter) Filter { return f.WithSearch(s) })
}

func (c *Controller) SetPage(n int) {
	c.update(func(f Filter) Filter { return f.WithPage(n) })
}

// ResetFilters returns to the initial filter state, keeping the period default.
func (c *Controller) ResetFilters(p core.Period) {
	c.update(func(Filter) Filter { return DefaultFilter(p) })
}

func (c *Controller) update(fn func(Filter) Filter) {
	c.mu.Lock()
	c.filter = fn(c.filter)
	c.mu.Unlock()
}

func (c *Controller) OpenCreate() {
	c.mu.Lock()
	c.createOpen = true
	c.mu.Unlock()
}

func (c *Controller) CloseCreate() {
	c.mu.Lock()
	c.createOpen = false
	c.mu.Unlock()
}

func (c *Controller) CreateOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.createOpen
}

// SelectExpense marks a local record as being edited.
func (c *Controller) SelectExpense(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexOf(id) < 0 {
		return core.ErrNotFound
	}
	c.selectedID = id
	return nil
}

func (c *Controller) ClearSelection() {
	c.mu.Lock()
	c.selectedID = ""
	c.mu.Unlock()
}

// Selected returns the record being edited, if any.
func (c *Controller) Selected() (core.Expense, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(c.selectedID); i >= 0 {
		return c.expenses[i], true
	}
	return core.Expense{}, false
}

// Create sends a new record to the gateway and, once stored, puts the
// canonical record at the front of the collection.
func (c *Controller) Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	created, err := c.gw.Create(ctx, c.owner, in)
	if err != nil {
		return core.Expense{}, err
	}
	c.mu.Lock()
	c.expenses = append([]core.Expense{created}, c.expenses...)
	c.createOpen = false
	c.mu.Unlock()
	return created, nil
}

// Update replaces a record with the gateway's result.
func (c *Controller) Update(ctx context.Context, id string, in core.ExpenseInput) (core.Expense, error) {
	if err := c.begin(id); err != nil {
		return core.Expense{}, err
	}
	defer c.end(id)

	updated, err := c.gw.Update(ctx, c.owner, id, in)
	if err != nil {
		return core.Expense{}, err
	}
	c.mu.Lock()
	if i := c.indexOf(id); i >= 0 {
		c.expenses[i] = updated
	}
	if c.selectedID == id {
		c.selectedID = ""
	}
	c.mu.Unlock()
	return updated, nil
}

// Delete removes a record once the gateway confirms it is gone.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if err := c.begin(id); err != nil {
		return err
	}
	defer c.end(id)

	if err := c.gw.Delete(ctx, c.owner, id); err != nil {
		return err
	}
	c.mu.Lock()
	if i := c.indexOf(id); i >= 0 {
		c.expenses = append(c.expenses[:i:i], c.expenses[i+1:]...)
	}
	if c.selectedID == id {
		c.selectedID = ""
	}
	c.mu.Unlock()
	slog.Debug("Expense removed from visit",
		applog.NewFields().WithOperation(applog.OpDelete).WithOwner(c.owner).WithExpense(id, "", "").ToSlice()...)
	return nil
}

func (c *Controller) begin(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[id]; busy {
		return ErrBusy
	}
	c.inflight[id] = struct{}{}
	return nil
}

func (c *Controller) end(id string) {
	c.mu.Lock()
	delete(c.inflight, id)
	c.mu.Unlock()
}

// indexOf must be called with mu held.
func (c *Controller) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, e := range c.expenses {
		if e.ID == id {
			return i
		}
	}
	return -1
}
