// Package worker turns expense events from the broker into activity feed
// entries.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"spendlog/internal/amqp"
	"spendlog/internal/core"
	applog "spendlog/internal/log"
	"spendlog/internal/storage"
)

// ActivityWorker records one activity entry per expense event. Recording is
// idempotent on the event id, so redeliveries are harmless.
type ActivityWorker struct {
	store  storage.ActivityStore
	logger *slog.Logger
}

func NewActivityWorker(store storage.ActivityStore, logger *slog.Logger) *ActivityWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityWorker{store: store, logger: logger}
}

// HandleExpenseEvent satisfies amqp.Handler.
func (w *ActivityWorker) HandleExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	if _, err := core.ParseActivityAction(string(ev.Action)); err != nil {
		// permanent; retrying cannot fix it
		w.logger.WarnContext(ctx, "Ignoring event with unknown action",
			applog.NewFields().WithEvent(ev.EventID, string(ev.Action)).ToSlice()...)
		return nil
	}

	if err := w.store.RecordActivity(ctx, ev.Activity()); err != nil {
		return fmt.Errorf("record activity for %s: %w", ev, err)
	}

	w.logger.InfoContext(ctx, "Recorded expense activity", applog.NewFields().
		WithEvent(ev.EventID, string(ev.Action)).
		WithOwner(ev.OwnerID).
		WithExpense(ev.ExpenseID, ev.Amount.String(), ev.CategoryID).
		ToSlice()...)
	return nil
}

// Consumer is the broker side of Run.
type Consumer interface {
	ConsumeExpenseEvents(ctx context.Context, handler amqp.Handler) error
}

// Run consumes events until ctx is cancelled.
func (w *ActivityWorker) Run(ctx context.Context, c Consumer) error {
	w.logger.InfoContext(ctx, "Activity worker started")
	err := c.ConsumeExpenseEvents(ctx, w.HandleExpenseEvent)
	if ctx.Err() != nil {
		w.logger.InfoContext(ctx, "Activity worker stopped")
		return nil
	}
	return err
}
