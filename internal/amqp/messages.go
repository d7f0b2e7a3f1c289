package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"spendlog/internal/core"
)

// ExpenseEvent announces a committed change to an expense. Consumers use it
// to build the activity feed; it is never the source of truth.
type ExpenseEvent struct {
	EventID    string              `json:"eventId"`
	Action     core.ActivityAction `json:"action"`
	ExpenseID  string              `json:"expenseId"`
	OwnerID    string              `json:"ownerId"`
	CategoryID string              `json:"categoryId,omitempty"`
	Amount     core.Money          `json:"amount"`
	OccurredAt time.Time           `json:"occurredAt"`
}

func NewExpenseEvent(action core.ActivityAction, e core.Expense, at time.Time) *ExpenseEvent {
	return &ExpenseEvent{
		EventID:    uuid.NewString(),
		Action:     action,
		ExpenseID:  e.ID,
		OwnerID:    e.OwnerID,
		CategoryID: e.CategoryID,
		Amount:     e.Amount,
		OccurredAt: at.UTC(),
	}
}

func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes and checks an event body.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := core.ParseActivityAction(string(msg.Action)); err != nil {
		return nil, err
	}
	if msg.ExpenseID == "" || msg.OwnerID == "" {
		return nil, errors.New("event is missing expense or owner id")
	}
	return &msg, nil
}

// Activity converts the event into a feed entry.
func (m *ExpenseEvent) Activity() core.Activity {
	return core.Activity{
		ID:         m.EventID,
		OwnerID:    m.OwnerID,
		ExpenseID:  m.ExpenseID,
		Action:     m.Action,
		Amount:     m.Amount,
		OccurredAt: m.OccurredAt,
	}
}

func (m *ExpenseEvent) String() string {
	return fmt.Sprintf("%s %s", m.Action, m.ExpenseID)
}
