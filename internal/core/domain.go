package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxDescriptionLength bounds the free-text description of an expense.
const MaxDescriptionLength = 200

type (
	// Category is a fixed spending bucket. Categories are created by
	// migrations and seeding only and are read-only everywhere else.
	Category struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Icon  string `json:"icon"`
		Color string `json:"color"`
	}

	User struct {
		ID        string    `json:"id"`
		Email     string    `json:"email"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// Expense is a single spending record owned by one user.
	// OwnerID never changes after creation.
	Expense struct {
		ID          string    `json:"id"`
		Amount      Money     `json:"amount"`
		CategoryID  string    `json:"categoryId"`
		Category    Category  `json:"category"`
		Description string    `json:"description,omitempty"`
		Date        time.Time `json:"date"`
		OwnerID     string    `json:"userId"`
		CreatedAt   time.Time `json:"createdAt"`
		UpdatedAt   time.Time `json:"updatedAt"`
	}

	// ExpenseInput carries the user-editable fields of an expense.
	ExpenseInput struct {
		Amount      Money
		CategoryID  string
		Description string
		Date        time.Time
	}

	ActivityAction string

	// Activity is one entry of a user's change history.
	Activity struct {
		ID         string         `json:"id"`
		OwnerID    string         `json:"userId"`
		ExpenseID  string         `json:"expenseId"`
		Action     ActivityAction `json:"action"`
		Amount     Money          `json:"amount"`
		OccurredAt time.Time      `json:"occurredAt"`
	}
)

const (
	ActionCreated ActivityAction = "created"
	ActionUpdated ActivityAction = "updated"
	ActionDeleted ActivityAction = "deleted"
)

// Sentinel errors shared by every layer. HTTP handlers map them to status codes.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
)

var (
	ErrInvalidAmount      = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrAmountTooLarge     = fmt.Errorf("%w: amount exceeds %s", ErrValidation, MaxAmount)
	ErrEmptyCategory      = fmt.Errorf("%w: category is required", ErrValidation)
	ErrUnknownCategory    = fmt.Errorf("%w: unknown category", ErrValidation)
	ErrMissingDate        = fmt.Errorf("%w: date is required", ErrValidation)
	ErrDescriptionTooLong = fmt.Errorf("%w: description too long (max %d characters)", ErrValidation, MaxDescriptionLength)
	ErrInvalidAction      = fmt.Errorf("%w: invalid activity action", ErrValidation)
)

func (in ExpenseInput) Validate() error {
	if in.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if in.Amount.Cmp(MaxAmount) > 0 {
		return ErrAmountTooLarge
	}
	if strings.TrimSpace(in.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if in.Date.IsZero() {
		return ErrMissingDate
	}
	if len([]rune(in.Description)) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

// Apply copies the editable fields onto e, leaving identity and ownership intact.
func (in ExpenseInput) Apply(e Expense) Expense {
	e.Amount = in.Amount
	e.CategoryID = in.CategoryID
	e.Description = strings.TrimSpace(in.Description)
	e.Date = in.Date
	return e
}

func ParseActivityAction(s string) (ActivityAction, error) {
	switch a := ActivityAction(s); a {
	case ActionCreated, ActionUpdated, ActionDeleted:
		return a, nil
	default:
		return "", ErrInvalidAction
	}
}
