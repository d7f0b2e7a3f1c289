package storage

import (
	"context"

	"spendlog/internal/core"
)

// ExpenseStore persists expense records. Reads always embed the category.
type ExpenseStore interface {
	ListExpenses(ctx context.Context, ownerID string) ([]core.Expense, error)
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	// UpdateExpense writes the editable fields of e; the row must belong to e.OwnerID.
	UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, ownerID, id string) error
	DeleteExpensesByOwner(ctx context.Context, ownerID string) (int64, error)
}

type CategoryStore interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	GetCategory(ctx context.Context, id string) (core.Category, error)
	UpsertCategory(ctx context.Context, c core.Category) error
}

type UserStore interface {
	// UpsertUser creates the user on first sight of email and refreshes the name afterwards.
	UpsertUser(ctx context.Context, u core.User) (core.User, error)
	GetUser(ctx context.Context, id string) (core.User, error)
}

type ActivityStore interface {
	RecordActivity(ctx context.Context, a core.Activity) error
	ListActivity(ctx context.Context, ownerID string, limit int) ([]core.Activity, error)
}

// Repository is the full persistence surface. Missing rows are reported
// as core.ErrNotFound.
type Repository interface {
	ExpenseStore
	CategoryStore
	UserStore
	ActivityStore
	Ping(ctx context.Context) error
	Close() error
}
