package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"spendlog/internal/core"
)

// DemoEmail identifies the shared demo account.
const (
	DemoEmail = "demo@expensetracker.com"
	DemoName  = "Demo User"
)

// CategoryID derives a stable id from a category name so seeding is
// idempotent across databases.
func CategoryID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("spendlog:category:"+name)).String()
}

// DefaultCategories is the built-in category set.
func DefaultCategories() []core.Category {
	defs := []struct{ name, icon, color string }{
		{"Food & Dining", "🍔", "#FF6B6B"},
		{"Transportation", "🚗", "#4ECDC4"},
		{"Shopping", "🛍️", "#45B7D1"},
		{"Entertainment", "🎬", "#FFA07A"},
		{"Bills & Utilities", "💡", "#98D8C8"},
		{"Healthcare", "🏥", "#F7B801"},
		{"Education", "📚", "#6C5CE7"},
		{"Groceries", "🛒", "#74B816"},
		{"Travel", "✈️", "#FF6B9D"},
		{"Housing", "🏠", "#95A5A6"},
		{"Personal Care", "🧼", "#E17055"},
		{"Other", "📦", "#A8A8A8"},
	}
	out := make([]core.Category, len(defs))
	for i, d := range defs {
		out[i] = core.Category{ID: CategoryID(d.name), Name: d.name, Icon: d.icon, Color: d.color}
	}
	return out
}

// SeedCategories upserts the default categories.
func SeedCategories(ctx context.Context, store CategoryStore) (int, error) {
	cats := DefaultCategories()
	for _, c := range cats {
		if err := store.UpsertCategory(ctx, c); err != nil {
			return 0, err
		}
	}
	return len(cats), nil
}

type demoEntry struct {
	daysAgo  int
	category string
	cents    int64
	desc     string
}

var demoEntries = []demoEntry{
	{1, "Food & Dining", 25050, "Lunch at Italian restaurant"},
	{2, "Food & Dining", 18000, "Dinner with friends"},
	{3, "Transportation", 12000, "Taxi to airport"},
	{4, "Food & Dining", 9575, "Breakfast at cafe"},
	{5, "Groceries", 145025, "Weekly groceries"},
	{6, "Entertainment", 35000, "Movie tickets"},
	{7, "Food & Dining", 42000, "Family dinner"},
	{9, "Bills & Utilities", 189000, "Electricity bill"},
	{10, "Food & Dining", 15550, "Thai food delivery"},
	{12, "Shopping", 259900, "New running shoes"},
	{13, "Food & Dining", 32000, "Sushi restaurant"},
	{15, "Transportation", 4500, "BTS card top-up"},
	{16, "Food & Dining", 12500, "Coffee shop"},
	{18, "Healthcare", 80000, "Dental checkup"},
	{19, "Food & Dining", 28050, "Korean BBQ"},
	{21, "Personal Care", 60000, "Haircut"},
	{22, "Food & Dining", 16500, "Pizza delivery"},
	{25, "Food & Dining", 19500, "Brunch"},
	{28, "Housing", 1500000, "Monthly rent"},
	{33, "Education", 129000, "Online course"},
	{38, "Groceries", 98075, "Groceries at market"},
	{41, "Bills & Utilities", 59900, "Internet bill"},
	{45, "Entertainment", 42000, "Concert tickets"},
	{50, "Travel", 450000, "Weekend trip to Chiang Mai"},
	{58, "Housing", 1500000, "Monthly rent"},
	{64, "Shopping", 89000, "Kitchen supplies"},
	{71, "Transportation", 150000, "Car service"},
	{77, "Food & Dining", 22000, "Street food tour"},
	{83, "Other", 30000, "Gift for a friend"},
	{88, "Housing", 1500000, "Monthly rent"},
}

// DemoStore is what SeedDemo needs from a repository.
type DemoStore interface {
	UserStore
	ExpenseStore
}

// SeedDemo upserts the demo user and replaces their expenses with a fixed
// set spread over the last 90 days. Returns the demo user and the number
// of expenses written.
func SeedDemo(ctx context.Context, store DemoStore, now time.Time) (core.User, int, error) {
	user, err := store.UpsertUser(ctx, core.User{Email: DemoEmail, Name: DemoName})
	if err != nil {
		return core.User{}, 0, fmt.Errorf("upsert demo user: %w", err)
	}

	if _, err := store.DeleteExpensesByOwner(ctx, user.ID); err != nil {
		return core.User{}, 0, fmt.Errorf("clear demo expenses: %w", err)
	}

	for _, d := range demoEntries {
		_, err := store.CreateExpense(ctx, core.Expense{
			Amount:      core.MoneyFromCents(d.cents),
			CategoryID:  CategoryID(d.category),
			Description: d.desc,
			Date:        now.Add(-time.Duration(d.daysAgo) * 24 * time.Hour),
			OwnerID:     user.ID,
		})
		if err != nil {
			return core.User{}, 0, fmt.Errorf("create demo expense %q: %w", d.desc, err)
		}
	}
	return user, len(demoEntries), nil
}
