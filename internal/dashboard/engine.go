// Package dashboard turns a user's expenses into the filtered, summarised
// and paginated view shown on the dashboard, and holds the per-visit
// controller that mutates that collection through the expense gateway.
package dashboard

import (
	"sort"
	"strings"
	"time"

	"spendlog/internal/core"
)

// CategoryTotal is one row of the per-category breakdown.
type CategoryTotal struct {
	Name   string     `json:"name"`
	Amount core.Money `json:"amount"`
	Count  int        `json:"count"`
	Icon   string     `json:"icon,omitempty"`
	Color  string     `json:"color,omitempty"`
}

type stage func(core.Expense) bool

// Apply narrows expenses through the period, start date, end date,
// category and search stages, in that order. Input order is preserved and
// the returned slice never shares storage with the input.
//
// Records with a zero date are dropped by any active date stage and kept
// otherwise.
func Apply(expenses []core.Expense, f Filter, now time.Time) []core.Expense {
	stages := buildStages(f, now)
	out := make([]core.Expense, 0, len(expenses))
next:
	for _, e := range expenses {
		for _, keep := range stages {
			if !keep(e) {
				continue next
			}
		}
		out = append(out, e)
	}
	return out
}

func buildStages(f Filter, now time.Time) []stage {
	var stages []stage

	if cutoff, ok := f.Period.Cutoff(now); ok {
		stages = append(stages, func(e core.Expense) bool {
			return !e.Date.IsZero() && !e.Date.Before(cutoff)
		})
	}
	if !f.StartDate.IsZero() {
		from := core.StartOfDay(f.StartDate)
		stages = append(stages, func(e core.Expense) bool {
			return !e.Date.IsZero() && !e.Date.Before(from)
		})
	}
	if !f.EndDate.IsZero() {
		to := core.EndOfDay(f.EndDate)
		stages = append(stages, func(e core.Expense) bool {
			return !e.Date.IsZero() && !e.Date.After(to)
		})
	}
	if !f.allCategories() {
		stages = append(stages, func(e core.Expense) bool {
			return e.CategoryID == f.CategoryID
		})
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		stages = append(stages, func(e core.Expense) bool {
			return strings.Contains(strings.ToLower(e.Description), term) ||
				strings.Contains(strings.ToLower(e.Category.Name), term)
		})
	}
	return stages
}

// Total is the exact decimal sum of all amounts.
func Total(expenses []core.Expense) core.Money {
	var total core.Money
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// Breakdown groups amounts by category display name and sorts the groups
// by amount, largest first. Equal amounts keep first-seen order.
func Breakdown(expenses []core.Expense) []CategoryTotal {
	index := make(map[string]int)
	rows := make([]CategoryTotal, 0)
	for _, e := range expenses {
		name := categoryName(e)
		i, ok := index[name]
		if !ok {
			i = len(rows)
			index[name] = i
			rows = append(rows, CategoryTotal{Name: name, Icon: e.Category.Icon, Color: e.Category.Color})
		}
		rows[i].Amount = rows[i].Amount.Add(e.Amount)
		rows[i].Count++
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Amount.Cmp(rows[j].Amount) > 0
	})
	return rows
}

func categoryName(e core.Expense) string {
	if e.Category.Name != "" {
		return e.Category.Name
	}
	if e.CategoryID != "" {
		return e.CategoryID
	}
	return "Uncategorized"
}
