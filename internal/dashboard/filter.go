package dashboard

import (
	"strings"
	"time"

	"spendlog/internal/core"
)

// AllCategories selects every category.
const AllCategories = "all"

// Filter is the user's current view selection. Every With* transition
// other than WithPage returns a copy positioned on page 1.
type Filter struct {
	Period     core.Period `json:"period"`
	StartDate  time.Time   `json:"startDate,omitzero"`
	EndDate    time.Time   `json:"endDate,omitzero"`
	CategoryID string      `json:"categoryId"`
	Search     string      `json:"search"`
	Page       int         `json:"page"`
}

// DefaultFilter is the state of a freshly opened dashboard.
func DefaultFilter(p core.Period) Filter {
	if !p.IsValid() {
		p = core.DefaultPeriod
	}
	return Filter{Period: p, CategoryID: AllCategories, Page: 1}
}

func (f Filter) WithPeriod(p core.Period) Filter {
	f.Period = p
	f.Page = 1
	return f
}

// WithStartDate sets the inclusive lower date bound. A non-zero date
// switches the period to all-time so the explicit range is authoritative.
func (f Filter) WithStartDate(d time.Time) Filter {
	f.StartDate = d
	if !d.IsZero() {
		f.Period = core.PeriodAllTime
	}
	f.Page = 1
	return f
}

// WithEndDate sets the inclusive upper date bound, with the same
// all-time override as WithStartDate.
func (f Filter) WithEndDate(d time.Time) Filter {
	f.EndDate = d
	if !d.IsZero() {
		f.Period = core.PeriodAllTime
	}
	f.Page = 1
	return f
}

func (f Filter) WithCategory(id string) Filter {
	id = strings.TrimSpace(id)
	if id == "" {
		id = AllCategories
	}
	f.CategoryID = id
	f.Page = 1
	return f
}

func (f Filter) WithSearch(s string) Filter {
	f.Search = s
	f.Page = 1
	return f
}

func (f Filter) WithPage(n int) Filter {
	if n < 1 {
		n = 1
	}
	f.Page = n
	return f
}

func (f Filter) allCategories() bool {
	return f.CategoryID == "" || f.CategoryID == AllCategories
}
