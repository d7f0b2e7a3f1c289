package dashboard

import (
	"time"

	"spendlog/internal/core"
)

// View is everything the dashboard renders for one filter state.
type View struct {
	Filter        Filter          `json:"filter"`
	Expenses      []core.Expense  `json:"expenses"`
	Count         int             `json:"count"`
	Total         core.Money      `json:"total"`
	Breakdown     []CategoryTotal `json:"breakdown"`
	CategoryCount int             `json:"categoryCount"`
	Page          int             `json:"page"`
	PageCount     int             `json:"pageCount"`
	From          int             `json:"from"`
	To            int             `json:"to"`
	Pages         []PageLink      `json:"pages,omitempty"`
}

// Compute runs the full pipeline: filter, summarise, then paginate.
// The returned Filter carries the clamped page.
func Compute(expenses []core.Expense, f Filter, now time.Time) View {
	filtered := Apply(expenses, f, now)
	breakdown := Breakdown(filtered)
	items, page := Paginate(filtered, f.Page)
	f.Page = page

	v := View{
		Filter:        f,
		Expenses:      items,
		Count:         len(filtered),
		Total:         Total(filtered),
		Breakdown:     breakdown,
		CategoryCount: len(breakdown),
		Page:          page,
		PageCount:     PageCount(len(filtered)),
		Pages:         PageWindow(page, PageCount(len(filtered))),
	}
	if len(items) > 0 {
		v.From = (page-1)*PageSize + 1
		v.To = v.From + len(items) - 1
	}
	return v
}
