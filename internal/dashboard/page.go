package dashboard

// PageSize is the number of expenses shown per page.
const PageSize = 10

// PageCount returns ceil(n / PageSize).
func PageCount(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + PageSize - 1) / PageSize
}

// ClampPage bounds page to [1, max(1, PageCount(n))].
func ClampPage(page, n int) int {
	last := PageCount(n)
	if last < 1 {
		last = 1
	}
	if page > last {
		page = last
	}
	if page < 1 {
		page = 1
	}
	return page
}

// Paginate returns the items of the given 1-based page together with the
// page number actually used after clamping.
func Paginate[T any](items []T, page int) ([]T, int) {
	page = ClampPage(page, len(items))
	start := (page - 1) * PageSize
	if start >= len(items) {
		return []T{}, page
	}
	end := start + PageSize
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return out, page
}

// PageLink is one entry of the pager. Gap marks an elided run of pages.
type PageLink struct {
	Number  int  `json:"number,omitempty"`
	Current bool `json:"current,omitempty"`
	Gap     bool `json:"gap,omitempty"`
}

// PageWindow lists the first and last page, the current page and its
// direct neighbours, with gaps where pages were skipped.
func PageWindow(current, count int) []PageLink {
	if count <= 1 {
		return nil
	}
	var links []PageLink
	prev := 0
	for n := 1; n <= count; n++ {
		if n != 1 && n != count && (n < current-1 || n > current+1) {
			continue
		}
		if prev != 0 && n-prev > 1 {
			links = append(links, PageLink{Gap: true})
		}
		links = append(links, PageLink{Number: n, Current: n == current})
		prev = n
	}
	return links
}
