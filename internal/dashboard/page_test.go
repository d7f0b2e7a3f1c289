package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageCount(t *testing.T) {
	tests := []struct{ n, want int }{
		{0, 0}, {1, 1}, {9, 1}, {10, 1}, {11, 2}, {20, 2}, {21, 3}, {100, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PageCount(tt.n), "n=%d", tt.n)
	}
}

func TestPaginateClamps(t *testing.T) {
	items := make([]int, 25)
	for i := range items {
		items[i] = i
	}

	got, page := Paginate(items, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)

	got, page = Paginate(items, 7)
	assert.Equal(t, 3, page)
	assert.Equal(t, []int{20, 21, 22, 23, 24}, got)

	got, page = Paginate([]int{}, 5)
	assert.Equal(t, 1, page)
	assert.Empty(t, got)
}

func TestPageWindow(t *testing.T) {
	assert.Nil(t, PageWindow(1, 1))

	links := PageWindow(5, 10)
	var rendered []any
	for _, l := range links {
		if l.Gap {
			rendered = append(rendered, "…")
			continue
		}
		rendered = append(rendered, l.Number)
	}
	assert.Equal(t, []any{1, "…", 4, 5, 6, "…", 10}, rendered)

	links = PageWindow(1, 3)
	assert.Len(t, links, 3)
	assert.True(t, links[0].Current)
}
