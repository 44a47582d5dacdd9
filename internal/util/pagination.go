package util

import "strconv"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	MaxPage         = 100000
)

func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

// Calculate normalizes page and size and returns the row window.
func Calculate(page, size int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	offset = (page - 1) * size
	return offset, size
}

type Page struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

func NewPage(offset, limit int, total int64) Page {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	current := offset/limit + 1
	pages := int((total + int64(limit) - 1) / int64(limit))
	return Page{
		CurrentPage: current,
		TotalPages:  pages,
		HasNextPage: current < pages,
		HasPrevPage: current > 1,
	}
}
