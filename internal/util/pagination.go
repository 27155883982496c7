package util

import "strconv"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxPage         = 10000
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

// Calculate turns a 1-based page and a size into offset/limit, clamping the
// page to MaxPage and the size to MaxPageSize.
func Calculate(page, size int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return (page - 1) * size, size
}
