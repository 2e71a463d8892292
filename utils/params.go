package utils

import (
	"net/http"
	"strconv"
)

type QueryOptions struct {
	Page   int
	Limit  int
	Search string
}

func ParseQueryOptions(r *http.Request) QueryOptions {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	return QueryOptions{
		Page:   page,
		Limit:  limit,
		Search: q.Get("search"),
	}
}

// Paginate returns the window of items selected by opts.
func Paginate[T any](items []T, opts QueryOptions) []T {
	start := (opts.Page - 1) * opts.Limit
	if start >= len(items) {
		return []T{}
	}
	end := start + opts.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
