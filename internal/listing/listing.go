// Package listing sorts, filters and pages the in-memory record lists
// behind the list views.
package listing

import (
	"slices"
	"time"

	"transport-register/internal/models"
)

// Timestamped is anything carrying a creation time
type Timestamped interface {
	Created() time.Time
}

// SortNewestFirst sorts items by creation time, newest first. Items with
// equal timestamps keep their relative order.
func SortNewestFirst[T Timestamped](items []T) {
	slices.SortStableFunc(items, func(a, b T) int {
		return b.Created().Compare(a.Created())
	})
}

// FilterSince keeps items created strictly after cutoff
func FilterSince[T Timestamped](items []T, cutoff time.Time) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item.Created().After(cutoff) {
			out = append(out, item)
		}
	}
	return out
}

// TotalPages returns ceil(n/size) without overflowing for any size
func TotalPages(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	pages := n / size
	if n%size != 0 {
		pages++
	}
	return pages
}

// ClampPage clamps page into [1, max(1, totalPages)]
func ClampPage(page, totalPages int) int {
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return page
}

// Paginate returns the window of items shown on page, after clamping the
// page number. Page k holds items [(k-1)*size, k*size), cut at len(items).
func Paginate[T any](items []T, page, size int) models.Page[T] {
	if size <= 0 {
		size = 1
	}
	total := len(items)
	totalPages := TotalPages(total, size)
	page = ClampPage(page, totalPages)

	// page <= max(1, totalPages) keeps start within [0, total]
	start := (page - 1) * min(size, total)
	end := start + min(size, total-start)
	window := make([]T, end-start)
	copy(window, items[start:end])

	return models.Page[T]{
		Items:      window,
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}
}
