// Package view computes the visible slice of the catalog from raw products
// and the active filter, search and page state.
//
// Everything here is pure: the same input always yields the same output and
// nothing is retained between calls.
package view

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/xenking/procart/internal/domain/product"
)

// DefaultPageSize is the number of products per page when none is configured.
const DefaultPageSize = 8

// Input is everything the projection depends on.
type Input struct {
	Products []product.Product
	// Category selects a single category; empty means all.
	Category string
	// Query is matched case-insensitively against titles; empty means all.
	Query string
	// Page is 1-based and used as is, without clamping.
	Page     int
	PageSize int
}

// Result is the visible slice plus pagination metadata.
type Result struct {
	Products []product.Product
	// TotalPages is zero when nothing matches.
	TotalPages int
	// CurrentPage echoes Input.Page, even when out of range.
	CurrentPage int
	// TotalCount is the number of products matching the filters.
	TotalCount int
}

// Project filters in.Products and returns the requested page. An out of
// range page yields an empty slice rather than an error.
func Project(in Input) Result {
	size := in.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	filtered := Filter(in.Products, in.Category, in.Query)
	return Result{
		Products:    Paginate(filtered, in.Page, size),
		TotalPages:  TotalPages(len(filtered), size),
		CurrentPage: in.Page,
		TotalCount:  len(filtered),
	}
}

// Filter returns products matching both category and query, preserving order.
func Filter(products []product.Product, category, query string) []product.Product {
	m := NewMatcher(category, query)
	out := make([]product.Product, 0, len(products))
	for _, p := range products {
		if m.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// Matcher tests products against a category and a title query.
// It holds a stateful case folder and must not be shared between goroutines.
type Matcher struct {
	category string
	query    string
	fold     cases.Caser
}

// NewMatcher creates a Matcher. Empty category or query disables that
// criterion.
func NewMatcher(category, query string) *Matcher {
	m := &Matcher{
		category: category,
		fold:     cases.Fold(),
	}
	if query != "" {
		m.query = m.fold.String(query)
	}
	return m
}

// Match reports whether p satisfies both criteria.
func (m *Matcher) Match(p product.Product) bool {
	if m.category != "" && p.Category != m.category {
		return false
	}
	if m.query == "" {
		return true
	}
	return strings.Contains(m.fold.String(p.Title), m.query)
}

// TotalPages returns ceil(total/size), or zero when there is nothing to show.
func TotalPages(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Paginate returns the 1-based page of items. Pages outside
// [1, TotalPages] yield an empty, non-nil slice.
func Paginate[T any](items []T, page, size int) []T {
	if page < 1 || size <= 0 || page > TotalPages(len(items), size) {
		return []T{}
	}
	start := (page - 1) * size
	end := min(start+size, len(items))
	return slices.Clip(items[start:end])
}
