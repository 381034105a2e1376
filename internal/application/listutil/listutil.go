// Package listutil parses list parameters from requests and applies search
// and paging to in-memory result sets.
package listutil

import (
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// DefaultPerPage is the default number of cards per page.
const DefaultPerPage = 24

// PerPageOptions are the allowed per_page values.
var PerPageOptions = []int{12, 24, 48, 96}

// ListParams carries the list view parameters shared by roster pages.
type ListParams struct {
	Page    int    // 1-indexed
	PerPage int    // cards per page
	Search  string // free text matched against names
}

// PageInfo carries pagination metadata for rendering.
type PageInfo struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// ParseListParams extracts page, per_page and q from URL query values.
// PRE: none
// POST: Page >= 1 and PerPage is one of PerPageOptions
func ParseListParams(q url.Values) ListParams {
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if !isValidPerPage(perPage) {
		perPage = DefaultPerPage
	}
	return ListParams{Page: page, PerPage: perPage, Search: strings.TrimSpace(q.Get("q"))}
}

// ContainsFold reports whether needle occurs in haystack under Unicode case
// folding. An empty needle matches everything.
func ContainsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	fold := cases.Fold()
	return strings.Contains(fold.String(haystack), fold.String(needle))
}

// Filter keeps the items whose key contains search, preserving order.
func Filter[T any](items []T, search string, key func(T) string) []T {
	if search == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if ContainsFold(key(it), search) {
			out = append(out, it)
		}
	}
	return out
}

// Paginate slices items to the requested page and reports the page metadata.
// PRE: p came from ParseListParams or has PerPage > 0
// POST: len(result) <= p.PerPage
func Paginate[T any](items []T, p ListParams) ([]T, PageInfo) {
	info := NewPageInfo(p.Page, p.PerPage, len(items))
	start := info.Offset()
	if start > len(items) {
		start = len(items)
	}
	end := start + info.PerPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], info
}

// NewPageInfo computes pagination metadata.
// PRE: total >= 0
// POST: Page clamped to [1, TotalPages]; TotalPages >= 1
func NewPageInfo(page, perPage, total int) PageInfo {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	totalPages := (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return PageInfo{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Offset returns the index of the first item on the current page.
func (p PageInfo) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// ShowPagination reports whether more than one page exists.
func (p PageInfo) ShowPagination() bool {
	return p.Total > p.PerPage
}

// HasPrev and HasNext drive the pager links.
func (p PageInfo) HasPrev() bool { return p.Page > 1 }

func (p PageInfo) HasNext() bool { return p.Page < p.TotalPages }

func isValidPerPage(n int) bool {
	for _, opt := range PerPageOptions {
		if n == opt {
			return true
		}
	}
	return false
}
