package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ArionMiles/budgify/pkg/api"
)

// DefaultListLimit is the page size used when ListOptions.Limit is zero.
const DefaultListLimit = 200

// ListOptions controls sorting and paging of a transaction listing.
type ListOptions struct {
	// SortBy is one of date, amount, merchant, category or description.
	// Empty means date.
	SortBy   string
	SortDesc bool
	Limit    int
	Offset   int
}

// Page is one page of a listing. Total counts every match, not just Items.
type Page struct {
	Total int
	Items []api.Transaction
}

var sortKeys = map[string]func(a, b api.Transaction) int{
	"date": func(a, b api.Transaction) int {
		switch {
		case a.Date.Before(b.Date):
			return -1
		case a.Date.After(b.Date):
			return 1
		}
		return 0
	},
	"amount": func(a, b api.Transaction) int {
		return a.Amount.Cmp(b.Amount)
	},
	"merchant": func(a, b api.Transaction) int {
		return strings.Compare(strings.ToLower(a.DisplayMerchant()), strings.ToLower(b.DisplayMerchant()))
	},
	"category": func(a, b api.Transaction) int { return strings.Compare(a.Category, b.Category) },
	"description": func(a, b api.Transaction) int {
		return strings.Compare(strings.ToLower(a.Description), strings.ToLower(b.Description))
	},
}

// List sorts and pages txns. The input is not modified.
func List(txns []api.Transaction, opts ListOptions) (Page, error) {
	by := strings.ToLower(strings.TrimSpace(opts.SortBy))
	if by == "" {
		by = "date"
	}
	cmp, ok := sortKeys[by]
	if !ok {
		return Page{}, fmt.Errorf("%w: cannot sort by %q", ErrInvalidQuery, opts.SortBy)
	}
	if opts.Limit < 0 || opts.Offset < 0 {
		return Page{}, fmt.Errorf("%w: limit and offset must not be negative", ErrInvalidQuery)
	}
	limit := opts.Limit
	if limit == 0 {
		limit = DefaultListLimit
	}

	sorted := append([]api.Transaction(nil), txns...)
	sort.SliceStable(sorted, func(i, j int) bool {
		c := cmp(sorted[i], sorted[j])
		if opts.SortDesc {
			return c > 0
		}
		return c < 0
	})

	page := Page{Total: len(sorted)}
	if opts.Offset >= len(sorted) {
		page.Items = []api.Transaction{}
		return page, nil
	}
	end := opts.Offset + limit
	if end > len(sorted) {
		end = len(sorted)
	}
	page.Items = sorted[opts.Offset:end]
	return page, nil
}
