package aggregate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/ArionMiles/budgify/pkg/api"
)

// ErrInvalidQuery marks a rejected query. No partial result accompanies it.
var ErrInvalidQuery = errors.New("invalid query")

// Filter selects transactions. Every set field must match (logical AND).
type Filter struct {
	// Start and End bound the date range, inclusive. Zero means unbounded.
	Start civil.Date
	End   civil.Date

	// Category requires an exact category match.
	Category string
	// ExcludeCategories drops transactions in any of these categories.
	ExcludeCategories []string

	// Merchant is a case-insensitive substring matched against the merchant
	// or the description. It cannot be combined with MerchantRegex.
	Merchant string
	// MerchantRegex is a case-insensitive regular expression matched against
	// the merchant or the description.
	MerchantRegex string

	// MinAmount and MaxAmount bound the amount, inclusive.
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal

	Provider string
}

// Predicate is a compiled Filter.
type Predicate struct {
	f        Filter
	merchant string
	re       *regexp.Regexp
	exclude  map[string]struct{}
}

// Compile validates f and returns its predicate. Invalid combinations are
// reported as ErrInvalidQuery.
func (f Filter) Compile() (*Predicate, error) {
	if f.Start.IsValid() && f.End.IsValid() && f.End.Before(f.Start) {
		return nil, fmt.Errorf("%w: start date %s is after end date %s", ErrInvalidQuery, f.Start, f.End)
	}
	if f.MinAmount != nil && f.MaxAmount != nil && f.MaxAmount.LessThan(*f.MinAmount) {
		return nil, fmt.Errorf("%w: min amount %s is above max amount %s", ErrInvalidQuery, f.MinAmount, f.MaxAmount)
	}
	if f.Merchant != "" && f.MerchantRegex != "" {
		return nil, fmt.Errorf("%w: merchant and merchant_regex are mutually exclusive", ErrInvalidQuery)
	}

	p := &Predicate{f: f, merchant: strings.ToLower(f.Merchant)}
	if f.MerchantRegex != "" {
		re, err := regexp.Compile("(?i)" + f.MerchantRegex)
		if err != nil {
			return nil, fmt.Errorf("%w: merchant_regex: %v", ErrInvalidQuery, err)
		}
		p.re = re
	}
	if len(f.ExcludeCategories) > 0 {
		p.exclude = make(map[string]struct{}, len(f.ExcludeCategories))
		for _, c := range f.ExcludeCategories {
			p.exclude[c] = struct{}{}
		}
	}
	return p, nil
}

// Match reports whether t passes every condition.
func (p *Predicate) Match(t api.Transaction) bool {
	if p == nil {
		return true
	}
	f := p.f
	if f.Start.IsValid() && t.Date.Before(f.Start) {
		return false
	}
	if f.End.IsValid() && t.Date.After(f.End) {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if _, excluded := p.exclude[t.Category]; excluded {
		return false
	}
	if f.Provider != "" && t.Provider != f.Provider {
		return false
	}
	if f.MinAmount != nil && t.Amount.LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && t.Amount.GreaterThan(*f.MaxAmount) {
		return false
	}
	if p.merchant != "" {
		if !strings.Contains(strings.ToLower(t.Merchant), p.merchant) &&
			!strings.Contains(strings.ToLower(t.Description), p.merchant) {
			return false
		}
	}
	if p.re != nil && !p.re.MatchString(t.Merchant) && !p.re.MatchString(t.Description) {
		return false
	}
	return true
}

// Apply returns the transactions matching p as a new slice. The input is
// never modified.
func Apply(txns []api.Transaction, p *Predicate) []api.Transaction {
	out := make([]api.Transaction, 0, len(txns))
	for _, t := range txns {
		if p.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// Select compiles f and applies it in one step.
func Select(txns []api.Transaction, f Filter) ([]api.Transaction, error) {
	p, err := f.Compile()
	if err != nil {
		return nil, err
	}
	return Apply(txns, p), nil
}
