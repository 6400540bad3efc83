package aggregate

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Params is the string form of a Filter, as found in query strings and CLI
// flags. Dates are YYYY-MM-DD.
type Params struct {
	StartDate         string   `query:"start_date"`
	EndDate           string   `query:"end_date"`
	Category          string   `query:"category"`
	ExcludeCategories []string `query:"exclude_category"`
	Merchant          string   `query:"merchant"`
	MerchantRegex     string   `query:"merchant_regex"`
	MinAmount         string   `query:"min_amount"`
	MaxAmount         string   `query:"max_amount"`
	Provider          string   `query:"provider"`
}

// Filter parses p. Malformed values are reported as ErrInvalidQuery.
func (p Params) Filter() (Filter, error) {
	f := Filter{
		Category:      strings.TrimSpace(p.Category),
		Merchant:      strings.TrimSpace(p.Merchant),
		MerchantRegex: p.MerchantRegex,
		Provider:      strings.TrimSpace(p.Provider),
	}
	for _, c := range p.ExcludeCategories {
		if c = strings.TrimSpace(c); c != "" {
			f.ExcludeCategories = append(f.ExcludeCategories, c)
		}
	}

	var err error
	if f.Start, err = parseDate("start_date", p.StartDate); err != nil {
		return Filter{}, err
	}
	if f.End, err = parseDate("end_date", p.EndDate); err != nil {
		return Filter{}, err
	}
	if f.MinAmount, err = parseAmount("min_amount", p.MinAmount); err != nil {
		return Filter{}, err
	}
	if f.MaxAmount, err = parseAmount("max_amount", p.MaxAmount); err != nil {
		return Filter{}, err
	}
	return f, nil
}

func parseDate(field, s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{}, nil
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("%w: %s %q is not a YYYY-MM-DD date", ErrInvalidQuery, field, s)
	}
	return d, nil
}

func parseAmount(field, s string) (*decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q is not a number", ErrInvalidQuery, field, s)
	}
	return &d, nil
}
