package server

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/ArionMiles/budgify/pkg/aggregate"
	"github.com/ArionMiles/budgify/pkg/api"
)

// Money renders a decimal rounded to two places as a JSON number.
type Money decimal.Decimal

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(aggregate.Round2(decimal.Decimal(m)).StringFixed(2)), nil
}

type errorResponse struct {
	Error string `json:"error"`
}

type overviewResponse struct {
	Total     Money       `json:"total"`
	Count     int         `json:"count"`
	Average   *Money      `json:"average"`
	FirstDate *civil.Date `json:"first_date"`
	LastDate  *civil.Date `json:"last_date"`
}

func newOverview(o aggregate.Overview) overviewResponse {
	resp := overviewResponse{
		Total:     Money(o.Total),
		Count:     o.Count,
		FirstDate: o.Earliest,
		LastDate:  o.Latest,
	}
	if o.Mean != nil {
		m := Money(*o.Mean)
		resp.Average = &m
	}
	return resp
}

type groupResponse struct {
	Key   string `json:"key"`
	Total Money  `json:"total"`
	Count int    `json:"count"`
}

func newGroups(groups []aggregate.GroupTotal) []groupResponse {
	out := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, groupResponse{Key: g.Key, Total: Money(g.Total), Count: g.Count})
	}
	return out
}

type periodResponse struct {
	Period string     `json:"period"`
	Start  civil.Date `json:"start"`
	Total  Money      `json:"total"`
	Count  int        `json:"count"`
}

func newPeriods(periods []aggregate.PeriodTotal) []periodResponse {
	out := make([]periodResponse, 0, len(periods))
	for _, p := range periods {
		out = append(out, periodResponse{Period: p.Period, Start: p.Start, Total: Money(p.Total), Count: p.Count})
	}
	return out
}

type transactionResponse struct {
	Date        civil.Date `json:"date"`
	Description string     `json:"description"`
	Merchant    string     `json:"merchant"`
	Amount      Money      `json:"amount"`
	Category    string     `json:"category"`
	Provider    string     `json:"provider"`
	RawSource   string     `json:"raw_source,omitempty"`
}

type pageResponse struct {
	Total int                   `json:"total"`
	Items []transactionResponse `json:"items"`
}

func newPage(p aggregate.Page) pageResponse {
	items := make([]transactionResponse, 0, len(p.Items))
	for _, t := range p.Items {
		items = append(items, newTransaction(t))
	}
	return pageResponse{Total: p.Total, Items: items}
}

func newTransaction(t api.Transaction) transactionResponse {
	return transactionResponse{
		Date:        t.Date,
		Description: t.Description,
		Merchant:    t.DisplayMerchant(),
		Amount:      Money(t.Amount),
		Category:    t.Category,
		Provider:    t.Provider,
		RawSource:   t.RawSource,
	}
}

type metadataResponse struct {
	Categories []string `json:"categories"`
	Merchants  []string `json:"merchants"`
	Providers  []string `json:"providers"`
	Years      []int    `json:"years"`
}
