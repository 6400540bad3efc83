// Package aggregate computes overview, period, category and merchant
// summaries over a transaction set.
//
// Sums are exact decimals. Round2 is applied by callers at presentation time
// only, never to intermediate totals.
package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/ArionMiles/budgify/pkg/api"
)

// Overview summarizes a transaction set.
type Overview struct {
	Total    decimal.Decimal
	Count    int
	// Mean, Earliest and Latest are nil for an empty set.
	Mean     *decimal.Decimal
	Earliest *civil.Date
	Latest   *civil.Date
}

// GroupTotal is the total of one category or merchant group.
type GroupTotal struct {
	Key   string
	Total decimal.Decimal
	Count int
}

// PeriodTotal is the total of one period bucket.
type PeriodTotal struct {
	Period string
	// Start is the first day of the bucket and drives the ordering.
	Start civil.Date
	Total decimal.Decimal
	Count int
}

// Granularity is the grouping unit of a period summary.
type Granularity string

// Supported granularities.
const (
	Day     Granularity = "day"
	Week    Granularity = "week"
	Month   Granularity = "month"
	Quarter Granularity = "quarter"
	Year    Granularity = "year"
)

// ParseGranularity validates s. The empty string selects Month.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return Month, nil
	case Day, Week, Month, Quarter, Year:
		return g, nil
	default:
		return "", fmt.Errorf("%w: period must be day, week, month, quarter, or year", ErrInvalidQuery)
	}
}

// Round2 rounds d to two fractional digits for presentation.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ComputeOverview returns the total, count, mean and date bounds of txns.
func ComputeOverview(txns []api.Transaction) Overview {
	var o Overview
	for _, t := range txns {
		o.Total = o.Total.Add(t.Amount)
		o.Count++
		if o.Earliest == nil || t.Date.Before(*o.Earliest) {
			d := t.Date
			o.Earliest = &d
		}
		if o.Latest == nil || t.Date.After(*o.Latest) {
			d := t.Date
			o.Latest = &d
		}
	}
	if o.Count > 0 {
		mean := o.Total.Div(decimal.NewFromInt(int64(o.Count)))
		o.Mean = &mean
	}
	return o
}

// ByCategory groups totals by category, largest first. Ties sort by label.
func ByCategory(txns []api.Transaction) []GroupTotal {
	return groupBy(txns, func(t api.Transaction) string {
		if t.Category == "" {
			return api.Uncategorized
		}
		return t.Category
	}, 0)
}

// ByMerchant groups totals by merchant, largest first, keeping at most topN
// groups when topN > 0. Transactions without a merchant group under their
// description.
func ByMerchant(txns []api.Transaction, topN int) []GroupTotal {
	return groupBy(txns, api.Transaction.DisplayMerchant, topN)
}

func groupBy(txns []api.Transaction, key func(api.Transaction) string, topN int) []GroupTotal {
	groups := make(map[string]*GroupTotal)
	for _, t := range txns {
		k := key(t)
		g, ok := groups[k]
		if !ok {
			g = &GroupTotal{Key: k}
			groups[k] = g
		}
		g.Total = g.Total.Add(t.Amount)
		g.Count++
	}

	out := make([]GroupTotal, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Key < out[j].Key
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

// ByPeriod groups totals into chronologically ordered period buckets.
func ByPeriod(txns []api.Transaction, g Granularity) ([]PeriodTotal, error) {
	if _, err := ParseGranularity(string(g)); err != nil {
		return nil, err
	}
	if g == "" {
		g = Month
	}

	buckets := make(map[string]*PeriodTotal)
	for _, t := range txns {
		label, start := bucket(t.Date, g)
		b, ok := buckets[label]
		if !ok {
			b = &PeriodTotal{Period: label, Start: start}
			buckets[label] = b
		}
		b.Total = b.Total.Add(t.Amount)
		b.Count++
	}

	out := make([]PeriodTotal, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

// bucket returns the label and first day of the period containing d.
func bucket(d civil.Date, g Granularity) (string, civil.Date) {
	switch g {
	case Day:
		return d.String(), d
	case Week:
		t := d.In(time.UTC)
		year, week := t.ISOWeek()
		// ISO weeks start on Monday.
		offset := (int(t.Weekday()) + 6) % 7
		return fmt.Sprintf("%04d-W%02d", year, week), d.AddDays(-offset)
	case Quarter:
		q := (int(d.Month)-1)/3 + 1
		start := civil.Date{Year: d.Year, Month: time.Month((q-1)*3 + 1), Day: 1}
		return fmt.Sprintf("%04d-Q%d", d.Year, q), start
	case Year:
		return fmt.Sprintf("%04d", d.Year), civil.Date{Year: d.Year, Month: time.January, Day: 1}
	default:
		return fmt.Sprintf("%04d-%02d", d.Year, int(d.Month)), civil.Date{Year: d.Year, Month: d.Month, Day: 1}
	}
}

// Breakdown is a category by period matrix, used by workbook summaries.
type Breakdown struct {
	Periods    []string
	Categories []string
	// Totals maps category then period label to the summed amount.
	Totals map[string]map[string]decimal.Decimal
}

// CategoryBreakdown returns category totals per period bucket. Categories
// are ordered as in ByCategory, periods chronologically.
func CategoryBreakdown(txns []api.Transaction, g Granularity) (Breakdown, error) {
	periods, err := ByPeriod(txns, g)
	if err != nil {
		return Breakdown{}, err
	}
	b := Breakdown{Totals: make(map[string]map[string]decimal.Decimal)}
	for _, p := range periods {
		b.Periods = append(b.Periods, p.Period)
	}
	for _, c := range ByCategory(txns) {
		b.Categories = append(b.Categories, c.Key)
		b.Totals[c.Key] = make(map[string]decimal.Decimal)
	}
	for _, t := range txns {
		label, _ := bucket(t.Date, g)
		cat := t.Category
		if cat == "" {
			cat = api.Uncategorized
		}
		b.Totals[cat][label] = b.Totals[cat][label].Add(t.Amount)
	}
	return b, nil
}

// Metadata lists the distinct values a dashboard offers as filter choices.
type Metadata struct {
	Categories []string
	Merchants  []string
	Providers  []string
}

// ComputeMetadata returns the sorted distinct categories, merchants and
// providers of txns.
func ComputeMetadata(txns []api.Transaction) Metadata {
	cats, merchants, providers := map[string]struct{}{}, map[string]struct{}{}, map[string]struct{}{}
	for _, t := range txns {
		if t.Category != "" {
			cats[t.Category] = struct{}{}
		}
		if m := t.DisplayMerchant(); m != "" {
			merchants[m] = struct{}{}
		}
		if t.Provider != "" {
			providers[t.Provider] = struct{}{}
		}
	}
	return Metadata{
		Categories: sortedKeys(cats),
		Merchants:  sortedKeys(merchants),
		Providers:  sortedKeys(providers),
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
