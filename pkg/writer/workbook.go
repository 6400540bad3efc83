package writer

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ArionMiles/budgify/pkg/aggregate"
	"github.com/ArionMiles/budgify/pkg/api"
)

// Tab names shared by the workbook sinks.
const (
	SummaryTab = "Summary"
	AllDataTab = "AllData"
)

// Column layouts of the workbook tabs.
var (
	AllDataHeader = []any{"Month", "Date", "Description", "Merchant", "Category", "Amount", "Provider"}
	MonthHeader   = []any{"Date", "Description", "Merchant", "Category", "Amount", "Provider"}
)

// MonthTab returns the tab name for a month, e.g. "January 2025".
func MonthTab(year int, month time.Month) string {
	return fmt.Sprintf("%s %d", month, year)
}

// Record renders t as a month tab row. Amounts are rounded to cents.
func Record(t api.Transaction) []any {
	return []any{t.Date.String(), t.Description, t.Merchant, t.Category, aggregate.Round2(t.Amount).InexactFloat64(), t.Provider}
}

// AllDataRecord renders t as an AllData row.
func AllDataRecord(t api.Transaction) []any {
	return append([]any{MonthTab(t.Date.Year, t.Date.Month)}, Record(t)...)
}

// Tab is one sheet of a workbook: its name and rows, header first.
type Tab struct {
	Name string
	Rows [][]any
}

// Tabs lays out a yearly workbook: Summary, AllData, then one tab per month
// present in rows, in calendar order.
func Tabs(rows []api.Transaction) ([]Tab, error) {
	summary, err := SummaryRows(rows)
	if err != nil {
		return nil, err
	}

	all := Tab{Name: AllDataTab, Rows: [][]any{AllDataHeader}}
	var months []Tab
	index := make(map[string]int)
	for _, t := range rows {
		all.Rows = append(all.Rows, AllDataRecord(t))

		name := MonthTab(t.Date.Year, t.Date.Month)
		i, ok := index[name]
		if !ok {
			i = len(months)
			index[name] = i
			months = append(months, Tab{Name: name, Rows: [][]any{MonthHeader}})
		}
		months[i].Rows = append(months[i].Rows, Record(t))
	}

	return append([]Tab{{Name: SummaryTab, Rows: summary}, all}, months...), nil
}

// MonthTabs returns only the month tabs of rows.
func MonthTabs(rows []api.Transaction) []Tab {
	tabs, _ := Tabs(rows)
	if len(tabs) < 2 {
		return nil
	}
	return tabs[2:]
}

// SummaryRows returns a category by month table with row and column totals.
func SummaryRows(rows []api.Transaction) ([][]any, error) {
	b, err := aggregate.CategoryBreakdown(rows, aggregate.Month)
	if err != nil {
		return nil, err
	}

	header := []any{"Category"}
	for _, p := range b.Periods {
		header = append(header, periodTitle(p))
	}
	header = append(header, "Total")

	out := [][]any{header}
	grand := make([]decimal.Decimal, len(b.Periods))
	for _, cat := range b.Categories {
		row := []any{cat}
		total := decimal.Zero
		for i, p := range b.Periods {
			v := b.Totals[cat][p]
			row = append(row, aggregate.Round2(v).InexactFloat64())
			total = total.Add(v)
			grand[i] = grand[i].Add(v)
		}
		out = append(out, append(row, aggregate.Round2(total).InexactFloat64()))
	}
	if len(b.Categories) > 0 {
		row := []any{"Total"}
		sum := decimal.Zero
		for _, v := range grand {
			row = append(row, aggregate.Round2(v).InexactFloat64())
			sum = sum.Add(v)
		}
		out = append(out, append(row, aggregate.Round2(sum).InexactFloat64()))
	}
	return out, nil
}

func periodTitle(label string) string {
	t, err := time.Parse("2006-01", label)
	if err != nil {
		return label
	}
	return MonthTab(t.Year(), t.Month())
}
