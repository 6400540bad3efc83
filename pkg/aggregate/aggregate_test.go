package aggregate

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArionMiles/budgify/pkg/api"
)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func seed() []api.Transaction {
	return []api.Transaction{
		{Date: date(2025, 1, 5), Description: "FRESH MARKET #12", Merchant: "Fresh Market", Amount: dec("45.5"), Category: "groceries", Provider: "amex"},
		{Date: date(2025, 1, 20), Description: "BEAN HOUSE", Merchant: "Bean House", Amount: dec("12.0"), Category: "restaurants", Provider: "amex"},
		{Date: date(2025, 2, 1), Description: "SHELL 0042", Merchant: "Shell", Amount: dec("60"), Category: "gas", Provider: "tdvisa"},
		{Date: date(2025, 2, 10), Description: "StreamFlix", Merchant: "StreamFlix", Amount: dec("15"), Category: "subscriptions", Provider: "recurring"},
		{Date: date(2025, 2, 12), Description: "Home Depot", Merchant: "Home Depot", Amount: dec("210"), Category: "home", Provider: "manual"},
	}
}

func TestOverview_January(t *testing.T) {
	jan, err := Select(seed(), Filter{Start: date(2025, 1, 1), End: date(2025, 1, 31)})
	require.NoError(t, err)

	o := ComputeOverview(jan)
	assert.True(t, dec("57.5").Equal(o.Total), "total %s", o.Total)
	assert.Equal(t, 2, o.Count)
	require.NotNil(t, o.Earliest)
	require.NotNil(t, o.Latest)
	assert.Equal(t, date(2025, 1, 5), *o.Earliest)
	assert.Equal(t, date(2025, 1, 20), *o.Latest)
	require.NotNil(t, o.Mean)
	assert.Equal(t, "28.75", Round2(*o.Mean).StringFixed(2))
}

func TestOverview_Empty(t *testing.T) {
	o := ComputeOverview(nil)
	assert.Zero(t, o.Count)
	assert.True(t, o.Total.IsZero())
	assert.Nil(t, o.Mean)
	assert.Nil(t, o.Earliest)
	assert.Nil(t, o.Latest)
}

func TestByPeriod_Month(t *testing.T) {
	txns := []api.Transaction{
		{Date: date(2025, 2, 3), Amount: dec("5")},
		{Date: date(2025, 1, 15), Amount: dec("10")},
		{Date: date(2025, 1, 2), Amount: dec("1.25")},
	}

	got, err := ByPeriod(txns, Month)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2025-01", got[0].Period)
	assert.True(t, dec("11.25").Equal(got[0].Total))
	assert.Equal(t, 2, got[0].Count)
	assert.Equal(t, "2025-02", got[1].Period)
}

func TestByPeriod_Labels(t *testing.T) {
	txns := []api.Transaction{{Date: date(2025, 1, 5), Amount: dec("1")}}

	tests := []struct {
		g     Granularity
		label string
		start civil.Date
	}{
		{Day, "2025-01-05", date(2025, 1, 5)},
		{Week, "2025-W01", date(2024, 12, 30)},
		{Month, "2025-01", date(2025, 1, 1)},
		{Quarter, "2025-Q1", date(2025, 1, 1)},
		{Year, "2025", date(2025, 1, 1)},
	}
	for _, tt := range tests {
		t.Run(string(tt.g), func(t *testing.T) {
			got, err := ByPeriod(txns, tt.g)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, tt.label, got[0].Period)
			assert.Equal(t, tt.start, got[0].Start)
		})
	}
}

func TestByPeriod_WeekSpansYearBoundary(t *testing.T) {
	txns := []api.Transaction{
		{Date: date(2025, 1, 13), Amount: dec("3")},
		{Date: date(2024, 12, 31), Amount: dec("1")},
		{Date: date(2025, 1, 4), Amount: dec("2")},
	}

	got, err := ByPeriod(txns, Week)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2025-W01", got[0].Period)
	assert.Equal(t, 2, got[0].Count)
	assert.Equal(t, "2025-W03", got[1].Period)
}

func TestByPeriod_InvalidGranularity(t *testing.T) {
	_, err := ByPeriod(seed(), Granularity("fortnight"))
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestParseGranularity(t *testing.T) {
	g, err := ParseGranularity("")
	require.NoError(t, err)
	assert.Equal(t, Month, g)

	g, err = ParseGranularity(" Quarter ")
	require.NoError(t, err)
	assert.Equal(t, Quarter, g)

	_, err = ParseGranularity("hourly")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestByMerchant_TopN(t *testing.T) {
	txns := []api.Transaction{
		{Merchant: "A", Amount: dec("60")},
		{Merchant: "B", Amount: dec("30")},
		{Merchant: "A", Amount: dec("40")},
	}

	got := ByMerchant(txns, 1)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Key)
	assert.True(t, dec("100").Equal(got[0].Total))

	assert.Len(t, ByMerchant(txns, 0), 2)
}

func TestByMerchant_FallsBackToDescription(t *testing.T) {
	got := ByMerchant([]api.Transaction{{Description: " Corner Store ", Amount: dec("3")}}, 0)
	require.Len(t, got, 1)
	assert.Equal(t, "Corner Store", got[0].Key)
}

func TestByCategory_OrderAndTies(t *testing.T) {
	txns := []api.Transaction{
		{Category: "b", Amount: dec("10")},
		{Category: "a", Amount: dec("10")},
		{Category: "c", Amount: dec("50")},
		{Amount: dec("1")},
	}

	got := ByCategory(txns)
	var keys []string
	for _, g := range got {
		keys = append(keys, g.Key)
	}
	assert.Equal(t, []string{"c", "a", "b", api.Uncategorized}, keys)
}

func TestTotalsConsistency(t *testing.T) {
	txns := seed()
	overview := ComputeOverview(txns)

	sum := decimal.Zero
	count := 0
	for _, g := range ByCategory(txns) {
		sum = sum.Add(g.Total)
		count += g.Count
	}
	assert.True(t, overview.Total.Equal(sum))
	assert.Equal(t, overview.Count, count)

	periods, err := ByPeriod(txns, Week)
	require.NoError(t, err)
	sum = decimal.Zero
	for _, p := range periods {
		sum = sum.Add(p.Total)
	}
	assert.True(t, overview.Total.Equal(sum))
}

func TestFilterCompositionCommutes(t *testing.T) {
	byDate, err := Filter{Start: date(2025, 2, 1), End: date(2025, 2, 28)}.Compile()
	require.NoError(t, err)
	byAmount, err := Filter{MinAmount: decPtr("20")}.Compile()
	require.NoError(t, err)

	ab := Apply(Apply(seed(), byDate), byAmount)
	ba := Apply(Apply(seed(), byAmount), byDate)
	assert.Equal(t, ab, ba)
	assert.Len(t, ab, 2)
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		count  int
		total  string
	}{
		{"merchant regex", Filter{MerchantRegex: "bean|shell"}, 2, "72"},
		{"regex is case-insensitive", Filter{MerchantRegex: "^FRESH"}, 1, "45.5"},
		{"merchant substring", Filter{Merchant: "depot"}, 1, "210"},
		{"substring matches description", Filter{Merchant: "0042"}, 1, "60"},
		{"category", Filter{Category: "gas"}, 1, "60"},
		{"exclude categories", Filter{ExcludeCategories: []string{"home", "gas"}}, 3, "72.5"},
		{"provider", Filter{Provider: "amex"}, 2, "57.5"},
		{"amount range", Filter{MinAmount: decPtr("15"), MaxAmount: decPtr("60")}, 3, "120.5"},
		{"empty filter", Filter{}, 5, "342.5"},
		{"no match", Filter{Category: "travel"}, 0, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(seed(), tt.filter)
			require.NoError(t, err)
			o := ComputeOverview(got)
			assert.Equal(t, tt.count, o.Count)
			assert.True(t, dec(tt.total).Equal(o.Total), "total %s", o.Total)
		})
	}
}

func TestFilter_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
	}{
		{"bad regex", Filter{MerchantRegex: "(["}},
		{"start after end", Filter{Start: date(2025, 3, 1), End: date(2025, 2, 1)}},
		{"min above max", Filter{MinAmount: decPtr("10"), MaxAmount: decPtr("5")}},
		{"both merchant modes", Filter{Merchant: "a", MerchantRegex: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(seed(), tt.filter)
			assert.ErrorIs(t, err, ErrInvalidQuery)
			assert.Nil(t, got)
		})
	}
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	txns := seed()
	before := append([]api.Transaction(nil), txns...)

	p, err := Filter{Category: "gas"}.Compile()
	require.NoError(t, err)
	_ = Apply(txns, p)
	_ = Apply(txns, nil)

	assert.Equal(t, before, txns)
}

func TestList(t *testing.T) {
	t.Run("min amount sorted by amount desc", func(t *testing.T) {
		matched, err := Select(seed(), Filter{MinAmount: decPtr("50")})
		require.NoError(t, err)
		page, err := List(matched, ListOptions{SortBy: "amount", SortDesc: true})
		require.NoError(t, err)
		require.Len(t, page.Items, 2)
		assert.True(t, dec("210").Equal(page.Items[0].Amount))
		assert.True(t, dec("60").Equal(page.Items[1].Amount))
	})

	t.Run("limit and offset", func(t *testing.T) {
		page, err := List(seed(), ListOptions{SortBy: "date", Limit: 2, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, 5, page.Total)
		require.Len(t, page.Items, 2)
		assert.Equal(t, "Bean House", page.Items[0].Merchant)
		assert.Equal(t, "Shell", page.Items[1].Merchant)
	})

	t.Run("offset past end", func(t *testing.T) {
		page, err := List(seed(), ListOptions{Offset: 10})
		require.NoError(t, err)
		assert.Equal(t, 5, page.Total)
		assert.Empty(t, page.Items)
	})

	t.Run("merchant sort ignores case", func(t *testing.T) {
		page, err := List(seed(), ListOptions{SortBy: "merchant"})
		require.NoError(t, err)
		assert.Equal(t, "Bean House", page.Items[0].Merchant)
		assert.Equal(t, "StreamFlix", page.Items[4].Merchant)
	})

	t.Run("unknown sort key", func(t *testing.T) {
		_, err := List(seed(), ListOptions{SortBy: "color"})
		assert.ErrorIs(t, err, ErrInvalidQuery)
	})
}

func TestCategoryBreakdown(t *testing.T) {
	b, err := CategoryBreakdown(seed(), Month)
	require.NoError(t, err)

	assert.Equal(t, []string{"2025-01", "2025-02"}, b.Periods)
	assert.Equal(t, "home", b.Categories[0])
	assert.True(t, dec("60").Equal(b.Totals["gas"]["2025-02"]))
	assert.True(t, b.Totals["gas"]["2025-01"].IsZero())
}

func TestComputeMetadata(t *testing.T) {
	m := ComputeMetadata(seed())
	assert.Equal(t, []string{"gas", "groceries", "home", "restaurants", "subscriptions"}, m.Categories)
	assert.Equal(t, []string{"Bean House", "Fresh Market", "Home Depot", "Shell", "StreamFlix"}, m.Merchants)
	assert.Equal(t, []string{"amex", "manual", "recurring", "tdvisa"}, m.Providers)
}
