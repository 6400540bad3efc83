package entries

import (
	"os"
	"path/filepath"
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

func dates(txns []api.Transaction) []civil.Date {
	out := make([]civil.Date, len(txns))
	for i, t := range txns {
		out[i] = t.Date
	}
	return out
}

func TestParseManual(t *testing.T) {
	doc := `
- date: 2025-05-04
  description: Farmers Market
  merchant: CASH
  amount: 10
- date: "2025-05-06"
  description: Plumber
  amount: "185.25"
  category: home
  provider: tdvisa
`
	txns, err := ParseManual([]byte(doc), "manual.yaml")
	require.NoError(t, err)
	require.Len(t, txns, 2)

	assert.Equal(t, date(2025, 5, 4), txns[0].Date)
	assert.Equal(t, "CASH", txns[0].Merchant)
	assert.True(t, decimal.NewFromInt(10).Equal(txns[0].Amount))
	assert.Equal(t, api.ProviderManual, txns[0].Provider)
	assert.Empty(t, txns[0].Category)
	assert.Equal(t, "manual.yaml:2", txns[0].RawSource)

	assert.Equal(t, "home", txns[1].Category)
	assert.Equal(t, "tdvisa", txns[1].Provider)
	assert.True(t, decimal.RequireFromString("185.25").Equal(txns[1].Amount))
}

func TestParseManual_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing date", "- description: x\n  amount: 1\n"},
		{"bad date", "- date: 05/04/2025\n  amount: 1\n"},
		{"bad amount", "- date: 2025-05-04\n  amount: ten\n"},
		{"not a list", "date: 2025-05-04\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManual([]byte(tt.doc), "manual.yaml")
			assert.Error(t, err)
		})
	}
}

func TestLoadManual(t *testing.T) {
	dir := t.TempDir()

	txns, err := LoadManual(filepath.Join(dir, "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, txns)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte(""), 0o600))
	txns, err = LoadManual(empty)
	require.NoError(t, err)
	assert.Empty(t, txns)

	path := filepath.Join(dir, "manual.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- date: 2025-01-02\n  description: a\n  amount: 1\n"), 0o600))
	txns, err = LoadManual(path)
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestExpandRecurring(t *testing.T) {
	tests := []struct {
		name string
		in   Recurring
		want []civil.Date
	}{
		{
			name: "daily until end date",
			in:   Recurring{Cadence: "daily", StartDate: "2025-01-01", EndDate: "2025-01-03", Amount: "1"},
			want: []civil.Date{date(2025, 1, 1), date(2025, 1, 2), date(2025, 1, 3)},
		},
		{
			name: "weekly by count",
			in:   Recurring{Cadence: "weekly", StartDate: "2025-01-01", Count: 3, Amount: "2"},
			want: []civil.Date{date(2025, 1, 1), date(2025, 1, 8), date(2025, 1, 15)},
		},
		{
			name: "monthly clamps to month end",
			in:   Recurring{Cadence: "Monthly", StartDate: "2025-01-31", Count: 3, Amount: "3"},
			want: []civil.Date{date(2025, 1, 31), date(2025, 2, 28), date(2025, 3, 31)},
		},
		{
			name: "end date is inclusive",
			in:   Recurring{Cadence: "daily", StartDate: "2025-01-01", EndDate: "2025-01-05"},
			want: []civil.Date{date(2025, 1, 1), date(2025, 1, 2), date(2025, 1, 3), date(2025, 1, 4), date(2025, 1, 5)},
		},
		{
			name: "count and end date stop at first",
			in:   Recurring{Cadence: "monthly", StartDate: "2025-11-15", EndDate: "2026-01-15", Count: 12},
			want: []civil.Date{date(2025, 11, 15), date(2025, 12, 15), date(2026, 1, 15)},
		},
		{
			name: "end before start",
			in:   Recurring{Cadence: "daily", StartDate: "2025-02-01", EndDate: "2025-01-01"},
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandRecurring([]Recurring{tt.in})
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, dates(got))
		})
	}
}

func TestExpandRecurring_Fields(t *testing.T) {
	got, err := ExpandRecurring([]Recurring{{
		Description: "Streaming",
		Merchant:    "StreamCo",
		Amount:      "15",
		Category:    "subscriptions",
		Cadence:     "monthly",
		StartDate:   "2025-05-10",
		Count:       1,
	}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "StreamCo", got[0].Merchant)
	assert.Equal(t, "subscriptions", got[0].Category)
	assert.Equal(t, api.ProviderRecurring, got[0].Provider)
	assert.True(t, decimal.NewFromInt(15).Equal(got[0].Amount))
}

func TestExpandRecurring_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   Recurring
	}{
		{"missing cadence", Recurring{StartDate: "2025-01-01", Count: 1}},
		{"unknown cadence", Recurring{Cadence: "yearly", StartDate: "2025-01-01", Count: 1}},
		{"missing start", Recurring{Cadence: "daily", Count: 1}},
		{"no end or count", Recurring{Cadence: "daily", StartDate: "2025-01-01"}},
		{"negative count", Recurring{Cadence: "daily", StartDate: "2025-01-01", Count: -1}},
		{"bad end", Recurring{Cadence: "daily", StartDate: "2025-01-01", EndDate: "soon"}},
		{"bad amount", Recurring{Cadence: "daily", StartDate: "2025-01-01", Count: 1, Amount: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExpandRecurring([]Recurring{tt.in})
			assert.Error(t, err)
		})
	}
}

func TestAddMonths(t *testing.T) {
	assert.Equal(t, date(2024, 2, 29), AddMonths(date(2024, 1, 31), 1))
	assert.Equal(t, date(2026, 1, 31), AddMonths(date(2025, 12, 31), 1))
	assert.Equal(t, date(2024, 11, 30), AddMonths(date(2025, 1, 30), -2))
	assert.Equal(t, date(2025, 1, 30), AddMonths(date(2025, 1, 30), 0))
}
