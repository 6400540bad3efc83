package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArionMiles/budgify/pkg/api"
)

func tx(m time.Month, d int, desc, category, amount string) api.Transaction {
	return api.Transaction{
		Date:        civil.Date{Year: 2025, Month: m, Day: d},
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
		Category:    category,
		Provider:    "tdvisa",
		RawSource:   "stmt.csv:1",
	}
}

func newWriter(t *testing.T) (*Writer, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db", "budgify.db")
	w, err := New(Config{Path: path}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w, path
}

func TestAppend_Idempotent(t *testing.T) {
	ctx := context.Background()
	w, _ := newWriter(t)

	txns := []api.Transaction{
		tx(1, 5, "Coffee Shop", "restaurants", "4.50"),
		tx(1, 9, "Grocer", "groceries", "30"),
		tx(2, 1, "Shell", "gas", "60"),
	}
	year := api.Period{Year: 2025}
	require.NoError(t, w.Append(ctx, txns, year))
	require.NoError(t, w.Append(ctx, txns, year))

	got, err := w.Load(ctx, year)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range got {
		assert.Equal(t, txns[i].Identity().Key(), got[i].Identity().Key())
		assert.Equal(t, "stmt.csv:1", got[i].RawSource)
	}
}

func TestAppend_RefreshesCategory(t *testing.T) {
	ctx := context.Background()
	w, _ := newWriter(t)

	orig := tx(1, 5, "NETFLIX.COM", "uncategorized", "15")
	require.NoError(t, w.Append(ctx, []api.Transaction{orig}, api.Period{Year: 2025}))

	fixed := orig
	fixed.Category = "subscriptions"
	require.NoError(t, w.Append(ctx, []api.Transaction{fixed}, api.Period{Year: 2025}))

	got, err := w.Load(ctx, api.Period{Year: 2025})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "subscriptions", got[0].Category)
}

func TestAppend_PeriodScope(t *testing.T) {
	ctx := context.Background()
	w, _ := newWriter(t)

	txns := []api.Transaction{
		tx(1, 5, "a", "x", "1"),
		tx(2, 28, "b", "x", "2"),
		{Date: civil.Date{Year: 2024, Month: 12, Day: 31}, Description: "old", Amount: decimal.NewFromInt(3), Category: "x", Provider: "tdvisa"},
	}
	require.NoError(t, w.Append(ctx, txns, api.Period{Year: 2025, Month: 2}))

	got, err := w.Load(ctx, api.Period{Year: 2025})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Description)

	feb, err := w.Load(ctx, api.Period{Year: 2025, Month: 2})
	require.NoError(t, err)
	assert.Len(t, feb, 1)

	jan, err := w.Load(ctx, api.Period{Year: 2025, Month: 1})
	require.NoError(t, err)
	assert.Empty(t, jan)
}

func TestYearsAndRuns(t *testing.T) {
	w, _ := newWriter(t)
	ctx := api.WithRunID(context.Background(), "run-1")

	txns := []api.Transaction{
		tx(3, 1, "a", "x", "1"),
		{Date: civil.Date{Year: 2024, Month: 6, Day: 1}, Description: "b", Amount: decimal.NewFromInt(2), Category: "x", Provider: "amex"},
	}
	require.NoError(t, w.Append(ctx, txns, api.Period{Year: 2024}))
	require.NoError(t, w.Append(ctx, txns, api.Period{Year: 2025}))

	years, err := w.Years(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2024, 2025}, years)

	runs, err := w.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	for _, r := range runs {
		assert.Equal(t, "run-1", r.ID)
		assert.Equal(t, 1, r.Count)
	}
	assert.ElementsMatch(t, []string{"2024", "2025"}, []string{runs[0].Period, runs[1].Period})
}

func TestNew_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	w, path := newWriter(t)
	require.NoError(t, w.Append(ctx, []api.Transaction{tx(1, 1, "a", "x", "1")}, api.Period{Year: 2025}))
	require.NoError(t, w.Close())

	reopened, err := New(Config{Path: path}, nil)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(ctx, api.Period{Year: 2025})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)
}
