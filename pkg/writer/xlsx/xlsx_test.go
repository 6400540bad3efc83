package xlsx

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ArionMiles/budgify/pkg/api"
)

func tx(m time.Month, d int, merchant, category, amount string) api.Transaction {
	return api.Transaction{
		Date:        civil.Date{Year: 2025, Month: m, Day: d},
		Description: merchant,
		Merchant:    merchant,
		Amount:      decimal.RequireFromString(amount),
		Category:    category,
		Provider:    "amex",
	}
}

func TestWriter_Workbook(t *testing.T) {
	ctx := context.Background()
	w, err := New(Config{Dir: t.TempDir()}, nil)
	require.NoError(t, err)

	txns := []api.Transaction{
		tx(1, 5, "Fresh Market", "groceries", "45.5"),
		tx(1, 20, "Bean House", "restaurants", "12"),
		tx(2, 1, "Shell", "gas", "60"),
	}
	require.NoError(t, w.Append(ctx, txns, api.Period{Year: 2025}))

	f, err := excelize.OpenFile(w.Path(2025))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SummarySheet, AllDataSheet, "January 2025", "February 2025"}, f.GetSheetList())

	summary, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"Category", "January 2025", "February 2025", "Total"}, summary[0])
	assert.Equal(t, []string{"gas", "0", "60", "60"}, summary[1])
	assert.Equal(t, []string{"Total", "57.5", "60", "117.5"}, summary[len(summary)-1])

	jan, err := f.GetRows("January 2025")
	require.NoError(t, err)
	assert.Len(t, jan, 3)
	assert.Equal(t, "Fresh Market", jan[1][1])

	got, err := w.Load(ctx, api.Period{Year: 2025})
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range got {
		assert.Equal(t, txns[i].Identity().Key(), got[i].Identity().Key())
	}
}

func TestWriter_MonthScopedAppend(t *testing.T) {
	ctx := context.Background()
	w, err := New(Config{Dir: t.TempDir()}, nil)
	require.NoError(t, err)

	require.NoError(t, w.Append(ctx, []api.Transaction{tx(1, 5, "a", "x", "1")}, api.Period{Year: 2025}))
	require.NoError(t, w.Append(ctx, []api.Transaction{tx(3, 5, "b", "x", "2")}, api.Period{Year: 2025, Month: 3}))

	got, err := w.Load(ctx, api.Period{Year: 2025})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	mar, err := w.Load(ctx, api.Period{Year: 2025, Month: 3})
	require.NoError(t, err)
	require.Len(t, mar, 1)
	assert.Equal(t, "b", mar[0].Merchant)
}

func TestWriter_LoadMissing(t *testing.T) {
	w, err := New(Config{Dir: t.TempDir()}, nil)
	require.NoError(t, err)

	got, err := w.Load(context.Background(), api.Period{Year: 2025})
	require.NoError(t, err)
	assert.Empty(t, got)
}
