package json

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArionMiles/budgify/pkg/api"
)

func TestWriter_RoundTrip(t *testing.T) {
	ctx := context.Background()
	w, err := New(Config{Dir: t.TempDir(), Indent: true}, nil)
	require.NoError(t, err)

	txns := []api.Transaction{{
		Date:        civil.Date{Year: 2025, Month: time.March, Day: 9},
		Description: "Home Depot",
		Amount:      decimal.RequireFromString("210.00"),
		Category:    "home",
		Provider:    api.ProviderManual,
	}}
	require.NoError(t, w.Append(ctx, txns, api.Period{Year: 2025}))

	data, err := os.ReadFile(w.Path(2025))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"date": "2025-03-09"`)
	assert.Contains(t, string(data), `"amount": "210"`)

	got, err := w.Load(ctx, api.Period{Year: 2025})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, txns[0].Identity().Key(), got[0].Identity().Key())
	assert.Equal(t, "home", got[0].Category)
}

func TestWriter_EmptyAndMissing(t *testing.T) {
	ctx := context.Background()
	w, err := New(Config{Dir: t.TempDir()}, nil)
	require.NoError(t, err)

	got, err := w.Load(ctx, api.Period{Year: 2025})
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, w.Append(ctx, nil, api.Period{Year: 2025}))
	got, err = w.Load(ctx, api.Period{Year: 2025})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriter_CorruptFile(t *testing.T) {
	ctx := context.Background()
	w, err := New(Config{Dir: t.TempDir()}, nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(w.Path(2025), []byte("{not json"), 0o600))

	_, err = w.Load(ctx, api.Period{Year: 2025})
	assert.Error(t, err)
	assert.Error(t, w.Append(ctx, nil, api.Period{Year: 2025}), "a corrupt file must not be overwritten")
}
