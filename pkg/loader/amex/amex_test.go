package amex

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "amex_statement.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoad_Workbook(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Summary of Account Activity"},
		{},
		{"Date", "Date Processed", "Description", "Cardmember", "Amount", "Merchant"},
		{"05 Jan. 2025", "06 Jan. 2025", "FRESH MARKET #12 TORONTO", "J DOE", "$45.50", "Fresh Market"},
		{"20 Jan. 2025", "21 Jan. 2025", "BEAN HOUSE", "J DOE", "12.00", ""},
		{"22 Jan. 2025", "22 Jan. 2025", "PAYMENT RECEIVED - THANK YOU", "J DOE", "-500.00", ""},
		{"23 Jan. 2025", "23 Jan. 2025", "PENDING", "J DOE", "", ""},
	})

	res, err := New().Load(path, false)
	require.NoError(t, err)

	require.Len(t, res.Transactions, 2)
	assert.Equal(t, 1, res.Payments)
	assert.Empty(t, res.RowErrors)

	first := res.Transactions[0]
	assert.Equal(t, civil.Date{Year: 2025, Month: time.January, Day: 5}, first.Date)
	assert.Equal(t, "Fresh Market", first.Merchant)
	assert.Equal(t, "FRESH MARKET #12 TORONTO", first.Description)
	assert.True(t, decimal.RequireFromString("45.5").Equal(first.Amount))
	assert.Equal(t, Name, first.Provider)
	assert.Equal(t, path+":4", first.RawSource)

	assert.Equal(t, "BEAN HOUSE", res.Transactions[1].Merchant, "merchant falls back to description")
}

func TestLoad_WorkbookIncludePayments(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Date", "Description", "Amount"},
		{"2025-01-22", "PAYMENT RECEIVED - THANK YOU", "-500.00"},
		{"2025-01-23", "REFUND", "-10.00"},
	})

	res, err := New().Load(path, true)
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)
	assert.True(t, decimal.RequireFromString("-500").Equal(res.Transactions[0].Amount))
}

func TestLoad_CSV(t *testing.T) {
	input := `Date,Description,Amount
01/05/2025,FRESH MARKET,45.50
not a date,BROKEN,1.00
01/06/2025,REFUND,-3.25
`
	path := filepath.Join(t.TempDir(), "amex.csv")
	require.NoError(t, os.WriteFile(path, []byte(input), 0o600))

	res, err := New().Load(path, false)
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)
	assert.True(t, decimal.RequireFromString("-3.25").Equal(res.Transactions[1].Amount), "refunds are not payments")
	require.Len(t, res.RowErrors, 1)
	assert.Equal(t, 3, res.RowErrors[0].Line)
}

func TestParseCSV_NoHeader(t *testing.T) {
	_, err := New().ParseCSV(strings.NewReader("a,b,c\n1,2,3\n"), "amex.csv", false)
	assert.Error(t, err)
}

func TestLoad_LegacyWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "amex.xls")
	require.NoError(t, os.WriteFile(path, []byte("binary"), 0o600))

	_, err := New().Load(path, false)
	assert.ErrorContains(t, err, ".xls")
}
