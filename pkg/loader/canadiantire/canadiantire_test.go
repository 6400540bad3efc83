package canadiantire

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statement = `"Canadian Tire Triangle Mastercard"
"Statement period","Jan 1, 2025 - Jan 31, 2025"

"REF","TRANSACTION DATE","POSTED DATE","TYPE","DESCRIPTION","Category","AMOUNT"
"1","2025-02-01","2025-02-02","PURCHASE","SHELL C0042 TORONTO ON","Gas","60.00"
"2","2025-02-03","2025-02-04","PAYMENT","PAYMENT THANK YOU","","-250.00"
"3","2025-02-05","2025-02-06","PURCHASE","CANADIAN TIRE #123","Shopping","$1,024.99"
`

func TestParse(t *testing.T) {
	res, err := New().Parse(strings.NewReader(statement), "ct.csv", false)
	require.NoError(t, err)

	require.Len(t, res.Transactions, 2)
	assert.Equal(t, 1, res.Payments)
	assert.Empty(t, res.RowErrors)

	shell := res.Transactions[0]
	assert.Equal(t, "SHELL C0042 TORONTO ON", shell.Description)
	assert.Equal(t, shell.Description, shell.Merchant)
	assert.True(t, decimal.RequireFromString("60").Equal(shell.Amount))
	assert.Equal(t, 2, int(shell.Date.Month))
	assert.Equal(t, "ct.csv:5", shell.RawSource)
	assert.Equal(t, Name, shell.Provider)

	assert.True(t, decimal.RequireFromString("1024.99").Equal(res.Transactions[1].Amount))
}

func TestParse_IncludePayments(t *testing.T) {
	res, err := New().Parse(strings.NewReader(statement), "ct.csv", true)
	require.NoError(t, err)
	require.Len(t, res.Transactions, 3)
	assert.Zero(t, res.Payments)
}

func TestParse_MissingHeader(t *testing.T) {
	_, err := New().Parse(strings.NewReader("REF,DESCRIPTION,AMOUNT\n1,X,2\n"), "ct.csv", false)
	assert.Error(t, err)
}
