// Package hometrust loads Home Trust credit card CSV statements.
package hometrust

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ArionMiles/budgify/pkg/api"
	"github.com/ArionMiles/budgify/pkg/loader"
)

// Name is the loader key and the provider of the transactions it yields.
const Name = "hometrust"

// Required header labels. Home Trust headers are matched exactly.
const (
	colDate     = "Trans Date"
	colMerchant = "Merchant Name"
	colAmount   = "Amount"
)

var paymentMerchants = map[string]bool{
	"scotiabank payment": true,
	"payment":            true,
}

// ErrPaymentNotNegative is recorded when an included payment row is not a credit.
var ErrPaymentNotNegative = errors.New("payment amount is not negative")

// Loader implements api.Loader.
type Loader struct{}

// New returns a Home Trust loader.
func New() *Loader {
	return &Loader{}
}

// Load reads the statement at path.
func (l *Loader) Load(path string, includePayments bool) (*api.LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening statement: %w", err)
	}
	defer f.Close()

	return Parse(f, path, includePayments)
}

// Parse reads a statement from r. source names the file in RawSource.
func Parse(r io.Reader, source string, includePayments bool) (*api.LoadResult, error) {
	records, err := loader.ReadCSV(r)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("statement is empty")
	}

	cols := make(map[string]int, len(records[0].Fields))
	for i, label := range records[0].Fields {
		cols[strings.TrimSpace(label)] = i
	}
	for _, required := range []string{colDate, colMerchant, colAmount} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	result := &api.LoadResult{}
	for _, rec := range records[1:] {
		row, line := rec.Fields, rec.Line
		if loader.IsBlank(row) {
			continue
		}

		t, err := parseRow(row, cols)
		if err != nil {
			result.RowErrors = append(result.RowErrors, api.RowError{Line: line, Raw: loader.RawLine(row), Err: err})
			continue
		}
		t.RawSource = loader.Source(source, line)

		if paymentMerchants[strings.ToLower(t.Merchant)] {
			if !includePayments {
				result.Payments++
				continue
			}
			if !t.Amount.IsNegative() {
				result.RowErrors = append(result.RowErrors, api.RowError{Line: line, Raw: loader.RawLine(row), Err: ErrPaymentNotNegative})
				continue
			}
		}
		result.Transactions = append(result.Transactions, t)
	}
	return result, nil
}

func parseRow(row []string, cols map[string]int) (api.Transaction, error) {
	date, err := loader.ParseDateLayout(loader.Cell(row, cols[colDate]), "01/02/2006")
	if err != nil {
		return api.Transaction{}, err
	}

	raw := loader.Cell(row, cols[colAmount])
	amount, err := loader.CleanAmount(raw, loader.Unsigned)
	if err != nil {
		return api.Transaction{}, err
	}
	if strings.Contains(raw, "(") && strings.Contains(raw, ")") {
		amount = amount.Neg()
	}

	merchant := loader.Cell(row, cols[colMerchant])
	return api.Transaction{
		Date:        date,
		Description: merchant,
		Merchant:    merchant,
		Amount:      amount,
		Provider:    Name,
	}, nil
}
