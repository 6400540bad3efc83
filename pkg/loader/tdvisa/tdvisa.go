// Package tdvisa loads TD Visa CSV statements.
//
// The export has no header row. Columns are date (MM/DD/YYYY), description,
// debit, credit and balance. A row with an empty debit is a credit and gets
// a negative amount.
package tdvisa

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
const Name = "tdvisa"

const paymentDescription = "payment - thank you"

// ErrPaymentNotNegative is recorded when an included payment row is not a credit.
var ErrPaymentNotNegative = errors.New("payment amount is not negative")

// Loader implements api.Loader.
type Loader struct{}

// New returns a TD Visa loader.
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

	result := &api.LoadResult{}
	for _, rec := range records {
		row, line := rec.Fields, rec.Line
		if len(row) < 3 {
			continue
		}

		t, err := parseRow(row)
		if err != nil {
			result.RowErrors = append(result.RowErrors, api.RowError{Line: line, Raw: loader.RawLine(row), Err: err})
			continue
		}
		t.RawSource = loader.Source(source, line)

		if strings.ToLower(t.Description) == paymentDescription {
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

func parseRow(row []string) (api.Transaction, error) {
	date, err := loader.ParseDateLayout(row[0], "01/02/2006")
	if err != nil {
		return api.Transaction{}, err
	}

	raw, credit := loader.Cell(row, 2), false
	if raw == "" && loader.Cell(row, 3) != "" {
		raw, credit = loader.Cell(row, 3), true
	}
	amount, err := loader.CleanAmount(raw, loader.Signed)
	if err != nil {
		return api.Transaction{}, err
	}
	if credit {
		amount = amount.Abs().Neg()
	}

	desc := loader.Cell(row, 1)
	return api.Transaction{
		Date:        date,
		Description: desc,
		Merchant:    desc,
		Amount:      amount,
		Provider:    Name,
	}, nil
}
