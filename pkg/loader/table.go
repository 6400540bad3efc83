package loader

import (
	"strings"

	"github.com/ArionMiles/budgify/pkg/api"
)

// Table parses statements whose header row is preceded by an arbitrary
// amount of boilerplate. The header is the first row with cells containing
// "date", "description" and "amount"; merchant falls back to description.
// A negative amount whose description mentions "payment" is a payment.
type Table struct {
	Provider string
}

// Parse converts records into transactions. source names the file in
// RawSource. Rows with an empty amount cell (section titles, totals, blank
// spacer rows) are skipped without a row error.
func (tb Table) Parse(records []Record, source string, includePayments bool) (*api.LoadResult, error) {
	h, err := FindHeader(Rows(records), "date", "description", "amount")
	if err != nil {
		return nil, err
	}

	dateCol, _ := h.Find("date")
	descCol, _ := h.Find("description")
	amountCol, _ := h.Find("amount")
	merchantCol, ok := h.Find("merchant")
	if !ok {
		merchantCol = descCol
	}

	result := &api.LoadResult{}
	for _, rec := range records[h.Index+1:] {
		row := rec.Fields
		if IsBlank(row) || Cell(row, amountCol) == "" {
			continue
		}

		date, err := ParseDate(Cell(row, dateCol))
		if err != nil {
			result.RowErrors = append(result.RowErrors, api.RowError{Line: rec.Line, Raw: RawLine(row), Err: err})
			continue
		}
		amount, err := CleanAmount(Cell(row, amountCol), Signed)
		if err != nil {
			result.RowErrors = append(result.RowErrors, api.RowError{Line: rec.Line, Raw: RawLine(row), Err: err})
			continue
		}

		desc := Cell(row, descCol)
		merchant := Cell(row, merchantCol)
		if merchant == "" {
			merchant = desc
		}
		if amount.IsNegative() && strings.Contains(strings.ToLower(desc), "payment") && !includePayments {
			result.Payments++
			continue
		}

		result.Transactions = append(result.Transactions, api.Transaction{
			Date:        date,
			Description: desc,
			Merchant:    merchant,
			Amount:      amount,
			Provider:    tb.Provider,
			RawSource:   Source(source, rec.Line),
		})
	}
	return result, nil
}
