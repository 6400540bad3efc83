package entries

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/ArionMiles/budgify/pkg/api"
	"github.com/ArionMiles/budgify/pkg/loader"
)

// Cadence values.
const (
	Daily   = "daily"
	Weekly  = "weekly"
	Monthly = "monthly"
)

// Recurring is a schedule from the recurring_transactions config list.
// Either EndDate (inclusive) or Count must be set; with both, expansion stops
// at whichever comes first.
type Recurring struct {
	Description string `koanf:"description" yaml:"description"`
	Merchant    string `koanf:"merchant"    yaml:"merchant"`
	Amount      string `koanf:"amount"      yaml:"amount"`
	Category    string `koanf:"category"    yaml:"category"`
	Provider    string `koanf:"provider"    yaml:"provider"`
	Cadence     string `koanf:"cadence"     yaml:"cadence"`
	StartDate   string `koanf:"start_date"  yaml:"start_date"`
	EndDate     string `koanf:"end_date"    yaml:"end_date"`
	Count       int    `koanf:"count"       yaml:"count"`
}

// ExpandRecurring expands every schedule into concrete transactions.
func ExpandRecurring(schedules []Recurring) ([]api.Transaction, error) {
	var out []api.Transaction
	for i, r := range schedules {
		txns, err := r.Expand()
		if err != nil {
			return nil, fmt.Errorf("recurring entry %d (%s): %w", i+1, r.Description, err)
		}
		out = append(out, txns...)
	}
	return out, nil
}

// Expand returns the occurrences of r.
func (r Recurring) Expand() ([]api.Transaction, error) {
	cadence := strings.ToLower(strings.TrimSpace(r.Cadence))
	switch cadence {
	case Daily, Weekly, Monthly:
	case "":
		return nil, errors.New("missing cadence")
	default:
		return nil, fmt.Errorf("unsupported cadence %q", r.Cadence)
	}

	if strings.TrimSpace(r.StartDate) == "" {
		return nil, errors.New("missing start_date")
	}
	start, err := loader.ParseDateLayout(r.StartDate, "2006-01-02")
	if err != nil {
		return nil, fmt.Errorf("start_date: %w", err)
	}

	var end civil.Date
	hasEnd := strings.TrimSpace(r.EndDate) != ""
	if hasEnd {
		if end, err = loader.ParseDateLayout(r.EndDate, "2006-01-02"); err != nil {
			return nil, fmt.Errorf("end_date: %w", err)
		}
	}
	switch {
	case !hasEnd && r.Count == 0:
		return nil, errors.New("either end_date or count is required")
	case r.Count < 0:
		return nil, errors.New("count must be greater than 0")
	}

	amount, err := parseAmount(r.Amount)
	if err != nil {
		return nil, err
	}
	provider := r.Provider
	if provider == "" {
		provider = api.ProviderRecurring
	}

	var out []api.Transaction
	for n := 0; ; n++ {
		if r.Count > 0 && n >= r.Count {
			break
		}
		d := occurrence(start, cadence, n)
		if hasEnd && d.After(end) {
			break
		}
		out = append(out, api.Transaction{
			Date:        d,
			Description: r.Description,
			Merchant:    r.Merchant,
			Amount:      amount,
			Category:    r.Category,
			Provider:    provider,
			RawSource:   "recurring:" + r.Description,
		})
	}
	return out, nil
}

// occurrence returns the n-th date of the schedule. Monthly dates are
// computed from start so a day-31 schedule returns to day 31 after February.
func occurrence(start civil.Date, cadence string, n int) civil.Date {
	switch cadence {
	case Daily:
		return start.AddDays(n)
	case Weekly:
		return start.AddDays(7 * n)
	default:
		return AddMonths(start, n)
	}
}

// AddMonths adds n calendar months to d, clamping the day to the end of
// the target month.
func AddMonths(d civil.Date, n int) civil.Date {
	idx := int(d.Month) - 1 + n
	year := d.Year + idx/12
	month := idx%12 + 1
	if month <= 0 {
		month += 12
		year--
	}
	last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	day := d.Day
	if day > last {
		day = last
	}
	return civil.Date{Year: year, Month: time.Month(month), Day: day}
}
