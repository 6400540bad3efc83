// Package api defines the core interfaces and data structures for budgify.
package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Uncategorized is the label assigned when no category rule matches.
const Uncategorized = "uncategorized"

// Providers used for entries that do not come from a bank statement.
const (
	ProviderManual    = "manual"
	ProviderRecurring = "recurring"
)

// Transaction is the canonical, normalized record produced by loaders.
type Transaction struct {
	Date        civil.Date      `json:"date"`
	Description string          `json:"description"`
	Merchant    string          `json:"merchant,omitempty"`
	// Amount is signed: debits are positive, credits and payments negative.
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	// Provider identifies the source bank or account (the loader key).
	Provider string `json:"provider"`
	// RawSource points back to the originating file and line.
	RawSource string `json:"raw_source,omitempty"`
}

// Identity is the composite key used to decide whether two transactions are
// the same economic event.
type Identity struct {
	Date        civil.Date
	Amount      decimal.Decimal
	Description string
	Provider    string
}

// Identity returns the dedup identity of the transaction.
func (t Transaction) Identity() Identity {
	return Identity{
		Date:        t.Date,
		Amount:      t.Amount,
		Description: NormalizeDescription(t.Description),
		Provider:    t.Provider,
	}
}

// Key returns a deterministic string form of the identity. Amounts that are
// numerically equal (4.5 and 4.50) produce the same key. The description is
// length prefixed, so separators inside it cannot make two identities collide.
func (id Identity) Key() string {
	return fmt.Sprintf("%s|%s|%d:%s|%s", id.Date, id.Amount.String(), len(id.Description), id.Description, id.Provider)
}

// Hash returns the hex sha256 of Key. Stores use it as a unique column.
func (id Identity) Hash() string {
	sum := sha256.Sum256([]byte(id.Key()))
	return hex.EncodeToString(sum[:])
}

// NormalizeDescription lowercases s, trims it and collapses whitespace runs.
func NormalizeDescription(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// DisplayMerchant returns the merchant, falling back to the description.
func (t Transaction) DisplayMerchant() string {
	if m := strings.TrimSpace(t.Merchant); m != "" {
		return m
	}
	return strings.TrimSpace(t.Description)
}

// RowError describes a single statement row that could not be parsed.
type RowError struct {
	// Line is the 1-based line (or sheet row) number in the source file.
	Line int    `json:"line"`
	Raw  string `json:"raw,omitempty"`
	Err  error  `json:"-"`
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// LoadResult is the output of a single Load call.
type LoadResult struct {
	Transactions []Transaction
	// RowErrors lists rows that were skipped because they failed to parse.
	RowErrors []RowError
	// Payments is the number of payment rows dropped.
	Payments int
}

// Skipped returns the number of rows that did not produce a transaction.
func (r *LoadResult) Skipped() int {
	return len(r.RowErrors) + r.Payments
}

// Loader turns one statement file into normalized transactions.
// A returned error means the whole file could not be read; row level
// problems are reported through LoadResult.RowErrors.
type Loader interface {
	Load(path string, includePayments bool) (*LoadResult, error)
}

// Period scopes a sink write to a calendar year and optionally a month.
type Period struct {
	Year int `json:"year"`
	// Month is 1-12, or 0 for the whole year.
	Month int `json:"month,omitempty"`
}

// Label returns "2025" or "2025-05".
func (p Period) Label() string {
	if p.Month == 0 {
		return fmt.Sprintf("%04d", p.Year)
	}
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Contains reports whether d falls inside the period.
func (p Period) Contains(d civil.Date) bool {
	if d.Year != p.Year {
		return false
	}
	return p.Month == 0 || int(d.Month) == p.Month
}

// Sink persists the merged ledger.
// Append must be idempotent: calling it twice with the same transactions must
// not duplicate persisted rows.
type Sink interface {
	Name() string
	Append(ctx context.Context, transactions []Transaction, period Period) error
}

// LedgerSource is implemented by sinks that can read back the ledger they
// persisted, so they can act as the ledger of record between runs.
type LedgerSource interface {
	Load(ctx context.Context, period Period) ([]Transaction, error)
}

// YearLister is implemented by ledger sources that can enumerate the years
// they hold.
type YearLister interface {
	Years(ctx context.Context) ([]int, error)
}

type runIDKey struct{}

// WithRunID returns a context carrying the import run id, so sinks can tag
// what they write with the run that produced it.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the import run id carried by ctx, or "".
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
