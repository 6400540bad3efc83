// Package ledger implements the deduplicated, date-ordered transaction ledger
// and the merge algorithm that keeps it consistent across repeated imports.
package ledger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ArionMiles/budgify/pkg/api"
)

// ErrNotFound is returned when an identity is not present in the ledger.
var ErrNotFound = errors.New("transaction not found")

// Ledger is an immutable, sorted collection of transactions with unique
// identities. Every mutating operation returns a new Ledger.
type Ledger struct {
	entries []api.Transaction
	index   map[string]int
}

// MergeStats describes the outcome of a Merge.
type MergeStats struct {
	// Added is the number of incoming transactions appended to the ledger.
	Added int `json:"added"`
	// Duplicates is the number of incoming transactions discarded because
	// their identity already existed (in the ledger or earlier in the batch).
	Duplicates int `json:"duplicates"`
}

// Empty returns a ledger with no entries.
func Empty() *Ledger {
	return &Ledger{index: map[string]int{}}
}

// New builds a ledger from txns, collapsing duplicate identities. The first
// occurrence of an identity wins.
func New(txns ...api.Transaction) *Ledger {
	l, _ := Empty().Merge(txns)
	return l
}

// Merge returns a new ledger containing the receiver's entries plus every
// incoming transaction whose identity is not already present. Existing
// entries always win, so categories corrected in the persisted copy survive
// re-imports. Merging an empty batch returns the receiver itself.
func (l *Ledger) Merge(incoming []api.Transaction) (*Ledger, MergeStats) {
	if l == nil {
		l = Empty()
	}
	if len(incoming) == 0 {
		return l, MergeStats{}
	}

	entries := make([]api.Transaction, len(l.entries), len(l.entries)+len(incoming))
	copy(entries, l.entries)
	seen := make(map[string]struct{}, len(l.entries)+len(incoming))
	for k := range l.index {
		seen[k] = struct{}{}
	}

	var stats MergeStats
	for _, t := range incoming {
		key := t.Identity().Key()
		if _, ok := seen[key]; ok {
			stats.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		entries = append(entries, t)
		stats.Added++
	}

	if stats.Added == 0 {
		return l, stats
	}
	return build(entries), stats
}

// build sorts entries by date and indexes them. Stable sorting keeps
// insertion order for equal dates.
func build(entries []api.Transaction) *Ledger {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date)
	})
	index := make(map[string]int, len(entries))
	for i, t := range entries {
		index[t.Identity().Key()] = i
	}
	return &Ledger{entries: entries, index: index}
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

// Transactions returns a copy of the entries in ledger order.
func (l *Ledger) Transactions() []api.Transaction {
	if l == nil {
		return nil
	}
	return append([]api.Transaction(nil), l.entries...)
}

// Get returns the entry with the given identity.
func (l *Ledger) Get(id api.Identity) (api.Transaction, bool) {
	if l == nil {
		return api.Transaction{}, false
	}
	i, ok := l.index[id.Key()]
	if !ok {
		return api.Transaction{}, false
	}
	return l.entries[i], true
}

// Contains reports whether an entry with t's identity exists.
func (l *Ledger) Contains(t api.Transaction) bool {
	_, ok := l.Get(t.Identity())
	return ok
}

// SetCategory returns a new ledger where the entry with the given identity
// carries category. This is the manual correction path.
func (l *Ledger) SetCategory(id api.Identity, category string) (*Ledger, error) {
	i, ok := l.indexOf(id)
	if !ok {
		return nil, fmt.Errorf("setting category for %s: %w", id.Key(), ErrNotFound)
	}
	entries := l.Transactions()
	entries[i].Category = category
	return &Ledger{entries: entries, index: l.index}, nil
}

func (l *Ledger) indexOf(id api.Identity) (int, bool) {
	if l == nil {
		return 0, false
	}
	i, ok := l.index[id.Key()]
	return i, ok
}

// Recategorize returns a new ledger with categories recomputed by fn. Unless
// all is set only uncategorized entries are touched, leaving manual
// corrections alone. The second result is the number of changed entries.
func (l *Ledger) Recategorize(fn func(api.Transaction) string, all bool) (*Ledger, int) {
	entries := l.Transactions()
	changed := 0
	for i := range entries {
		if !all && entries[i].Category != "" && entries[i].Category != api.Uncategorized {
			continue
		}
		if c := fn(entries[i]); c != entries[i].Category {
			entries[i].Category = c
			changed++
		}
	}
	if changed == 0 {
		return l, 0
	}
	return &Ledger{entries: entries, index: l.index}, changed
}

// Filter returns the entries for which keep returns true, in ledger order.
func (l *Ledger) Filter(keep func(api.Transaction) bool) []api.Transaction {
	var out []api.Transaction
	if l == nil {
		return out
	}
	for _, t := range l.entries {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// Period returns the entries that fall inside p.
func (l *Ledger) Period(p api.Period) []api.Transaction {
	return l.Filter(func(t api.Transaction) bool { return p.Contains(t.Date) })
}

// Years returns the distinct years present in the ledger, ascending.
func (l *Ledger) Years() []int {
	if l == nil {
		return nil
	}
	var years []int
	for _, t := range l.entries {
		if n := len(years); n == 0 || years[n-1] != t.Date.Year {
			years = append(years, t.Date.Year)
		}
	}
	return years
}
