package ledger

import (
	"slices"

	"github.com/ArionMiles/budgify/pkg/api"
)

// Reconcile aligns manual entries with statement rows describing the same
// event, so Merge sees a single identity. Two transactions match when date,
// amount and normalized description agree.
//
// A manual entry in incoming adopts the provider of a matching statement row,
// looked up in the ledger first and then in incoming. A statement row in
// incoming that matches a manual entry already in the ledger adopts the
// manual provider and so deduplicates against it. Recurring entries are left
// alone. incoming itself is not modified.
func (l *Ledger) Reconcile(incoming []api.Transaction) []api.Transaction {
	existing := make(map[string][]string)
	for _, t := range l.Transactions() {
		k := eventKey(t)
		existing[k] = append(existing[k], t.Provider)
	}
	statements := make(map[string]string)
	for _, t := range incoming {
		if !isSupplement(t.Provider) {
			if _, ok := statements[eventKey(t)]; !ok {
				statements[eventKey(t)] = t.Provider
			}
		}
	}

	out := slices.Clone(incoming)
	for i, t := range out {
		k := eventKey(t)
		switch {
		case t.Provider == api.ProviderManual:
			if p := firstStatement(existing[k]); p != "" {
				out[i].Provider = p
			} else if p, ok := statements[k]; ok {
				out[i].Provider = p
			}
		case !isSupplement(t.Provider):
			provs := existing[k]
			if slices.Contains(provs, api.ProviderManual) && !slices.Contains(provs, t.Provider) {
				out[i].Provider = api.ProviderManual
			}
		}
	}
	return out
}

// eventKey is the identity key with the provider left out.
func eventKey(t api.Transaction) string {
	id := t.Identity()
	id.Provider = ""
	return id.Key()
}

func isSupplement(provider string) bool {
	return provider == api.ProviderManual || provider == api.ProviderRecurring
}

func firstStatement(providers []string) string {
	for _, p := range providers {
		if !isSupplement(p) {
			return p
		}
	}
	return ""
}
