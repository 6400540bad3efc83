package ledger

import (
	"sync"
	"sync/atomic"
)

// Store holds the current ledger for concurrent readers. Readers take a
// snapshot that is never mutated; writers build a new ledger and swap it in.
// Updates are serialized so merges never overlap.
type Store struct {
	current atomic.Pointer[Ledger]
	mu      sync.Mutex
}

// NewStore returns a store seeded with l (or an empty ledger).
func NewStore(l *Ledger) *Store {
	if l == nil {
		l = Empty()
	}
	s := &Store{}
	s.current.Store(l)
	return s
}

// Snapshot returns the current ledger.
func (s *Store) Snapshot() *Ledger {
	return s.current.Load()
}

// Swap replaces the current ledger and returns the previous one.
func (s *Store) Swap(l *Ledger) *Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l == nil {
		l = Empty()
	}
	return s.current.Swap(l)
}

// Update runs fn with the current ledger while holding the write lock and
// publishes the ledger it returns. If fn fails the current ledger is kept.
func (s *Store) Update(fn func(*Ledger) (*Ledger, error)) (*Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.current.Load())
	if err != nil {
		return nil, err
	}
	if next == nil {
		next = Empty()
	}
	s.current.Store(next)
	return next, nil
}
