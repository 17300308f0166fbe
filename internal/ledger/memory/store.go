package memory

import (
	"context"
	"fmt"
	"sync"

	"bookkeeper/internal/core"
	"bookkeeper/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

// Store keeps the ledger in process memory. It counts as initialized after
// the first append, or when seeded.
type Store struct {
	mu          sync.Mutex
	initialized bool
	rows        []core.Row
}

func New() *Store {
	return &Store{}
}

// NewWithRows returns an initialized store holding raw rows, which lets
// tests feed malformed lines to the analytics engine.
func NewWithRows(rows ...core.Row) *Store {
	s := &Store{initialized: true}
	for _, r := range rows {
		s.rows = append(s.rows, cloneRow(r))
	}
	return s
}

// Append stores the record and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, r core.TransactionRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
	s.rows = append(s.rows, r.Row())
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

func (s *Store) LoadAll(_ context.Context) ([]core.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil, core.NotFoundError(core.OpLoad, "memory ledger")
	}
	out := make([]core.Row, len(s.rows))
	for i, r := range s.rows {
		out[i] = cloneRow(r)
	}
	return out, nil
}

// Len returns the number of stored rows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func cloneRow(r core.Row) core.Row {
	out := make(core.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
