// Package memory implements an in-memory stock store.
package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"stockflow/pkg/stock"
)

// Store provides an in-memory implementation of stock.Store.
type Store struct {
	mu  sync.RWMutex
	qty map[stock.Category]decimal.Decimal
}

// New creates an empty store.
func New() *Store {
	return &Store{qty: make(map[stock.Category]decimal.Decimal)}
}

// Load returns a copy of the saved quantities.
func (s *Store) Load(ctx context.Context) (map[stock.Category]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[stock.Category]decimal.Decimal, len(s.qty))
	for c, q := range s.qty {
		out[c] = q
	}
	return out, nil
}

// Save stores qty for c.
func (s *Store) Save(ctx context.Context, c stock.Category, qty decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.qty[c] = qty
	return nil
}
