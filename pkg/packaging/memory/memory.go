// Package memory implements an in-memory cart store.
package memory

import (
	"context"
	"sort"
	"sync"

	"stockflow/pkg/packaging"
)

// Store provides an in-memory implementation of packaging.Store.
type Store struct {
	mu     sync.RWMutex
	nextID int64
	carts  map[int64]packaging.Cart
}

// New creates an empty store.
func New() *Store {
	return &Store{carts: make(map[int64]packaging.Cart)}
}

// CreateCart adds an empty cart.
func (s *Store) CreateCart(ctx context.Context) (packaging.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	c := packaging.Cart{ID: s.nextID}
	s.carts[c.ID] = c
	return c, nil
}

// DeleteCart removes a cart by ID.
func (s *Store) DeleteCart(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[id]; !ok {
		return packaging.ErrNotFound
	}
	delete(s.carts, id)
	return nil
}

// SaveCart replaces an existing cart.
func (s *Store) SaveCart(ctx context.Context, c packaging.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[c.ID]; !ok {
		return packaging.ErrNotFound
	}
	c.BundleIDs = append([]string(nil), c.BundleIDs...)
	s.carts[c.ID] = c
	return nil
}

// ListCarts returns carts by ascending id.
func (s *Store) ListCarts(ctx context.Context) ([]packaging.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]packaging.Cart, 0, len(s.carts))
	for _, c := range s.carts {
		c.BundleIDs = append([]string(nil), c.BundleIDs...)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
