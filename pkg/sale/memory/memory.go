// Package memory implements an in-memory sale repository.
package memory

import (
	"context"
	"sort"
	"sync"

	"stockflow/pkg/sale"
)

// Repository provides an in-memory implementation of sale.Repository.
type Repository struct {
	mu    sync.RWMutex
	sales map[string]sale.Sale
}

// New creates a new in-memory repository.
func New() *Repository {
	return &Repository{sales: make(map[string]sale.Sale)}
}

// Create stores the sale.
func (r *Repository) Create(ctx context.Context, s sale.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.Lines = append([]sale.Line(nil), s.Lines...)
	r.sales[s.ID] = s
	return nil
}

// Get retrieves a sale by ID.
func (r *Repository) Get(ctx context.Context, id string) (sale.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sales[id]
	if !ok {
		return sale.Sale{}, sale.ErrNotFound
	}
	return s, nil
}

// List returns matching sales, oldest first.
func (r *Repository) List(ctx context.Context, f sale.Filter) ([]sale.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]sale.Sale, 0, len(r.sales))
	for _, s := range r.sales {
		if f.Match(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Count returns the number of sales.
func (r *Repository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sales), nil
}
