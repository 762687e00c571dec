// Package memory implements an in-memory product repository.
package memory

import (
	"context"
	"sort"
	"sync"

	"stockflow/pkg/product"
)

// Repository provides an in-memory implementation of product.Repository.
type Repository struct {
	mu       sync.RWMutex
	units    map[string]product.Unit
	bundles  map[string]product.Bundle
	bundleOf map[string]string
}

// New creates a new in-memory repository.
func New() *Repository {
	return &Repository{
		units:    make(map[string]product.Unit),
		bundles:  make(map[string]product.Bundle),
		bundleOf: make(map[string]string),
	}
}

// CreateUnit stores the unit.
func (r *Repository) CreateUnit(ctx context.Context, u product.Unit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.units[u.ID] = u
	return nil
}

// GetUnit retrieves a unit by ID.
func (r *Repository) GetUnit(ctx context.Context, id string) (product.Unit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.units[id]
	if !ok {
		return product.Unit{}, product.ErrNotFound
	}
	return u, nil
}

// ListUnits returns all units, oldest first.
func (r *Repository) ListUnits(ctx context.Context) ([]product.Unit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]product.Unit, 0, len(r.units))
	for _, u := range r.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// CreateBundle stores the bundle and claims its units.
func (r *Repository) CreateBundle(ctx context.Context, b product.Bundle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range b.UnitIDs {
		if _, taken := r.bundleOf[id]; taken {
			return product.ErrAlreadyBundled
		}
	}
	b.UnitIDs = append([]string(nil), b.UnitIDs...)
	r.bundles[b.ID] = b
	for _, id := range b.UnitIDs {
		r.bundleOf[id] = b.ID
	}
	return nil
}

// GetBundle retrieves a bundle by ID.
func (r *Repository) GetBundle(ctx context.Context, id string) (product.Bundle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bundles[id]
	if !ok {
		return product.Bundle{}, product.ErrNotFound
	}
	return b, nil
}

// ListBundles returns all bundles, oldest first.
func (r *Repository) ListBundles(ctx context.Context) ([]product.Bundle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]product.Bundle, 0, len(r.bundles))
	for _, b := range r.bundles {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// BundledUnits returns the ids already claimed by a bundle.
func (r *Repository) BundledUnits(ctx context.Context, ids []string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, id := range ids {
		if _, ok := r.bundleOf[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}
