// Package session tracks revoked access tokens until they expire.
package session

import (
	"context"
	"sync"
	"time"
)

// Revoker is the contract shared by the in-process registry and the redis one.
type Revoker interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// Registry is an in-process Revoker. Expired entries are pruned lazily on lookup.
type Registry struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewRegistry creates a registry using the wall clock.
func NewRegistry() *Registry {
	return NewRegistryWithClock(time.Now)
}

// NewRegistryWithClock creates a registry reading time from now.
func NewRegistryWithClock(now func() time.Time) *Registry {
	return &Registry{revoked: make(map[string]time.Time), now: now}
}

// Revoke records token as revoked until expiresAt, replacing any earlier entry.
func (r *Registry) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[token] = expiresAt
	return nil
}

// IsRevoked reports whether token is revoked and not yet expired.
func (r *Registry) IsRevoked(_ context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.revoked[token]
	if !ok {
		return false, nil
	}
	if !r.now().Before(exp) {
		delete(r.revoked, token)
		return false, nil
	}
	return true, nil
}

// Len returns the number of entries currently held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.revoked)
}
