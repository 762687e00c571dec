// Package memory implements an in-memory subscription repository.
package memory

import (
	"context"
	"sort"
	"sync"

	"stockflow/pkg/event"
	"stockflow/pkg/webhook"
)

// Repository provides an in-memory implementation of webhook.Repository.
type Repository struct {
	mu   sync.RWMutex
	subs map[string]webhook.Subscription
}

// New creates a new in-memory repository.
func New() *Repository {
	return &Repository{subs: make(map[string]webhook.Subscription)}
}

// Create stores the subscription.
func (r *Repository) Create(ctx context.Context, s webhook.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.subs {
		if existing.TargetURL == s.TargetURL {
			return webhook.ErrDuplicateTarget
		}
	}
	s.EventTypes = append([]event.Type(nil), s.EventTypes...)
	r.subs[s.ID] = s
	return nil
}

// List returns all subscriptions, oldest first.
func (r *Repository) List(ctx context.Context) ([]webhook.Subscription, error) {
	return r.list(false), nil
}

// ListActive returns the active subscriptions, oldest first.
func (r *Repository) ListActive(ctx context.Context) ([]webhook.Subscription, error) {
	return r.list(true), nil
}

func (r *Repository) list(activeOnly bool) []webhook.Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]webhook.Subscription, 0, len(r.subs))
	for _, s := range r.subs {
		if activeOnly && !s.Active {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Delete removes a subscription.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[id]; !ok {
		return webhook.ErrNotFound
	}
	delete(r.subs, id)
	return nil
}
