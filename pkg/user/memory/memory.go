// Package memory implements an in-memory user repository.
package memory

import (
	"context"
	"strings"
	"sync"

	"stockflow/pkg/user"
)

// Repository provides an in-memory implementation of user.Repository.
type Repository struct {
	mu      sync.RWMutex
	users   map[string]user.User
	byEmail map[string]string
}

// New creates a new in-memory repository.
func New() *Repository {
	return &Repository{users: make(map[string]user.User), byEmail: make(map[string]string)}
}

// Create stores the user.
func (r *Repository) Create(ctx context.Context, u user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(u.Email)
	if _, ok := r.byEmail[key]; ok {
		return user.ErrEmailTaken
	}
	r.users[u.ID] = u
	r.byEmail[key] = u.ID
	return nil
}

// Get retrieves a user by ID.
func (r *Repository) Get(ctx context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

// GetByEmail retrieves a user by email, case-insensitively.
func (r *Repository) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return r.users[id], nil
}

// Count returns the number of users.
func (r *Repository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users), nil
}
