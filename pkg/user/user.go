// Package user stores accounts and their roles.
package user

import (
	"context"
	"strings"
	"time"

	"stockflow/pkg/apperr"
)

// Role is a capability tag carried by an account and its tokens.
type Role string

const (
	Seller          Role = "SELLER"
	CommercialAgent Role = "COMMERCIAL_AGENT"
	IndustrialAgent Role = "INDUSTRIAL_AGENT"
	Admin           Role = "ADMIN"
)

// ParseRole normalizes s into a known role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case Seller, CommercialAgent, IndustrialAgent, Admin:
		return r, nil
	}
	return "", apperr.New(apperr.KindInvalidArgument, "unknown role: "+s)
}

// HasAny reports whether roles contains any of want.
func HasAny(roles []Role, want ...Role) bool {
	for _, r := range roles {
		for _, w := range want {
			if r == w {
				return true
			}
		}
	}
	return false
}

// User is an account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ErrNotFound indicates the requested user does not exist.
var ErrNotFound = apperr.New(apperr.KindNotFound, "user not found")

// ErrEmailTaken indicates another account already uses the email.
var ErrEmailTaken = apperr.New(apperr.KindConflict, "email already in use")

// Repository defines behavior for persisting users.
type Repository interface {
	// Create fails with ErrEmailTaken when the email is already registered.
	Create(ctx context.Context, u User) error
	Get(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Count(ctx context.Context) (int, error)
}
