package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"stockflow/pkg/apperr"
	"stockflow/pkg/auth"
	"stockflow/pkg/session"
	"stockflow/pkg/user"
	"stockflow/pkg/user/memory"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newService(c *clock) (*auth.Service, *memory.Repository) {
	users := memory.New()
	svc := auth.NewService(users, session.NewRegistryWithClock(c.now), auth.Config{
		Secret:     "test-secret",
		TTL:        15 * time.Minute,
		BcryptCost: bcrypt.MinCost,
		Now:        c.now,
	})
	return svc, users
}

func TestSignupRoles(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(&clock{t: time.Now()})

	first, err := svc.Signup(ctx, auth.SignupInput{Email: "root@example.com", Password: "pw", Role: "admin"}, nil)
	if err != nil {
		t.Fatalf("bootstrap signup: %v", err)
	}
	if len(first.Roles) != 1 || first.Roles[0] != user.Admin || first.Token == "" {
		t.Fatalf("unexpected bootstrap result %+v", first)
	}

	if _, err := svc.Signup(ctx, auth.SignupInput{Email: "ia@example.com", Password: "pw", Role: "INDUSTRIAL_AGENT"}, nil); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	seller, err := svc.Signup(ctx, auth.SignupInput{Email: "s@example.com", Password: "pw"}, nil)
	if err != nil || seller.Roles[0] != user.Seller {
		t.Fatalf("default seller signup: %+v %v", seller, err)
	}

	admin, err := svc.Authenticate(ctx, first.Token)
	if err != nil {
		t.Fatalf("authenticate admin: %v", err)
	}
	agent, err := svc.Signup(ctx, auth.SignupInput{Email: "ca@example.com", Password: "pw", Role: "COMMERCIAL_AGENT"}, &admin)
	if err != nil || agent.Roles[0] != user.CommercialAgent {
		t.Fatalf("admin-created agent: %+v %v", agent, err)
	}

	if _, err := svc.Signup(ctx, auth.SignupInput{Email: "S@example.com", Password: "pw"}, nil); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := svc.Signup(ctx, auth.SignupInput{Email: "x@example.com", Password: "pw", Role: "OWNER"}, &admin); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected invalid role, got %v", err)
	}
	if _, err := svc.Signup(ctx, auth.SignupInput{Email: "", Password: "pw"}, nil); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected missing email rejected, got %v", err)
	}
}

func TestLoginLogout(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	svc, _ := newService(c)
	if _, err := svc.Signup(ctx, auth.SignupInput{Email: "s@example.com", Password: "secret"}, nil); err != nil {
		t.Fatalf("signup: %v", err)
	}

	if _, err := svc.Login(ctx, "s@example.com", "wrong"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "secret"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	res, err := svc.Login(ctx, "s@example.com", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !res.ExpiresAt.Equal(c.t.Add(15 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", res.ExpiresAt)
	}

	id, err := svc.Authenticate(ctx, res.Token)
	if err != nil || id.Email != "s@example.com" || !id.HasAny(user.Seller) {
		t.Fatalf("authenticate: %+v %v", id, err)
	}

	if err := svc.Logout(ctx, res.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Authenticate(ctx, res.Token); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected revoked token rejected, got %v", err)
	}

	for _, tok := range []string{"", "garbage"} {
		if err := svc.Logout(ctx, tok); err != nil {
			t.Fatalf("logout %q should be a no-op: %v", tok, err)
		}
	}
}

func TestTokenExpiry(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	svc, _ := newService(c)
	res, err := svc.Signup(ctx, auth.SignupInput{Email: "s@example.com", Password: "secret"}, nil)
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	c.t = c.t.Add(16 * time.Minute)
	if _, err := svc.Authenticate(ctx, res.Token); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected expired token rejected, got %v", err)
	}
}

func TestTokenFromAnotherSecret(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Now()}
	svc, users := newService(c)
	res, err := svc.Signup(ctx, auth.SignupInput{Email: "s@example.com", Password: "secret"}, nil)
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	other := auth.NewService(users, session.NewRegistry(), auth.Config{Secret: "other", BcryptCost: bcrypt.MinCost, Now: c.now})
	if _, err := other.Authenticate(ctx, res.Token); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected signature mismatch, got %v", err)
	}
}

func TestSeedAdmin(t *testing.T) {
	ctx := context.Background()
	svc, users := newService(&clock{t: time.Now()})
	created, err := svc.SeedAdmin(ctx, "admin@example.com", "pw")
	if err != nil || !created {
		t.Fatalf("seed: %v %v", created, err)
	}
	created, err = svc.SeedAdmin(ctx, "admin@example.com", "pw")
	if err != nil || created {
		t.Fatalf("second seed must be a no-op: %v %v", created, err)
	}
	u, err := users.GetByEmail(ctx, "admin@example.com")
	if err != nil || u.Role != user.Admin {
		t.Fatalf("seeded user: %+v %v", u, err)
	}
}
