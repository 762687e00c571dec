// Package auth issues and checks signed access tokens for user accounts.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"stockflow/pkg/apperr"
	"stockflow/pkg/session"
	"stockflow/pkg/user"
)

// Config holds token settings.
type Config struct {
	Secret string
	TTL    time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	// Now defaults to time.Now.
	Now func() time.Time
}

// Claims is the token body.
type Claims struct {
	UserID string      `json:"uid"`
	Roles  []user.Role `json:"roles"`
	jwt.RegisteredClaims
}

// Identity is an authenticated caller.
type Identity struct {
	UserID    string      `json:"userId"`
	Email     string      `json:"username"`
	Roles     []user.Role `json:"roles"`
	ExpiresAt time.Time   `json:"expiresAt"`
	Token     string      `json:"-"`
}

// HasAny reports whether the caller carries one of roles.
func (id Identity) HasAny(roles ...user.Role) bool { return user.HasAny(id.Roles, roles...) }

// Result is returned by login and signup.
type Result struct {
	UserID    string      `json:"userId"`
	Username  string      `json:"username"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	Roles     []user.Role `json:"roles"`
}

// SignupInput is a new account request.
type SignupInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// Service signs users up, logs them in and out, and authenticates tokens.
type Service struct {
	users   user.Repository
	revoked session.Revoker
	secret  []byte
	ttl     time.Duration
	cost    int
	now     func() time.Time
}

// NewService creates an auth Service.
func NewService(users user.Repository, revoked session.Revoker, cfg Config) *Service {
	s := &Service{users: users, revoked: revoked, secret: []byte(cfg.Secret), ttl: cfg.TTL, cost: cfg.BcryptCost, now: cfg.Now}
	if s.ttl <= 0 {
		s.ttl = 15 * time.Minute
	}
	if s.cost == 0 {
		s.cost = bcrypt.DefaultCost
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

var errBadCredentials = apperr.New(apperr.KindUnauthorized, "invalid credentials")

// Signup creates an account and logs it in. Anyone may create a seller; other
// roles need an admin caller, except for the very first account.
func (s *Service) Signup(ctx context.Context, in SignupInput, caller *Identity) (Result, error) {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Password == "" {
		return Result{}, apperr.New(apperr.KindInvalidArgument, "email and password are required")
	}
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return Result{}, user.ErrEmailTaken
	} else if !errors.Is(err, user.ErrNotFound) {
		return Result{}, apperr.Storage("load user", err)
	}

	role := user.Seller
	if in.Role != "" {
		r, err := user.ParseRole(in.Role)
		if err != nil {
			return Result{}, err
		}
		role = r
	}
	if role != user.Seller && (caller == nil || !caller.HasAny(user.Admin)) {
		n, err := s.users.Count(ctx)
		if err != nil {
			return Result{}, apperr.Storage("count users", err)
		}
		if n > 0 {
			return Result{}, apperr.New(apperr.KindForbidden, "only an admin can create a non-seller account")
		}
	}

	u, err := s.create(ctx, in, role)
	if err != nil {
		return Result{}, err
	}
	return s.issue(u)
}

// SeedAdmin creates an admin account unless the email is already registered.
// It reports whether an account was created.
func (s *Service) SeedAdmin(ctx context.Context, email, password string) (bool, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, user.ErrNotFound) {
		return false, apperr.Storage("load user", err)
	}
	if _, err := s.create(ctx, SignupInput{Email: email, Password: password, FirstName: "Admin"}, user.Admin); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) create(ctx context.Context, in SignupInput, role user.Role) (user.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return user.User{}, apperr.New(apperr.KindInvalidArgument, "password rejected: "+err.Error())
	}
	u := user.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return user.User{}, apperr.Storage("save user", err)
	}
	return u, nil
}

// Login checks the password and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (Result, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, user.ErrNotFound) {
		return Result{}, errBadCredentials
	}
	if err != nil {
		return Result{}, apperr.Storage("load user", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return Result{}, errBadCredentials
	}
	return s.issue(u)
}

func (s *Service) issue(u user.User) (Result, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	roles := []user.Role{u.Role}
	claims := Claims{
		UserID: u.ID,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindStorage, "sign token", err)
	}
	return Result{UserID: u.ID, Username: u.Email, Token: token, ExpiresAt: claims.ExpiresAt.Time, Roles: roles}, nil
}

func (s *Service) parse(token string) (Identity, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Identity{}, apperr.Wrap(apperr.KindUnauthorized, "invalid token", err)
	}
	return Identity{UserID: c.UserID, Email: c.Subject, Roles: c.Roles, ExpiresAt: c.ExpiresAt.Time, Token: token}, nil
}

// Logout revokes token until it expires. Empty or invalid tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	id, err := s.parse(token)
	if err != nil {
		return nil
	}
	return apperr.Storage("revoke token", s.revoked.Revoke(ctx, token, id.ExpiresAt))
}

// Authenticate validates token and rejects revoked ones.
func (s *Service) Authenticate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, apperr.New(apperr.KindUnauthorized, "missing token")
	}
	id, err := s.parse(token)
	if err != nil {
		return Identity{}, err
	}
	revoked, err := s.revoked.IsRevoked(ctx, token)
	if err != nil {
		return Identity{}, apperr.Storage("check revocation", err)
	}
	if revoked {
		return Identity{}, apperr.New(apperr.KindUnauthorized, "token revoked")
	}
	return id, nil
}
