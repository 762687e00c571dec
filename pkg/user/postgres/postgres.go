// Package postgres persists users in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"stockflow/pkg/user"
)

// Schema creates the users table.
const Schema = `CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS users_email_idx ON users (lower(email))`

const columns = "id,email,first_name,last_name,password_hash,role,created_at"

// Repository persists users in PostgreSQL.
type Repository struct {
	db *sql.DB
}

// New creates a PostgreSQL repository.
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, u user.User) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users ("+columns+") VALUES ($1,$2,$3,$4,$5,$6,$7)",
		u.ID, u.Email, u.FirstName, u.LastName, u.PasswordHash, string(u.Role), u.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return user.ErrEmailTaken
	}
	return err
}

// Get retrieves a user by ID.
func (r *Repository) Get(ctx context.Context, id string) (user.User, error) {
	return r.scan(r.db.QueryRowContext(ctx, "SELECT "+columns+" FROM users WHERE id=$1", id))
}

// GetByEmail retrieves a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.scan(r.db.QueryRowContext(ctx, "SELECT "+columns+" FROM users WHERE lower(email)=lower($1)", email))
}

// Count returns the number of users.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT count(*) FROM users").Scan(&n)
	return n, err
}

func (r *Repository) scan(row *sql.Row) (user.User, error) {
	var u user.User
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &role, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return user.User{}, user.ErrNotFound
	}
	u.Role = user.Role(role)
	return u, err
}
