// Package postgres persists carts in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"stockflow/pkg/packaging"
)

// Schema creates the carts table. Bundle ids are kept in load order.
const Schema = `CREATE TABLE IF NOT EXISTS carts (
	id BIGSERIAL PRIMARY KEY,
	bundle_ids TEXT[] NOT NULL DEFAULT '{}'
)`

// Store persists carts in PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL cart store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateCart inserts an empty cart.
func (s *Store) CreateCart(ctx context.Context) (packaging.Cart, error) {
	var c packaging.Cart
	err := s.db.QueryRowContext(ctx, "INSERT INTO carts DEFAULT VALUES RETURNING id").Scan(&c.ID)
	return c, err
}

// DeleteCart removes a cart by ID.
func (s *Store) DeleteCart(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM carts WHERE id=$1", id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return packaging.ErrNotFound
	}
	return nil
}

// SaveCart replaces the bundle list of a cart.
func (s *Store) SaveCart(ctx context.Context, c packaging.Cart) error {
	ids := c.BundleIDs
	if ids == nil {
		ids = []string{}
	}
	res, err := s.db.ExecContext(ctx, "UPDATE carts SET bundle_ids=$2 WHERE id=$1", c.ID, pq.Array(ids))
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return packaging.ErrNotFound
	}
	return nil
}

// ListCarts fetches all carts by ascending id.
func (s *Store) ListCarts(ctx context.Context) ([]packaging.Cart, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, bundle_ids FROM carts ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var carts []packaging.Cart
	for rows.Next() {
		var c packaging.Cart
		if err := rows.Scan(&c.ID, pq.Array(&c.BundleIDs)); err != nil {
			return nil, err
		}
		carts = append(carts, c)
	}
	return carts, rows.Err()
}
