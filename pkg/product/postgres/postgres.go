// Package postgres persists units and bundles in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"stockflow/pkg/product"
	"stockflow/pkg/stock"
)

// Schema creates the product tables. bundle_units keys on unit_id so a unit
// can belong to one bundle only.
const Schema = `CREATE TABLE IF NOT EXISTS units (
	id TEXT PRIMARY KEY,
	category TEXT NOT NULL,
	capacity NUMERIC NOT NULL,
	price NUMERIC NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS bundles (
	id TEXT PRIMARY KEY,
	category TEXT NOT NULL,
	capacity NUMERIC NOT NULL,
	quantity INT NOT NULL,
	price NUMERIC NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS bundle_units (
	unit_id TEXT PRIMARY KEY REFERENCES units(id),
	bundle_id TEXT NOT NULL REFERENCES bundles(id) ON DELETE CASCADE,
	position INT NOT NULL
)`

const uniqueViolation = "23505"

// Repository persists products in PostgreSQL.
type Repository struct {
	db *sql.DB
}

// New creates a PostgreSQL repository.
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateUnit inserts a new unit.
func (r *Repository) CreateUnit(ctx context.Context, u product.Unit) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO units (id,category,capacity,price,created_at) VALUES ($1,$2,$3,$4,$5)",
		u.ID, string(u.Category), u.Capacity, u.Price, u.CreatedAt)
	return err
}

// GetUnit retrieves a unit by ID.
func (r *Repository) GetUnit(ctx context.Context, id string) (product.Unit, error) {
	var u product.Unit
	var cat string
	err := r.db.QueryRowContext(ctx,
		"SELECT id,category,capacity,price,created_at FROM units WHERE id=$1", id).
		Scan(&u.ID, &cat, &u.Capacity, &u.Price, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return product.Unit{}, product.ErrNotFound
	}
	u.Category = stock.Category(cat)
	return u, err
}

// ListUnits fetches all units, oldest first.
func (r *Repository) ListUnits(ctx context.Context) ([]product.Unit, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id,category,capacity,price,created_at FROM units ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var units []product.Unit
	for rows.Next() {
		var u product.Unit
		var cat string
		if err := rows.Scan(&u.ID, &cat, &u.Capacity, &u.Price, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.Category = stock.Category(cat)
		units = append(units, u)
	}
	return units, rows.Err()
}

// CreateBundle inserts the bundle and its membership rows in one transaction.
func (r *Repository) CreateBundle(ctx context.Context, b product.Bundle) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO bundles (id,category,capacity,quantity,price,created_at) VALUES ($1,$2,$3,$4,$5,$6)",
		b.ID, string(b.Category), b.Capacity, b.Quantity, b.Price, b.CreatedAt); err != nil {
		return err
	}
	for i, id := range b.UnitIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO bundle_units (unit_id,bundle_id,position) VALUES ($1,$2,$3)", id, b.ID, i); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return product.ErrAlreadyBundled
			}
			return err
		}
	}
	return tx.Commit()
}

// GetBundle retrieves a bundle and its member ids.
func (r *Repository) GetBundle(ctx context.Context, id string) (product.Bundle, error) {
	var b product.Bundle
	var cat string
	err := r.db.QueryRowContext(ctx,
		"SELECT id,category,capacity,quantity,price,created_at FROM bundles WHERE id=$1", id).
		Scan(&b.ID, &cat, &b.Capacity, &b.Quantity, &b.Price, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return product.Bundle{}, product.ErrNotFound
	}
	if err != nil {
		return product.Bundle{}, err
	}
	b.Category = stock.Category(cat)
	b.UnitIDs, err = r.members(ctx, b.ID)
	return b, err
}

// ListBundles fetches all bundles, oldest first.
func (r *Repository) ListBundles(ctx context.Context) ([]product.Bundle, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id,category,capacity,quantity,price,created_at FROM bundles ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	var bundles []product.Bundle
	for rows.Next() {
		var b product.Bundle
		var cat string
		if err := rows.Scan(&b.ID, &cat, &b.Capacity, &b.Quantity, &b.Price, &b.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		b.Category = stock.Category(cat)
		bundles = append(bundles, b)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	for i := range bundles {
		if bundles[i].UnitIDs, err = r.members(ctx, bundles[i].ID); err != nil {
			return nil, err
		}
	}
	return bundles, nil
}

// BundledUnits returns the ids already claimed by a bundle.
func (r *Repository) BundledUnits(ctx context.Context, ids []string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT unit_id FROM bundle_units WHERE unit_id = ANY($1)", pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *Repository) members(ctx context.Context, bundleID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT unit_id FROM bundle_units WHERE bundle_id=$1 ORDER BY position", bundleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
