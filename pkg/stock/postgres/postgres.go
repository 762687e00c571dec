// Package postgres persists stock quantities in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"stockflow/pkg/stock"
)

// Schema creates the raw stock table.
const Schema = `CREATE TABLE IF NOT EXISTS raw_stock (
	category TEXT PRIMARY KEY,
	quantity NUMERIC NOT NULL CHECK (quantity >= 0)
)`

// Store persists stock quantities in PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL stock store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Load reads every saved category.
func (s *Store) Load(ctx context.Context) (map[stock.Category]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT category, quantity FROM raw_stock")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[stock.Category]decimal.Decimal)
	for rows.Next() {
		var c string
		var q decimal.Decimal
		if err := rows.Scan(&c, &q); err != nil {
			return nil, err
		}
		out[stock.Category(c)] = q
	}
	return out, rows.Err()
}

// Save upserts the quantity of c.
func (s *Store) Save(ctx context.Context, c stock.Category, qty decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO raw_stock (category, quantity) VALUES ($1,$2) ON CONFLICT (category) DO UPDATE SET quantity = EXCLUDED.quantity",
		string(c), qty)
	return err
}
