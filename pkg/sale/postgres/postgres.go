// Package postgres persists sales in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"stockflow/pkg/sale"
)

// Schema creates the sales table. Lines are stored as a JSON document; the
// total is derived from them on read.
const Schema = `CREATE TABLE IF NOT EXISTS sales (
	id TEXT PRIMARY KEY,
	channel TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	seller_id TEXT NOT NULL,
	lines JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS sales_created_at_idx ON sales (created_at)`

// Repository persists sales in PostgreSQL.
type Repository struct {
	db *sql.DB
}

// New creates a PostgreSQL repository.
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new sale.
func (r *Repository) Create(ctx context.Context, s sale.Sale) error {
	lines, err := json.Marshal(s.Lines)
	if err != nil {
		return fmt.Errorf("encode lines: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO sales (id,channel,created_at,seller_id,lines) VALUES ($1,$2,$3,$4,$5)",
		s.ID, string(s.Channel), s.CreatedAt, s.SellerID, lines)
	return err
}

// Get retrieves a sale by ID.
func (r *Repository) Get(ctx context.Context, id string) (sale.Sale, error) {
	row := r.db.QueryRowContext(ctx, "SELECT id,channel,created_at,seller_id,lines FROM sales WHERE id=$1", id)
	s, err := scan(row)
	if err == sql.ErrNoRows {
		return sale.Sale{}, sale.ErrNotFound
	}
	return s, err
}

// List fetches matching sales ordered by creation time.
func (r *Repository) List(ctx context.Context, f sale.Filter) ([]sale.Sale, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Channel != "" {
		add("channel = $%d", string(f.Channel))
	}
	if f.SellerID != "" {
		add("seller_id = $%d", f.SellerID)
	}
	start, end := f.Range()
	if !start.IsZero() {
		add("created_at >= $%d", start)
	}
	if !end.IsZero() {
		add("created_at < $%d", end)
	}
	q := "SELECT id,channel,created_at,seller_id,lines FROM sales"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sales []sale.Sale
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

// Count returns the number of sales.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT count(*) FROM sales").Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (sale.Sale, error) {
	var s sale.Sale
	var channel string
	var lines []byte
	if err := row.Scan(&s.ID, &channel, &s.CreatedAt, &s.SellerID, &lines); err != nil {
		return sale.Sale{}, err
	}
	s.Channel = sale.Channel(channel)
	if err := json.Unmarshal(lines, &s.Lines); err != nil {
		return sale.Sale{}, fmt.Errorf("decode lines of sale %s: %w", s.ID, err)
	}
	return s, nil
}
