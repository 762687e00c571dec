// Package postgres persists webhook subscriptions in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"stockflow/pkg/event"
	"stockflow/pkg/webhook"
)

// Schema creates the subscriptions table.
const Schema = `CREATE TABLE IF NOT EXISTS webhook_subscriptions (
	id TEXT PRIMARY KEY,
	target_url TEXT NOT NULL UNIQUE,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	event_types TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL
)`

const columns = "id,target_url,active,event_types,created_at"

// Repository persists subscriptions in PostgreSQL.
type Repository struct {
	db *sql.DB
}

// New creates a PostgreSQL repository.
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new subscription.
func (r *Repository) Create(ctx context.Context, s webhook.Subscription) error {
	types := make([]string, len(s.EventTypes))
	for i, t := range s.EventTypes {
		types[i] = string(t)
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO webhook_subscriptions ("+columns+") VALUES ($1,$2,$3,$4,$5)",
		s.ID, s.TargetURL, s.Active, pq.Array(types), s.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return webhook.ErrDuplicateTarget
	}
	return err
}

// List fetches all subscriptions.
func (r *Repository) List(ctx context.Context) ([]webhook.Subscription, error) {
	return r.query(ctx, "SELECT "+columns+" FROM webhook_subscriptions ORDER BY created_at")
}

// ListActive fetches the active subscriptions.
func (r *Repository) ListActive(ctx context.Context) ([]webhook.Subscription, error) {
	return r.query(ctx, "SELECT "+columns+" FROM webhook_subscriptions WHERE active ORDER BY created_at")
}

// Delete removes a subscription.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM webhook_subscriptions WHERE id=$1", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return webhook.ErrNotFound
	}
	return nil
}

func (r *Repository) query(ctx context.Context, q string) ([]webhook.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []webhook.Subscription
	for rows.Next() {
		var s webhook.Subscription
		var types []string
		if err := rows.Scan(&s.ID, &s.TargetURL, &s.Active, pq.Array(&types), &s.CreatedAt); err != nil {
			return nil, err
		}
		for _, t := range types {
			s.EventTypes = append(s.EventTypes, event.Type(t))
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
