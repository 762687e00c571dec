// Package webhook fans domain events out to subscribed HTTP endpoints.
package webhook

import (
	"context"
	"time"

	"stockflow/pkg/apperr"
	"stockflow/pkg/event"
)

// Subscription is a registered endpoint. An empty EventTypes list receives
// every event.
type Subscription struct {
	ID         string       `json:"id"`
	TargetURL  string       `json:"targetUrl"`
	Active     bool         `json:"active"`
	EventTypes []event.Type `json:"eventTypes"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// Matches reports whether the subscription wants events of type t.
func (s Subscription) Matches(t event.Type) bool {
	if len(s.EventTypes) == 0 {
		return true
	}
	for _, et := range s.EventTypes {
		if et == t {
			return true
		}
	}
	return false
}

// ErrNotFound indicates the requested subscription does not exist.
var ErrNotFound = apperr.New(apperr.KindNotFound, "subscription not found")

// ErrDuplicateTarget indicates another subscription already posts to the URL.
var ErrDuplicateTarget = apperr.New(apperr.KindConflict, "target url already subscribed")

// Repository defines behavior for persisting subscriptions.
type Repository interface {
	// Create fails with ErrDuplicateTarget when the target URL is taken.
	Create(ctx context.Context, s Subscription) error
	List(ctx context.Context) ([]Subscription, error)
	ListActive(ctx context.Context) ([]Subscription, error)
	Delete(ctx context.Context, id string) error
}

// Envelope is the JSON body posted to subscribers.
type Envelope struct {
	EventType event.Type     `json:"eventType"`
	Timestamp string         `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
}

// NewEnvelope wraps ev, formatting its timestamp as RFC 3339.
func NewEnvelope(ev event.Event) Envelope {
	return Envelope{
		EventType: ev.Type,
		Timestamp: ev.OccurredAt.UTC().Format(time.RFC3339),
		Payload:   ev.Payload,
	}
}

// Sender delivers an encoded envelope to a target URL.
type Sender interface {
	Send(ctx context.Context, targetURL string, body []byte) error
}
