// Package event holds the domain event vocabulary and the publisher contract.
package event

import (
	"context"
	"sync"
	"time"
)

// Type names a domain event.
type Type string

const (
	StockChanged          Type = "STOCK_CHANGED"
	SaleToSellerCreated   Type = "SALE_TO_SELLER_CREATED"
	SaleFromSellerCreated Type = "SALE_FROM_SELLER_CREATED"
)

// Types lists the full vocabulary.
func Types() []Type {
	return []Type{StockChanged, SaleToSellerCreated, SaleFromSellerCreated}
}

// Valid reports whether t belongs to the vocabulary.
func (t Type) Valid() bool {
	for _, v := range Types() {
		if v == t {
			return true
		}
	}
	return false
}

// Event is a notification produced by a domain operation after its mutation
// has been recorded.
type Event struct {
	Type       Type           `json:"eventType"`
	OccurredAt time.Time      `json:"timestamp"`
	Payload    map[string]any `json:"payload"`
}

// New builds an event stamped with the current UTC time.
func New(t Type, payload map[string]any) Event {
	return Event{Type: t, OccurredAt: time.Now().UTC(), Payload: payload}
}

// Publisher delivers events. Implementations never report delivery failures
// back to the caller.
type Publisher interface {
	Publish(ctx context.Context, events ...Event)
}

// Multi fans out to several publishers in order.
type Multi []Publisher

// Publish forwards events to every publisher.
func (m Multi) Publish(ctx context.Context, events ...Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(ctx, events...)
		}
	}
}

// Recorder keeps published events in memory. Handy for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish appends events.
func (r *Recorder) Publish(_ context.Context, events ...Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
