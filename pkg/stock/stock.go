// Package stock keeps the raw-material ledger: one non-negative decimal
// quantity per material category.
package stock

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"stockflow/pkg/apperr"
	"stockflow/pkg/event"
)

// Category is a raw-material classification.
type Category string

const (
	Water     Category = "WATER"
	Sparkling Category = "SPARKLING"
	Juice     Category = "JUICE"
	Soda      Category = "SODA"
)

var categories = []Category{Water, Sparkling, Juice, Soda}

// Categories returns every known category in declaration order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, k := range categories {
		if k == c {
			return true
		}
	}
	return false
}

// ParseCategory normalizes s and checks it against the known categories.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", apperr.New(apperr.KindInvalidArgument, "unknown category: "+s)
	}
	return c, nil
}

// Store persists ledger quantities.
type Store interface {
	Load(ctx context.Context) (map[Category]decimal.Decimal, error)
	Save(ctx context.Context, c Category, qty decimal.Decimal) error
}

// Change describes one applied mutation.
type Change struct {
	Category  Category
	Delta     decimal.Decimal
	Remaining decimal.Decimal
}

// Event builds the stock-changed notification for the change.
func (c Change) Event() event.Event {
	return event.New(event.StockChanged, map[string]any{
		"type":      string(c.Category),
		"delta":     c.Delta,
		"remaining": c.Remaining,
	})
}

// Ledger is the single stock ledger. Mutations hold one lock across the
// balance check, the store write and the in-memory update.
type Ledger struct {
	mu    sync.Mutex
	qty   map[Category]decimal.Decimal
	store Store
}

// Open loads persisted quantities and returns a ready ledger. Categories the
// store does not know start at zero.
func Open(ctx context.Context, store Store) (*Ledger, error) {
	saved, err := store.Load(ctx)
	if err != nil {
		return nil, apperr.Storage("load stock", err)
	}
	l := &Ledger{qty: make(map[Category]decimal.Decimal, len(categories)), store: store}
	for _, c := range categories {
		l.qty[c] = decimal.Zero
	}
	for c, q := range saved {
		if c.Valid() {
			l.qty[c] = q
		}
	}
	return l, nil
}

// Increase adds amount to category c.
func (l *Ledger) Increase(ctx context.Context, c Category, amount decimal.Decimal) (Change, error) {
	if err := checkArgs(c, amount); err != nil {
		return Change{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.apply(ctx, c, amount)
}

// Decrease removes amount from category c. It fails with insufficient stock,
// leaving the quantity untouched, when amount exceeds the current quantity.
func (l *Ledger) Decrease(ctx context.Context, c Category, amount decimal.Decimal) (Change, error) {
	if err := checkArgs(c, amount); err != nil {
		return Change{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount.GreaterThan(l.qty[c]) {
		return Change{}, apperr.New(apperr.KindInsufficientStock, "insufficient stock for "+string(c))
	}
	return l.apply(ctx, c, amount.Neg())
}

// Quantity returns the current quantity of c, zero when unknown.
func (l *Ledger) Quantity(c Category) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	if q, ok := l.qty[c]; ok {
		return q
	}
	return decimal.Zero
}

// Snapshot copies every category's quantity.
func (l *Ledger) Snapshot() map[Category]decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[Category]decimal.Decimal, len(l.qty))
	for c, q := range l.qty {
		out[c] = q
	}
	return out
}

// apply must be called with mu held.
func (l *Ledger) apply(ctx context.Context, c Category, delta decimal.Decimal) (Change, error) {
	next := l.qty[c].Add(delta)
	if err := l.store.Save(ctx, c, next); err != nil {
		return Change{}, apperr.Storage("save stock", err)
	}
	l.qty[c] = next
	return Change{Category: c, Delta: delta, Remaining: next}, nil
}

func checkArgs(c Category, amount decimal.Decimal) error {
	if !c.Valid() {
		return apperr.New(apperr.KindInvalidArgument, "unknown category: "+string(c))
	}
	if amount.IsNegative() {
		return apperr.New(apperr.KindInvalidArgument, "negative quantity")
	}
	return nil
}
