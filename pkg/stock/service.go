package stock

import (
	"context"

	"github.com/shopspring/decimal"

	"stockflow/pkg/event"
)

// Service is the stock adjustment entry point: it mutates the ledger and
// then reports the change.
type Service struct {
	ledger *Ledger
	pub    event.Publisher
}

// NewService wires a ledger to a publisher.
func NewService(ledger *Ledger, pub event.Publisher) *Service {
	return &Service{ledger: ledger, pub: pub}
}

// Increase adds amount and returns the new quantity.
func (s *Service) Increase(ctx context.Context, c Category, amount decimal.Decimal) (decimal.Decimal, error) {
	ch, err := s.ledger.Increase(ctx, c, amount)
	if err != nil {
		return decimal.Zero, err
	}
	s.pub.Publish(ctx, ch.Event())
	return ch.Remaining, nil
}

// Decrease removes amount and returns the new quantity.
func (s *Service) Decrease(ctx context.Context, c Category, amount decimal.Decimal) (decimal.Decimal, error) {
	ch, err := s.ledger.Decrease(ctx, c, amount)
	if err != nil {
		return decimal.Zero, err
	}
	s.pub.Publish(ctx, ch.Event())
	return ch.Remaining, nil
}

// Quantity returns the current quantity of c.
func (s *Service) Quantity(c Category) decimal.Decimal { return s.ledger.Quantity(c) }

// Snapshot returns all quantities.
func (s *Service) Snapshot() map[Category]decimal.Decimal { return s.ledger.Snapshot() }
