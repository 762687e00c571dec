package sale

import (
	"context"

	"stockflow/pkg/event"
	"stockflow/pkg/user"
)

// Service records sales and publishes the creation events.
type Service struct {
	ledger *Ledger
	pub    event.Publisher
}

// NewService wires a ledger to a publisher.
func NewService(ledger *Ledger, pub event.Publisher) *Service {
	return &Service{ledger: ledger, pub: pub}
}

// Create records a sale. The event is published only once the sale is saved.
func (s *Service) Create(ctx context.Context, channel Channel, sellerID string, lines []Line, actorRoles []user.Role) (Sale, error) {
	sl, ev, err := s.ledger.CreateSale(ctx, channel, sellerID, lines, actorRoles)
	if err != nil {
		return Sale{}, err
	}
	s.pub.Publish(ctx, ev)
	return sl, nil
}

// List returns sales matching f.
func (s *Service) List(ctx context.Context, f Filter) ([]Sale, error) {
	return s.ledger.ListSales(ctx, f)
}

// Get returns a sale by id; ok is false when it does not exist.
func (s *Service) Get(ctx context.Context, id string) (Sale, bool, error) {
	return s.ledger.GetSale(ctx, id)
}

// Count returns the number of recorded sales.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.ledger.Count(ctx)
}
