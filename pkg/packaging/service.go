package packaging

import (
	"context"

	"stockflow/pkg/event"
	"stockflow/pkg/product"
)

// Service applies yard changes and publishes them.
type Service struct {
	yard *Yard
	pub  event.Publisher
}

// NewService wires a yard to a publisher.
func NewService(yard *Yard, pub event.Publisher) *Service {
	return &Service{yard: yard, pub: pub}
}

// AddCart adds an empty cart and returns the cart count.
func (s *Service) AddCart(ctx context.Context) (int, error) {
	n, ev, err := s.yard.AddCart(ctx)
	if err != nil {
		return 0, err
	}
	s.pub.Publish(ctx, ev)
	return n, nil
}

// RemoveCart deletes the cart at index.
func (s *Service) RemoveCart(ctx context.Context, index int) error {
	ev, err := s.yard.RemoveCart(ctx, index)
	if err != nil {
		return err
	}
	s.pub.Publish(ctx, ev)
	return nil
}

// AddBundle loads b onto the cart at index and returns the packed bundle count.
func (s *Service) AddBundle(ctx context.Context, index int, b product.Bundle) (int, error) {
	n, ev, err := s.yard.AddBundle(ctx, index, b)
	if err != nil {
		return 0, err
	}
	s.pub.Publish(ctx, ev)
	return n, nil
}

// RemoveBundle unloads a bundle from a cart.
func (s *Service) RemoveBundle(ctx context.Context, cartIndex, bundleIndex int) error {
	ev, err := s.yard.RemoveBundle(ctx, cartIndex, bundleIndex)
	if err != nil {
		return err
	}
	s.pub.Publish(ctx, ev)
	return nil
}

// Carts lists carts in index order.
func (s *Service) Carts(ctx context.Context) ([]Cart, error) { return s.yard.Carts(ctx) }

// Summary counts carts and packed bundles.
func (s *Service) Summary(ctx context.Context) (Summary, error) { return s.yard.Summary(ctx) }

// TotalBundles sums the bundles over every cart.
func (s *Service) TotalBundles(ctx context.Context) (int, error) { return s.yard.TotalBundles(ctx) }
