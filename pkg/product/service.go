package product

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"stockflow/pkg/apperr"
	"stockflow/pkg/event"
	"stockflow/pkg/stock"
)

// Service persists what the factory produces and publishes the stock changes.
type Service struct {
	factory *Factory
	ledger  *stock.Ledger
	repo    Repository
	pub     event.Publisher
}

// NewService wires the factory to a repository and a publisher.
func NewService(ledger *stock.Ledger, repo Repository, pub event.Publisher) *Service {
	return &Service{factory: NewFactory(ledger), ledger: ledger, repo: repo, pub: pub}
}

// Mint creates and saves a unit. If saving fails the consumed stock is put back.
func (s *Service) Mint(ctx context.Context, category stock.Category, capacity, price decimal.Decimal) (Unit, error) {
	u, events, err := s.factory.MintUnit(ctx, category, capacity, price)
	if err != nil {
		return Unit{}, err
	}
	if err := s.repo.CreateUnit(ctx, u); err != nil {
		if ch, rerr := s.ledger.Increase(ctx, category, capacity); rerr == nil {
			events = append(events, ch.Event())
		}
		s.pub.Publish(ctx, events...)
		return Unit{}, apperr.Storage("save unit", err)
	}
	s.pub.Publish(ctx, events...)
	return u, nil
}

// Assemble loads the referenced units and saves them as a new bundle. A unit
// may be listed once and may not already belong to another bundle.
func (s *Service) Assemble(ctx context.Context, unitIDs []string, declared int, price decimal.Decimal) (Bundle, error) {
	seen := make(map[string]bool, len(unitIDs))
	units := make([]Unit, 0, len(unitIDs))
	for _, id := range unitIDs {
		if seen[id] {
			return Bundle{}, invalid("unit listed twice: " + id)
		}
		seen[id] = true
		u, err := s.Unit(ctx, id)
		if err != nil {
			return Bundle{}, err
		}
		units = append(units, u)
	}
	b, err := AssembleBundle(units, declared, price)
	if err != nil {
		return Bundle{}, err
	}
	taken, err := s.repo.BundledUnits(ctx, unitIDs)
	if err != nil {
		return Bundle{}, apperr.Storage("check bundled units", err)
	}
	if len(taken) > 0 {
		return Bundle{}, apperr.New(apperr.KindConflict, "unit already bundled: "+taken[0])
	}
	if err := s.repo.CreateBundle(ctx, b); err != nil {
		return Bundle{}, apperr.Storage("save bundle", err)
	}
	return b, nil
}

// PackBundle assembles and saves a bundle described by its member unit ids,
// declared quantity and price. Every other field of b is ignored.
func (s *Service) PackBundle(ctx context.Context, b Bundle) (Bundle, error) {
	return s.Assemble(ctx, b.UnitIDs, b.Quantity, b.Price)
}

// Unit returns a unit by id.
func (s *Service) Unit(ctx context.Context, id string) (Unit, error) {
	u, err := s.repo.GetUnit(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Unit{}, apperr.New(apperr.KindNotFound, "unit not found: "+id)
	}
	return u, apperr.Storage("load unit", err)
}

// Bundle returns a bundle by id.
func (s *Service) Bundle(ctx context.Context, id string) (Bundle, error) {
	b, err := s.repo.GetBundle(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Bundle{}, apperr.New(apperr.KindNotFound, "bundle not found: "+id)
	}
	return b, apperr.Storage("load bundle", err)
}

// Units lists every unit.
func (s *Service) Units(ctx context.Context) ([]Unit, error) {
	out, err := s.repo.ListUnits(ctx)
	return out, apperr.Storage("list units", err)
}

// Bundles lists every bundle.
func (s *Service) Bundles(ctx context.Context) ([]Bundle, error) {
	out, err := s.repo.ListBundles(ctx)
	return out, apperr.Storage("list bundles", err)
}
