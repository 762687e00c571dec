package product

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"stockflow/pkg/apperr"
	"stockflow/pkg/event"
	"stockflow/pkg/stock"
)

// Factory turns raw stock into units.
type Factory struct {
	ledger *stock.Ledger
	now    func() time.Time
}

// NewFactory creates a factory consuming ledger.
func NewFactory(ledger *stock.Ledger) *Factory {
	return &Factory{ledger: ledger, now: time.Now}
}

// MintUnit consumes capacity worth of category from the ledger and returns the
// new unit with the stock change to publish.
func (f *Factory) MintUnit(ctx context.Context, category stock.Category, capacity, price decimal.Decimal) (Unit, []event.Event, error) {
	if !ValidCapacity(capacity) {
		return Unit{}, nil, apperr.New(apperr.KindInvalidArgument, "unsupported capacity: "+capacity.String())
	}
	if price.IsNegative() {
		return Unit{}, nil, apperr.New(apperr.KindInvalidArgument, "negative price")
	}
	ch, err := f.ledger.Decrease(ctx, category, capacity)
	if err != nil {
		return Unit{}, nil, err
	}
	u := Unit{
		ID:        uuid.NewString(),
		Category:  category,
		Capacity:  capacity,
		Price:     price,
		CreatedAt: f.now().UTC(),
	}
	return u, []event.Event{ch.Event()}, nil
}

// AssembleBundle groups units into a bundle. All units must share category and
// capacity and their count must equal the capacity's bundle size. A zero
// declared quantity stands for that size.
func AssembleBundle(units []Unit, declared int, price decimal.Decimal) (Bundle, error) {
	if len(units) == 0 {
		return Bundle{}, invalid("a bundle needs at least one unit")
	}
	first := units[0]
	for _, u := range units[1:] {
		if u.Category != first.Category || !u.Capacity.Equal(first.Capacity) {
			return Bundle{}, invalid("all units must share category and capacity")
		}
	}
	size, ok := BundleSize(first.Capacity)
	if !ok {
		return Bundle{}, invalid("unsupported capacity: " + first.Capacity.String())
	}
	if len(units) != size {
		return Bundle{}, invalid(fmt.Sprintf("a %s bundle holds %d units, got %d", first.Capacity, size, len(units)))
	}
	if declared != 0 && declared != size {
		return Bundle{}, invalid(fmt.Sprintf("declared quantity %d does not match bundle size %d", declared, size))
	}
	if price.IsNegative() {
		return Bundle{}, invalid("negative price")
	}
	ids := make([]string, len(units))
	for i, u := range units {
		ids[i] = u.ID
	}
	return Bundle{
		ID:        uuid.NewString(),
		Category:  first.Category,
		Capacity:  first.Capacity,
		Quantity:  size,
		UnitIDs:   ids,
		Price:     price,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func invalid(msg string) error {
	return apperr.New(apperr.KindInvalidArgument, msg)
}
