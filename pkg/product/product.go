// Package product mints bottles from raw stock and assembles them into boxes.
//
// A unit (bottle) consumes exactly its capacity of raw material. A bundle (box)
// groups a fixed number of identical units; the number depends only on the
// capacity and is defined once in the bundle size table below.
package product

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"stockflow/pkg/apperr"
	"stockflow/pkg/stock"
)

// Unit is a single bottle.
type Unit struct {
	ID        string          `json:"id"`
	Category  stock.Category  `json:"category"`
	Capacity  decimal.Decimal `json:"capacity"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Bundle is a box of identical units.
type Bundle struct {
	ID        string          `json:"id"`
	Category  stock.Category  `json:"category"`
	Capacity  decimal.Decimal `json:"capacity"`
	Quantity  int             `json:"quantity"`
	UnitIDs   []string        `json:"unitIds"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"createdAt"`
}

// bundleSizes maps each supported capacity to the number of units in a box.
// It is also the set of capacities a unit may have.
var bundleSizes = []struct {
	capacity decimal.Decimal
	size     int
}{
	{decimal.RequireFromString("0.5"), 30},
	{decimal.RequireFromString("1.0"), 15},
	{decimal.RequireFromString("2.0"), 8},
	{decimal.RequireFromString("5.0"), 6},
}

// Capacities returns the supported capacities in ascending order.
func Capacities() []decimal.Decimal {
	out := make([]decimal.Decimal, len(bundleSizes))
	for i, b := range bundleSizes {
		out[i] = b.capacity
	}
	return out
}

// BundleSize returns the number of units in a box of the given capacity.
func BundleSize(capacity decimal.Decimal) (int, bool) {
	for _, b := range bundleSizes {
		if b.capacity.Equal(capacity) {
			return b.size, true
		}
	}
	return 0, false
}

// ValidCapacity reports whether capacity is supported.
func ValidCapacity(capacity decimal.Decimal) bool {
	_, ok := BundleSize(capacity)
	return ok
}

// ErrNotFound indicates the requested unit or bundle does not exist.
var ErrNotFound = apperr.New(apperr.KindNotFound, "product not found")

// ErrAlreadyBundled is returned by repositories when a unit is already part of a bundle.
var ErrAlreadyBundled = apperr.New(apperr.KindConflict, "unit already bundled")

// Repository defines behavior for persisting units and bundles.
type Repository interface {
	CreateUnit(ctx context.Context, u Unit) error
	GetUnit(ctx context.Context, id string) (Unit, error)
	ListUnits(ctx context.Context) ([]Unit, error)

	// CreateBundle fails with ErrAlreadyBundled if any member unit already
	// belongs to a bundle.
	CreateBundle(ctx context.Context, b Bundle) error
	GetBundle(ctx context.Context, id string) (Bundle, error)
	ListBundles(ctx context.Context) ([]Bundle, error)
	// BundledUnits returns the subset of ids that already belong to a bundle.
	BundledUnits(ctx context.Context, ids []string) ([]string, error)
}
