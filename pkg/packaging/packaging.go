// Package packaging manages the yard of carts that packed bundles are loaded on.
// Carts and the bundles on them are addressed by 0-based position, carts
// ordered by ascending id.
package packaging

import (
	"context"
	"sync"

	"stockflow/pkg/apperr"
	"stockflow/pkg/event"
	"stockflow/pkg/product"
)

// Action tags a packaging change.
type Action string

const (
	AddCart      Action = "ADD_CART"
	RemoveCart   Action = "REMOVE_CART"
	AddBundle    Action = "ADD_BUNDLE"
	RemoveBundle Action = "REMOVE_BUNDLE"
)

// Cart holds an ordered list of bundle ids.
type Cart struct {
	ID        int64    `json:"id"`
	BundleIDs []string `json:"bundleIds"`
}

// Summary counts carts and the bundles loaded on them.
type Summary struct {
	Carts         int `json:"carts"`
	PackedBundles int `json:"packedBundles"`
}

// Event builds the packaging-changed notification for action.
func (s Summary) Event(action Action) event.Event {
	return event.New(event.StockChanged, map[string]any{
		"category":      "PACKAGING",
		"action":        string(action),
		"carts":         s.Carts,
		"packedBundles": s.PackedBundles,
	})
}

// ErrNotFound indicates the cart index or id does not resolve.
var ErrNotFound = apperr.New(apperr.KindNotFound, "cart not found")

// Store persists carts.
type Store interface {
	// CreateCart adds an empty cart with an id greater than any existing one.
	CreateCart(ctx context.Context) (Cart, error)
	DeleteCart(ctx context.Context, id int64) error
	SaveCart(ctx context.Context, c Cart) error
	// ListCarts returns carts ordered by ascending id.
	ListCarts(ctx context.Context) ([]Cart, error)
}

// Bundles looks up saved bundles and assembles new ones from their units.
type Bundles interface {
	Bundle(ctx context.Context, id string) (product.Bundle, error)
	PackBundle(ctx context.Context, b product.Bundle) (product.Bundle, error)
}

// Yard applies index-based changes to the carts. One lock covers each
// lookup-then-mutate sequence.
type Yard struct {
	mu      sync.Mutex
	store   Store
	bundles Bundles
}

// NewYard creates a yard over store.
func NewYard(store Store, bundles Bundles) *Yard {
	return &Yard{store: store, bundles: bundles}
}

// AddCart appends an empty cart and returns the new cart count.
func (y *Yard) AddCart(ctx context.Context) (int, event.Event, error) {
	y.mu.Lock()
	defer y.mu.Unlock()
	if _, err := y.store.CreateCart(ctx); err != nil {
		return 0, event.Event{}, apperr.Storage("create cart", err)
	}
	sum, err := y.summary(ctx)
	if err != nil {
		return 0, event.Event{}, err
	}
	return sum.Carts, sum.Event(AddCart), nil
}

// RemoveCart deletes the cart at index.
func (y *Yard) RemoveCart(ctx context.Context, index int) (event.Event, error) {
	y.mu.Lock()
	defer y.mu.Unlock()
	c, err := y.cartAt(ctx, index)
	if err != nil {
		return event.Event{}, err
	}
	if err := y.store.DeleteCart(ctx, c.ID); err != nil {
		return event.Event{}, apperr.Storage("delete cart", err)
	}
	sum, err := y.summary(ctx)
	if err != nil {
		return event.Event{}, err
	}
	return sum.Event(RemoveCart), nil
}

// AddBundle appends b to the cart at index and returns the total number of
// packed bundles. A bundle the repository does not know yet is assembled from
// its unit ids and saved first.
func (y *Yard) AddBundle(ctx context.Context, index int, b product.Bundle) (int, event.Event, error) {
	y.mu.Lock()
	defer y.mu.Unlock()
	c, err := y.cartAt(ctx, index)
	if err != nil {
		return 0, event.Event{}, err
	}
	b, err = y.resolve(ctx, b)
	if err != nil {
		return 0, event.Event{}, err
	}
	c.BundleIDs = append(c.BundleIDs, b.ID)
	if err := y.store.SaveCart(ctx, c); err != nil {
		return 0, event.Event{}, apperr.Storage("save cart", err)
	}
	sum, err := y.summary(ctx)
	if err != nil {
		return 0, event.Event{}, err
	}
	return sum.PackedBundles, sum.Event(AddBundle), nil
}

// RemoveBundle removes the bundle at bundleIndex from the cart at cartIndex.
func (y *Yard) RemoveBundle(ctx context.Context, cartIndex, bundleIndex int) (event.Event, error) {
	y.mu.Lock()
	defer y.mu.Unlock()
	c, err := y.cartAt(ctx, cartIndex)
	if err != nil {
		return event.Event{}, err
	}
	if bundleIndex < 0 || bundleIndex >= len(c.BundleIDs) {
		return event.Event{}, apperr.New(apperr.KindNotFound, "bundle not found")
	}
	c.BundleIDs = append(c.BundleIDs[:bundleIndex:bundleIndex], c.BundleIDs[bundleIndex+1:]...)
	if err := y.store.SaveCart(ctx, c); err != nil {
		return event.Event{}, apperr.Storage("save cart", err)
	}
	sum, err := y.summary(ctx)
	if err != nil {
		return event.Event{}, err
	}
	return sum.Event(RemoveBundle), nil
}

// Carts returns the carts in index order.
func (y *Yard) Carts(ctx context.Context) ([]Cart, error) {
	carts, err := y.store.ListCarts(ctx)
	return carts, apperr.Storage("list carts", err)
}

// TotalBundles sums the bundles over every cart.
func (y *Yard) TotalBundles(ctx context.Context) (int, error) {
	s, err := y.Summary(ctx)
	return s.PackedBundles, err
}

// Summary counts carts and packed bundles.
func (y *Yard) Summary(ctx context.Context) (Summary, error) {
	y.mu.Lock()
	defer y.mu.Unlock()
	return y.summary(ctx)
}

func (y *Yard) summary(ctx context.Context) (Summary, error) {
	carts, err := y.store.ListCarts(ctx)
	if err != nil {
		return Summary{}, apperr.Storage("list carts", err)
	}
	s := Summary{Carts: len(carts)}
	for _, c := range carts {
		s.PackedBundles += len(c.BundleIDs)
	}
	return s, nil
}

func (y *Yard) cartAt(ctx context.Context, index int) (Cart, error) {
	carts, err := y.store.ListCarts(ctx)
	if err != nil {
		return Cart{}, apperr.Storage("list carts", err)
	}
	if index < 0 || index >= len(carts) {
		return Cart{}, ErrNotFound
	}
	c := carts[index]
	c.BundleIDs = append([]string(nil), c.BundleIDs...)
	return c, nil
}

func (y *Yard) resolve(ctx context.Context, b product.Bundle) (product.Bundle, error) {
	if b.ID != "" {
		saved, err := y.bundles.Bundle(ctx, b.ID)
		if err == nil {
			return saved, nil
		}
		if apperr.KindOf(err) != apperr.KindNotFound {
			return product.Bundle{}, err
		}
	}
	return y.bundles.PackBundle(ctx, b)
}
