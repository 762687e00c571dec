package sale

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"stockflow/pkg/apperr"
	"stockflow/pkg/event"
	"stockflow/pkg/product"
	"stockflow/pkg/user"
)

// Sellers resolves seller accounts.
type Sellers interface {
	Get(ctx context.Context, id string) (user.User, error)
}

// Products resolves the products a line may reference.
type Products interface {
	Unit(ctx context.Context, id string) (product.Unit, error)
	Bundle(ctx context.Context, id string) (product.Bundle, error)
}

// Ledger validates and records sales.
type Ledger struct {
	repo     Repository
	sellers  Sellers
	products Products
	now      func() time.Time
}

// NewLedger creates a sale ledger.
func NewLedger(repo Repository, sellers Sellers, products Products) *Ledger {
	return &Ledger{repo: repo, sellers: sellers, products: products, now: time.Now}
}

// channelRoles lists who may record a sale on each channel.
var channelRoles = map[Channel][]user.Role{
	ToSeller:   {user.CommercialAgent, user.Admin},
	FromSeller: {user.Seller, user.Admin, user.CommercialAgent},
}

// CreateSale checks authorization, the seller and every line before saving
// anything. It returns the saved sale and the event describing it.
func (l *Ledger) CreateSale(ctx context.Context, channel Channel, sellerID string, lines []Line, actorRoles []user.Role) (Sale, event.Event, error) {
	allowed, ok := channelRoles[channel]
	if !ok {
		return Sale{}, event.Event{}, badRequest("unknown sale channel: " + string(channel))
	}
	if !user.HasAny(actorRoles, allowed...) {
		return Sale{}, event.Event{}, apperr.New(apperr.KindForbidden, "not allowed to record "+string(channel)+" sales")
	}

	seller, err := l.sellers.Get(ctx, sellerID)
	if errors.Is(err, user.ErrNotFound) {
		return Sale{}, event.Event{}, badRequest("seller not found: " + sellerID)
	}
	if err != nil {
		return Sale{}, event.Event{}, apperr.Storage("load seller", err)
	}
	if seller.Role != user.Seller {
		return Sale{}, event.Event{}, badRequest("user is not a seller: " + sellerID)
	}

	if len(lines) == 0 {
		return Sale{}, event.Event{}, badRequest("a sale needs at least one line")
	}
	checked := make([]Line, 0, len(lines))
	for _, in := range lines {
		ln, err := l.checkLine(ctx, channel, in)
		if err != nil {
			return Sale{}, event.Event{}, err
		}
		checked = append(checked, ln)
	}

	s := Sale{
		ID:        uuid.NewString(),
		Channel:   channel,
		CreatedAt: l.now().UTC(),
		SellerID:  seller.ID,
		Lines:     checked,
	}
	if err := l.repo.Create(ctx, s); err != nil {
		return Sale{}, event.Event{}, apperr.Storage("save sale", err)
	}
	return s, createdEvent(s), nil
}

func (l *Ledger) checkLine(ctx context.Context, channel Channel, in Line) (Line, error) {
	in.Kind = LineKind(strings.ToUpper(strings.TrimSpace(string(in.Kind))))
	if in.Quantity < 0 {
		return Line{}, badRequest("negative quantity")
	}
	if in.UnitPrice.IsNegative() {
		return Line{}, badRequest("negative unit price")
	}

	var err error
	switch {
	case in.Kind == UnitLine:
		_, err = l.products.Unit(ctx, in.ProductID)
	case in.Kind == BundleLine && channel == ToSeller:
		_, err = l.products.Bundle(ctx, in.ProductID)
	case channel == FromSeller:
		return Line{}, badRequest("only UNIT lines can be sold from a seller")
	default:
		return Line{}, badRequest("unknown line kind: " + string(in.Kind))
	}
	if apperr.KindOf(err) == apperr.KindNotFound {
		return Line{}, badRequest(strings.ToLower(string(in.Kind)) + " not found: " + in.ProductID)
	}
	if err != nil {
		return Line{}, err
	}
	return in, nil
}

// ListSales returns the sales matching f, oldest first.
func (l *Ledger) ListSales(ctx context.Context, f Filter) ([]Sale, error) {
	out, err := l.repo.List(ctx, f)
	return out, apperr.Storage("list sales", err)
}

// GetSale looks a sale up by id. Absence is reported by ok=false, not an error.
func (l *Ledger) GetSale(ctx context.Context, id string) (Sale, bool, error) {
	s, err := l.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Sale{}, false, nil
	}
	if err != nil {
		return Sale{}, false, apperr.Storage("load sale", err)
	}
	return s, true, nil
}

// Count returns how many sales were recorded.
func (l *Ledger) Count(ctx context.Context) (int, error) {
	n, err := l.repo.Count(ctx)
	return n, apperr.Storage("count sales", err)
}

func createdEvent(s Sale) event.Event {
	t := event.SaleToSellerCreated
	if s.Channel == FromSeller {
		t = event.SaleFromSellerCreated
	}
	return event.New(t, map[string]any{
		"saleId":   s.ID,
		"sellerId": s.SellerID,
		"channel":  string(s.Channel),
		"total":    s.Total(),
	})
}

func badRequest(msg string) error {
	return apperr.New(apperr.KindBadRequest, msg)
}
