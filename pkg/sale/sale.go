// Package sale records sales on the two channels: agents selling stock into a
// seller's inventory, and sellers selling units on to customers.
package sale

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockflow/pkg/apperr"
)

// Channel is the sale pathway.
type Channel string

const (
	ToSeller   Channel = "TO_SELLER"
	FromSeller Channel = "FROM_SELLER"
)

// ParseChannel accepts TO_SELLER / to-seller style spellings.
func ParseChannel(s string) (Channel, error) {
	c := Channel(strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_"))
	if c != ToSeller && c != FromSeller {
		return "", apperr.New(apperr.KindBadRequest, "unknown sale channel: "+s)
	}
	return c, nil
}

// LineKind tells whether a line references a unit or a bundle.
type LineKind string

const (
	UnitLine   LineKind = "UNIT"
	BundleLine LineKind = "BUNDLE"
)

// Line is one sold product reference.
type Line struct {
	Kind      LineKind        `json:"kind"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Subtotal is quantity times unit price.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// MarshalJSON adds the computed subtotal.
func (l Line) MarshalJSON() ([]byte, error) {
	type plain Line
	return json.Marshal(struct {
		plain
		Subtotal decimal.Decimal `json:"subtotal"`
	}{plain(l), l.Subtotal()})
}

// Sale is a recorded sale. Its total is always derived from the lines.
type Sale struct {
	ID        string    `json:"id"`
	Channel   Channel   `json:"channel"`
	CreatedAt time.Time `json:"createdAt"`
	SellerID  string    `json:"sellerId"`
	Lines     []Line    `json:"lines"`
}

// Total sums the line subtotals.
func (s Sale) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// MarshalJSON adds the computed total.
func (s Sale) MarshalJSON() ([]byte, error) {
	type plain Sale
	return json.Marshal(struct {
		plain
		Total decimal.Decimal `json:"total"`
	}{plain(s), s.Total()})
}

// Filter narrows a sale listing. Zero fields are ignored.
type Filter struct {
	Channel  Channel
	From     time.Time
	To       time.Time
	SellerID string
}

// Range returns the half-open instant range covered by From and To: from the
// start of From's day up to the start of the day after To, both in UTC.
// A zero bound stays zero.
func (f Filter) Range() (start, end time.Time) {
	if !f.From.IsZero() {
		start = startOfDay(f.From)
	}
	if !f.To.IsZero() {
		end = startOfDay(f.To).AddDate(0, 0, 1)
	}
	return start, end
}

// Match reports whether s satisfies every set field.
func (f Filter) Match(s Sale) bool {
	if f.Channel != "" && s.Channel != f.Channel {
		return false
	}
	if f.SellerID != "" && s.SellerID != f.SellerID {
		return false
	}
	start, end := f.Range()
	if !start.IsZero() && s.CreatedAt.Before(start) {
		return false
	}
	if !end.IsZero() && !s.CreatedAt.Before(end) {
		return false
	}
	return true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ErrNotFound indicates the requested sale does not exist.
var ErrNotFound = apperr.New(apperr.KindNotFound, "sale not found")

// Repository defines behavior for persisting sales.
type Repository interface {
	Create(ctx context.Context, s Sale) error
	Get(ctx context.Context, id string) (Sale, error)
	// List returns matching sales ordered by creation time.
	List(ctx context.Context, f Filter) ([]Sale, error)
	Count(ctx context.Context) (int, error)
}
