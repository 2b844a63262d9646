// Package basket models the order-in-progress that offers are applied to.
//
// Lines carry a consumed-quantity counter that is mutated only during offer
// evaluation. Offers are applied sequentially in priority order; each offer
// observes the consumption performed by the ones before it, which is why the
// basket is passed by reference through a whole evaluation pass.
package basket

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/offer-engine/internal/domain/catalog"
)

// Line is one product entry in a basket.
type Line struct {
	product       catalog.Product
	stockRecordID string
	quantity      int
	unitPrice     decimal.Decimal

	consumed int
	discount decimal.Decimal
}

// NewLine builds a basket line for the given product. The stock record ID
// identifies the priced stock record backing the line; lines without one are
// never eligible for offers.
func NewLine(p catalog.Product, stockRecordID string, quantity int, unitPrice decimal.Decimal) *Line {
	return &Line{
		product:       p,
		stockRecordID: stockRecordID,
		quantity:      quantity,
		unitPrice:     unitPrice,
	}
}

// Product returns the catalog product this line refers to.
func (l *Line) Product() catalog.Product { return l.product }

// Quantity returns the total quantity on the line.
func (l *Line) Quantity() int { return l.quantity }

// UnitPrice returns the effective unit price used for offer calculations.
func (l *Line) UnitPrice() decimal.Decimal { return l.unitPrice }

// HasStockRecord reports whether the line is backed by a priced stock record.
func (l *Line) HasStockRecord() bool { return l.stockRecordID != "" }

// ConsumedQuantity returns how many units offers have consumed so far.
func (l *Line) ConsumedQuantity() int { return l.consumed }

// QuantityWithoutDiscount returns the units still available to offers.
func (l *Line) QuantityWithoutDiscount() int { return l.quantity - l.consumed }

// Discount returns the discount accumulated on this line in the current pass.
func (l *Line) Discount() decimal.Decimal { return l.discount }

// Consume marks n units as used by an offer, clamped so the consumed counter
// never exceeds the line quantity.
func (l *Line) Consume(n int) {
	if n <= 0 {
		return
	}
	l.consumed += n
	if l.consumed > l.quantity {
		l.consumed = l.quantity
	}
}

// ApplyDiscount records a discount of amount covering quantity units and
// consumes those units.
func (l *Line) ApplyDiscount(amount decimal.Decimal, quantity int) {
	l.discount = l.discount.Add(amount)
	l.Consume(quantity)
}

// ResetOfferState clears consumption and accrued discount before a fresh
// evaluation pass.
func (l *Line) ResetOfferState() {
	l.consumed = 0
	l.discount = decimal.Zero
}

// Basket is an ordered collection of lines.
type Basket struct {
	lines []*Line
}

// New returns an empty basket.
func New() *Basket { return &Basket{} }

// AddLine appends a line to the basket.
func (b *Basket) AddLine(l *Line) { b.lines = append(b.lines, l) }

// Lines returns the basket lines in insertion order.
func (b *Basket) Lines() []*Line { return b.lines }

// Subtotal returns the pre-discount value of all lines.
func (b *Basket) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range b.lines {
		sum = sum.Add(l.unitPrice.Mul(decimal.NewFromInt(int64(l.quantity))))
	}
	return sum
}

// TotalDiscount returns the discount accumulated across all lines.
func (b *Basket) TotalDiscount() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range b.lines {
		sum = sum.Add(l.discount)
	}
	return sum
}

// ResetOfferState clears per-line offer state on every line. Callers must
// invoke this at the start of a full evaluation pass.
func (b *Basket) ResetOfferState() {
	for _, l := range b.lines {
		l.ResetOfferState()
	}
}
