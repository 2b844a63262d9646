package offer

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Affects identifies which part of an order an application result touches.
type Affects int

const (
	// AffectsBasket marks a discount off the basket total.
	AffectsBasket Affects = iota
	// AffectsShipping marks a discount off the shipping charge.
	AffectsShipping
	// AffectsPostOrder marks an action deferred until after order placement.
	AffectsPostOrder
)

// ApplicationResult is the tagged outcome of applying one offer to a basket.
type ApplicationResult interface {
	// Discount is the basket discount amount; zero for non-basket results.
	Discount() decimal.Decimal
	// IsSuccessful reports whether the application produced an effect.
	IsSuccessful() bool
	// IsFinal reports whether no further offer affecting the same area
	// should be tried in this pass.
	IsFinal() bool
	Affects() Affects
}

// BasketDiscount is a simple discount off the basket total.
type BasketDiscount struct {
	amount decimal.Decimal
}

// NewBasketDiscount wraps an amount in a BasketDiscount result.
func NewBasketDiscount(amount decimal.Decimal) BasketDiscount {
	return BasketDiscount{amount: amount}
}

// ZeroDiscount is the shared no-op result.
var ZeroDiscount = NewBasketDiscount(decimal.Zero)

func (d BasketDiscount) Discount() decimal.Decimal { return d.amount }
func (d BasketDiscount) IsSuccessful() bool        { return d.amount.IsPositive() }
func (d BasketDiscount) IsFinal() bool             { return false }
func (d BasketDiscount) Affects() Affects          { return AffectsBasket }

func (d BasketDiscount) String() string {
	return fmt.Sprintf("<basket discount of %s>", d.amount)
}

// ShippingDiscount signals that the offer discounts the shipping charge.
// It is terminal: no further shipping offer is tried in the same pass.
type ShippingDiscount struct{}

func (ShippingDiscount) Discount() decimal.Decimal { return decimal.Zero }
func (ShippingDiscount) IsSuccessful() bool        { return true }
func (ShippingDiscount) IsFinal() bool             { return true }
func (ShippingDiscount) Affects() Affects          { return AffectsShipping }

// PostOrderAction defers the benefit until after the order is placed,
// e.g. crediting loyalty points.
type PostOrderAction struct {
	Description string
}

func (PostOrderAction) Discount() decimal.Decimal { return decimal.Zero }
func (PostOrderAction) IsSuccessful() bool        { return true }
func (PostOrderAction) IsFinal() bool             { return true }
func (PostOrderAction) Affects() Affects          { return AffectsPostOrder }
