package offer

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/offer-engine/internal/domain/basket"
)

// shippingBenefit is the shared application behaviour of shipping rewards.
// They never touch basket lines: the condition is consumed with an empty
// affected list so it still records that the offer was used, and the caller
// computes the actual charge reduction via ShippingDiscount.
type shippingBenefit struct {
	benefitBase
}

func (s *shippingBenefit) Apply(bk *basket.Basket, c Condition, o *ConditionalOffer, _ ...ApplyOption) ApplicationResult {
	c.ConsumeItems(o, bk, nil)
	return ShippingDiscount{}
}

// ShippingAbsoluteDiscountBenefit takes a fixed amount off the shipping
// charge, never more than the charge itself.
type ShippingAbsoluteDiscountBenefit struct {
	shippingBenefit
}

func (s *ShippingAbsoluteDiscountBenefit) ShippingDiscount(charge decimal.Decimal) decimal.Decimal {
	return decimal.Min(charge, s.value)
}

// ShippingFixedPriceBenefit caps the shipping charge at a fixed price.
type ShippingFixedPriceBenefit struct {
	shippingBenefit
}

func (s *ShippingFixedPriceBenefit) ShippingDiscount(charge decimal.Decimal) decimal.Decimal {
	if charge.LessThan(s.value) {
		return decimal.Zero
	}
	return charge.Sub(s.value)
}

// ShippingPercentageDiscountBenefit discounts the shipping charge by a
// percentage.
type ShippingPercentageDiscountBenefit struct {
	shippingBenefit
}

func (s *ShippingPercentageDiscountBenefit) ShippingDiscount(charge decimal.Decimal) decimal.Decimal {
	return s.round(charge.Mul(s.value).Div(oneHundred))
}
