package offer

import (
	"github.com/xenking/offer-engine/internal/domain/basket"
)

// MultibuyDiscountBenefit makes the single cheapest applicable item free.
type MultibuyDiscountBenefit struct {
	benefitBase
}

func (m *MultibuyDiscountBenefit) Apply(bk *basket.Basket, c Condition, o *ConditionalOffer, _ ...ApplyOption) ApplicationResult {
	lines := m.applicableLines(bk, nil)
	if len(lines) == 0 {
		return ZeroDiscount
	}

	// The cheapest line is first; one unit of it becomes free.
	cheapest := lines[0]
	cheapest.line.ApplyDiscount(cheapest.price, 1)

	affected := []AffectedLine{{Line: cheapest.line, Discount: cheapest.price, Quantity: 1}}
	c.ConsumeItems(o, bk, affected)

	return NewBasketDiscount(cheapest.price)
}
