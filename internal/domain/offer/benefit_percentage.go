package offer

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/offer-engine/internal/domain/basket"
)

// PercentageDiscountBenefit discounts each applicable line by a percentage
// of its unit price, cheapest lines first, until the item cap (and optional
// money cap) is exhausted.
type PercentageDiscountBenefit struct {
	benefitBase
}

func (p *PercentageDiscountBenefit) Apply(bk *basket.Basket, c Condition, o *ConditionalOffer, opts ...ApplyOption) ApplicationResult {
	options := collectOptions(opts)

	percent := p.value
	if options.valueOverride != nil {
		percent = *options.valueOverride
	}
	budget := options.maxTotalDiscount // nil means unbounded

	discount := decimal.Zero
	affectedItems := 0
	maxAffected := p.effectiveMaxAffectedItems()
	var affected []AffectedLine

	for _, pl := range p.applicableLines(bk, nil) {
		if affectedItems >= maxAffected {
			break
		}
		if budget != nil && budget.IsZero() {
			break
		}

		qty := min(pl.line.QuantityWithoutDiscount(), maxAffected-affectedItems)
		lineDiscount := p.round(percent.Div(oneHundred).Mul(pl.price).Mul(decimal.NewFromInt(int64(qty))))
		if lineDiscount.IsNegative() {
			lineDiscount = decimal.Zero
		}
		if budget != nil {
			lineDiscount = decimal.Min(lineDiscount, *budget)
			remaining := budget.Sub(lineDiscount)
			budget = &remaining
		}

		pl.line.ApplyDiscount(lineDiscount, qty)
		affected = append(affected, AffectedLine{Line: pl.line, Discount: lineDiscount, Quantity: qty})
		affectedItems += qty
		discount = discount.Add(lineDiscount)
	}

	if discount.IsPositive() {
		c.ConsumeItems(o, bk, affected)
	}
	return NewBasketDiscount(discount)
}
