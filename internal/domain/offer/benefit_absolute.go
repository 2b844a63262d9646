package offer

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/offer-engine/internal/domain/basket"
)

// AbsoluteDiscountBenefit takes a fixed amount off the matching lines,
// distributed proportionally to each line's share of the matched value. The
// last line absorbs the rounding remainder so the per-line discounts always
// sum exactly to the (possibly capped) total.
type AbsoluteDiscountBenefit struct {
	benefitBase
}

func (a *AbsoluteDiscountBenefit) Apply(bk *basket.Basket, c Condition, o *ConditionalOffer, opts ...ApplyOption) ApplicationResult {
	options := collectOptions(opts)

	amount := a.value
	if options.valueOverride != nil {
		amount = *options.valueOverride
	}

	// Determine the maximal set of line quantities the item budget allows,
	// cheapest first, and their combined value.
	maxAffected := a.effectiveMaxAffectedItems()
	numAffected := 0
	affectedTotal := decimal.Zero
	type lineQty struct {
		line  *basket.Line
		price decimal.Decimal
		qty   int
	}
	var toDiscount []lineQty
	for _, pl := range a.applicableLines(bk, nil) {
		if numAffected >= maxAffected {
			break
		}
		qty := min(pl.line.QuantityWithoutDiscount(), maxAffected-numAffected)
		toDiscount = append(toDiscount, lineQty{line: pl.line, price: pl.price, qty: qty})
		numAffected += qty
		affectedTotal = affectedTotal.Add(pl.price.Mul(decimal.NewFromInt(int64(qty))))
	}

	// Never discount more than the matched items are worth.
	discount := decimal.Min(amount, affectedTotal)
	if options.maxTotalDiscount != nil {
		discount = decimal.Min(discount, *options.maxTotalDiscount)
	}
	if !discount.IsPositive() {
		return ZeroDiscount
	}

	var affected []AffectedLine
	applied := decimal.Zero
	for i, lq := range toDiscount {
		var lineDiscount decimal.Decimal
		if i == len(toDiscount)-1 {
			// Last line takes the exact remainder so the total never
			// drifts from rounding.
			lineDiscount = discount.Sub(applied)
		} else {
			lineValue := lq.price.Mul(decimal.NewFromInt(int64(lq.qty)))
			lineDiscount = a.round(lineValue.Div(affectedTotal).Mul(discount))
		}
		lq.line.ApplyDiscount(lineDiscount, lq.qty)
		affected = append(affected, AffectedLine{Line: lq.line, Discount: lineDiscount, Quantity: lq.qty})
		applied = applied.Add(lineDiscount)
	}

	c.ConsumeItems(o, bk, affected)
	return NewBasketDiscount(discount)
}
