package offer

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/offer-engine/internal/domain/basket"
)

// FixedPriceBenefit sells the items that satisfy the condition for a fixed
// total price. It ignores its own range and max-affected-items and works off
// the condition's range and threshold instead. Value conditions yield zero:
// a money threshold does not identify a bundle of items to reprice.
type FixedPriceBenefit struct {
	benefitBase
}

func (f *FixedPriceBenefit) Apply(bk *basket.Basket, c Condition, o *ConditionalOffer, _ ...ApplyOption) ApplicationResult {
	if _, isValue := c.(*ValueCondition); isValue {
		return ZeroDiscount
	}

	lines := f.applicableLines(bk, c.Range())
	if len(lines) == 0 {
		return ZeroDiscount
	}

	_, isCoverage := c.(*CoverageCondition)
	numPermitted := int(c.Value().IntPart())
	numAffected := 0
	valueAffected := decimal.Zero
	type coveredLine struct {
		line  *basket.Line
		price decimal.Decimal
		qty   int
	}
	var covered []coveredLine
	for _, pl := range lines {
		qty := 1
		if !isCoverage {
			qty = min(pl.line.QuantityWithoutDiscount(), numPermitted-numAffected)
		}
		numAffected += qty
		valueAffected = valueAffected.Add(pl.price.Mul(decimal.NewFromInt(int64(qty))))
		covered = append(covered, coveredLine{line: pl.line, price: pl.price, qty: qty})
		if numAffected >= numPermitted {
			break
		}
	}

	discount := decimal.Max(valueAffected.Sub(f.value), decimal.Zero)
	if !discount.IsPositive() {
		return ZeroDiscount
	}

	applied := decimal.Zero
	last := covered[len(covered)-1].line
	for _, cl := range covered {
		var lineDiscount decimal.Decimal
		if cl.line == last {
			lineDiscount = discount.Sub(applied)
		} else {
			lineValue := cl.price.Mul(decimal.NewFromInt(int64(cl.qty)))
			lineDiscount = f.round(discount.Mul(lineValue).Div(valueAffected))
		}
		cl.line.ApplyDiscount(lineDiscount, cl.qty)
		applied = applied.Add(lineDiscount)
	}
	return NewBasketDiscount(discount)
}
