package offer

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xenking/offer-engine/internal/domain/basket"
)

// ValueCondition is satisfied when the unconsumed matching items in the
// basket are worth at least Value.
type ValueCondition struct {
	conditionBase

	memoBasket *basket.Basket
	memoValue  decimal.Decimal
}

// IsSatisfied accumulates unit price times unconsumed quantity over
// applicable lines and short-circuits once the threshold is reached.
func (c *ValueCondition) IsSatisfied(_ *ConditionalOffer, b *basket.Basket) bool {
	matched := decimal.Zero
	for _, line := range b.Lines() {
		if c.canApply(line) && line.QuantityWithoutDiscount() > 0 {
			matched = matched.Add(line.UnitPrice().Mul(decimal.NewFromInt(int64(line.QuantityWithoutDiscount()))))
		}
		if matched.GreaterThanOrEqual(c.value) {
			return true
		}
	}
	return false
}

func (c *ValueCondition) valueOfMatches(b *basket.Basket) decimal.Decimal {
	if c.memoBasket == b {
		return c.memoValue
	}
	matched := decimal.Zero
	for _, line := range b.Lines() {
		if c.canApply(line) && line.QuantityWithoutDiscount() > 0 {
			matched = matched.Add(line.UnitPrice().Mul(decimal.NewFromInt(int64(line.QuantityWithoutDiscount()))))
		}
	}
	c.memoBasket, c.memoValue = b, matched
	return matched
}

func (c *ValueCondition) IsPartiallySatisfied(_ *ConditionalOffer, b *basket.Basket) bool {
	matched := c.valueOfMatches(b)
	return matched.IsPositive() && matched.LessThan(c.value)
}

func (c *ValueCondition) UpsellMessage(_ *ConditionalOffer, b *basket.Basket) string {
	remaining := c.value.Sub(c.valueOfMatches(b))
	if !remaining.IsPositive() {
		return ""
	}
	return fmt.Sprintf("Spend %s more from %s", remaining.StringFixed(2), c.rng.Name)
}

// ConsumeItems consumes enough units, most expensive lines first, to cover
// the value the benefit did not already consume. Per line it takes
// min(remaining quantity, ceil(deficit / unit price)) units: a fractional
// unit cannot be partially consumed.
func (c *ValueCondition) ConsumeItems(_ *ConditionalOffer, b *basket.Basket, affected []AffectedLine) {
	consumed := decimal.Zero
	for _, a := range affected {
		consumed = consumed.Add(a.Line.UnitPrice().Mul(decimal.NewFromInt(int64(a.Quantity))))
	}
	toConsume := c.value.Sub(consumed)
	if !toConsume.IsPositive() {
		return
	}

	for _, pl := range c.applicableLines(b, true) {
		needed := int(toConsume.Div(pl.price).Ceil().IntPart())
		n := min(pl.line.QuantityWithoutDiscount(), needed)
		pl.line.Consume(n)
		toConsume = toConsume.Sub(pl.price.Mul(decimal.NewFromInt(int64(n))))
		if !toConsume.IsPositive() {
			return
		}
	}
}
