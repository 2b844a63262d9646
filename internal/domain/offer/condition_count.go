package offer

import (
	"fmt"

	"github.com/xenking/offer-engine/internal/domain/basket"
)

// CountCondition is satisfied when the basket holds at least Value matching
// items that have not been consumed by a higher-priority offer.
type CountCondition struct {
	conditionBase

	// memo caches the matched count between the satisfaction check and the
	// upsell/consume calls of a single evaluation.
	memoBasket *basket.Basket
	memoCount  int
}

func (c *CountCondition) threshold() int { return int(c.value.IntPart()) }

// IsSatisfied walks lines in basket order and short-circuits as soon as the
// running unconsumed count crosses the threshold.
func (c *CountCondition) IsSatisfied(_ *ConditionalOffer, b *basket.Basket) bool {
	matched := 0
	for _, line := range b.Lines() {
		if c.canApply(line) && line.QuantityWithoutDiscount() > 0 {
			matched += line.QuantityWithoutDiscount()
		}
		if matched >= c.threshold() {
			return true
		}
	}
	return false
}

func (c *CountCondition) numMatches(b *basket.Basket) int {
	if c.memoBasket == b {
		return c.memoCount
	}
	matched := 0
	for _, line := range b.Lines() {
		if c.canApply(line) && line.QuantityWithoutDiscount() > 0 {
			matched += line.QuantityWithoutDiscount()
		}
	}
	c.memoBasket, c.memoCount = b, matched
	return matched
}

func (c *CountCondition) IsPartiallySatisfied(_ *ConditionalOffer, b *basket.Basket) bool {
	matched := c.numMatches(b)
	return 0 < matched && matched < c.threshold()
}

func (c *CountCondition) UpsellMessage(_ *ConditionalOffer, b *basket.Basket) string {
	delta := c.threshold() - c.numMatches(b)
	if delta <= 0 {
		return ""
	}
	return fmt.Sprintf("Buy %d more %s from %s", delta, pluralize(delta, "product", "products"), c.rng.Name)
}

// ConsumeItems consumes whatever the benefit has not already covered, drawing
// from the most expensive applicable lines first.
func (c *CountCondition) ConsumeItems(_ *ConditionalOffer, b *basket.Basket, affected []AffectedLine) {
	consumed := 0
	for _, a := range affected {
		consumed += a.Quantity
	}
	toConsume := c.threshold() - consumed
	if toConsume <= 0 {
		return
	}

	for _, pl := range c.applicableLines(b, true) {
		n := min(pl.line.QuantityWithoutDiscount(), toConsume)
		pl.line.Consume(n)
		toConsume -= n
		if toConsume == 0 {
			return
		}
	}
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
