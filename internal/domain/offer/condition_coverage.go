package offer

import (
	"fmt"

	"github.com/xenking/offer-engine/internal/domain/basket"
)

// CoverageCondition is satisfied when the basket covers at least Value
// distinct matching products. Quantity is irrelevant; duplicates are ignored.
type CoverageCondition struct {
	conditionBase

	memoBasket  *basket.Basket
	memoCovered int
}

func (c *CoverageCondition) threshold() int { return int(c.value.IntPart()) }

func (c *CoverageCondition) IsSatisfied(_ *ConditionalOffer, b *basket.Basket) bool {
	covered := make(map[string]struct{})
	for _, line := range b.Lines() {
		if line.QuantityWithoutDiscount() == 0 {
			continue
		}
		if !c.canApply(line) {
			continue
		}
		covered[line.Product().ID] = struct{}{}
		if len(covered) >= c.threshold() {
			return true
		}
	}
	return false
}

func (c *CoverageCondition) numCovered(b *basket.Basket) int {
	if c.memoBasket == b {
		return c.memoCovered
	}
	covered := make(map[string]struct{})
	for _, line := range b.Lines() {
		if line.QuantityWithoutDiscount() == 0 || !c.canApply(line) {
			continue
		}
		covered[line.Product().ID] = struct{}{}
	}
	c.memoBasket, c.memoCovered = b, len(covered)
	return len(covered)
}

func (c *CoverageCondition) IsPartiallySatisfied(_ *ConditionalOffer, b *basket.Basket) bool {
	covered := c.numCovered(b)
	return 0 < covered && covered < c.threshold()
}

func (c *CoverageCondition) UpsellMessage(_ *ConditionalOffer, b *basket.Basket) string {
	delta := c.threshold() - c.numCovered(b)
	if delta <= 0 {
		return ""
	}
	return fmt.Sprintf("Buy %d more %s from %s", delta, pluralize(delta, "product", "products"), c.rng.Name)
}

// ConsumeItems consumes one unit from each distinct applicable product the
// benefit has not already touched, until the distinct-count deficit is met.
func (c *CoverageCondition) ConsumeItems(_ *ConditionalOffer, b *basket.Basket, affected []AffectedLine) {
	consumedProducts := make(map[string]struct{}, len(affected))
	for _, a := range affected {
		consumedProducts[a.Line.Product().ID] = struct{}{}
	}

	toConsume := c.threshold() - len(consumedProducts)
	if toConsume <= 0 {
		return
	}

	for _, line := range b.Lines() {
		if !c.canApply(line) {
			continue
		}
		if _, done := consumedProducts[line.Product().ID]; done {
			continue
		}
		if line.QuantityWithoutDiscount() == 0 {
			continue
		}
		line.Consume(1)
		consumedProducts[line.Product().ID] = struct{}{}
		toConsume--
		if toConsume == 0 {
			return
		}
	}
}
