package offer

import (
	"sort"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/offer-engine/internal/domain/basket"
)

// ConditionType enumerates the built-in condition strategies.
type ConditionType string

const (
	// ConditionCount requires a number of matching items in the basket.
	ConditionCount ConditionType = "count"
	// ConditionValue requires a monetary value of matching items.
	ConditionValue ConditionType = "value"
	// ConditionCoverage requires a number of distinct matching products.
	ConditionCoverage ConditionType = "coverage"
	// ConditionCustom delegates to an externally registered implementation.
	ConditionCustom ConditionType = "custom"
)

// AffectedLine records the discount a benefit already applied to one line.
type AffectedLine struct {
	Line     *basket.Line
	Discount decimal.Decimal
	Quantity int
}

// Condition is an eligibility rule over a basket.
//
// Implementations cache their matched computation per basket between the
// satisfaction check and the upsell/consume calls; a condition instance is
// built once per evaluation and must not be shared across baskets.
type Condition interface {
	Range() *Range
	Value() decimal.Decimal

	IsSatisfied(o *ConditionalOffer, b *basket.Basket) bool
	IsPartiallySatisfied(o *ConditionalOffer, b *basket.Basket) bool
	// UpsellMessage returns a hint on what to add to qualify, or "".
	UpsellMessage(o *ConditionalOffer, b *basket.Basket) string
	// ConsumeItems marks basket quantity as used by the offer so that
	// lower-priority offers cannot reuse it. affected lists the lines the
	// benefit already touched.
	ConsumeItems(o *ConditionalOffer, b *basket.Basket, affected []AffectedLine)
}

// ConditionFactory builds a custom condition from its spec.
type ConditionFactory func(spec ConditionSpec) (Condition, error)

var conditionRegistry = map[string]ConditionFactory{}

// RegisterCondition makes a custom condition implementation available under
// the given name. Registration happens at program init, before any offer is
// evaluated.
func RegisterCondition(name string, f ConditionFactory) {
	conditionRegistry[name] = f
}

// ConditionSpec is the stored definition of a condition: a type, a range,
// and a threshold value, or the name of a custom implementation.
type ConditionSpec struct {
	Type   ConditionType
	Range  *Range
	Value  decimal.Decimal
	Custom string
}

// Validate rejects misconfigured condition specs before any evaluation.
func (s ConditionSpec) Validate() error {
	switch s.Type {
	case ConditionCount, ConditionCoverage:
		if s.Range == nil {
			return errors.Wrapf(ErrInvalidConfig, "%s condition requires a range", s.Type)
		}
		if !s.Value.IsPositive() || !s.Value.Equal(s.Value.Truncate(0)) {
			return errors.Wrapf(ErrInvalidConfig, "%s condition requires a positive whole-number value", s.Type)
		}
	case ConditionValue:
		if s.Range == nil {
			return errors.Wrap(ErrInvalidConfig, "value condition requires a range")
		}
		if !s.Value.IsPositive() {
			return errors.Wrap(ErrInvalidConfig, "value condition requires a positive value")
		}
	case ConditionCustom:
		if _, ok := conditionRegistry[s.Custom]; !ok {
			return errors.Wrapf(ErrInvalidConfig, "unknown custom condition %q", s.Custom)
		}
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown condition type %q", s.Type)
	}
	return nil
}

// Build resolves the spec to a concrete condition. The result is used for
// one evaluation pass.
func (s ConditionSpec) Build() (Condition, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	switch s.Type {
	case ConditionCount:
		return &CountCondition{conditionBase: conditionBase{rng: s.Range, value: s.Value}}, nil
	case ConditionValue:
		return &ValueCondition{conditionBase: conditionBase{rng: s.Range, value: s.Value}}, nil
	case ConditionCoverage:
		return &CoverageCondition{conditionBase: conditionBase{rng: s.Range, value: s.Value}}, nil
	case ConditionCustom:
		return conditionRegistry[s.Custom](s)
	}
	return nil, errors.Wrapf(ErrInvalidConfig, "unknown condition type %q", s.Type)
}

// conditionBase carries the shared fields and line-selection helpers.
type conditionBase struct {
	rng   *Range
	value decimal.Decimal
}

func (c *conditionBase) Range() *Range { return c.rng }
func (c *conditionBase) Value() decimal.Decimal { return c.value }

// canApply reports whether a line is applicable to the condition: it must
// have a priced stock record, its product must be in the range, and the
// product must be discountable.
func (c *conditionBase) canApply(line *basket.Line) bool {
	if !line.HasStockRecord() {
		return false
	}
	p := line.Product()
	return c.rng.Contains(p) && p.IsDiscountable
}

type pricedLine struct {
	price decimal.Decimal
	line  *basket.Line
}

// applicableLines returns the lines this condition can consume, sorted by
// unit price. Zero-priced lines are skipped.
func (c *conditionBase) applicableLines(b *basket.Basket, mostExpensiveFirst bool) []pricedLine {
	var lines []pricedLine
	for _, line := range b.Lines() {
		if !c.canApply(line) {
			continue
		}
		price := line.UnitPrice()
		if !price.IsPositive() {
			continue
		}
		lines = append(lines, pricedLine{price: price, line: line})
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if mostExpensiveFirst {
			return lines[i].price.GreaterThan(lines[j].price)
		}
		return lines[i].price.LessThan(lines[j].price)
	})
	return lines
}
