package offer

import (
	"sort"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/offer-engine/internal/domain/basket"
)

// ErrInvalidConfig marks a configuration error caught at offer, condition,
// or benefit setup. Configuration is rejected before any basket evaluation.
var ErrInvalidConfig = errors.New("invalid offer configuration")

// BenefitType enumerates the built-in reward strategies.
type BenefitType string

const (
	// BenefitPercentage discounts matching lines by a percentage.
	BenefitPercentage BenefitType = "percentage"
	// BenefitAbsolute discounts matching lines by a fixed amount,
	// distributed proportionally.
	BenefitAbsolute BenefitType = "absolute"
	// BenefitMultibuy makes the cheapest matching item free.
	BenefitMultibuy BenefitType = "multibuy"
	// BenefitFixedPrice sells the items that satisfy the condition for a
	// fixed total price.
	BenefitFixedPrice BenefitType = "fixed_price"
	// BenefitShippingAbsolute takes a fixed amount off the shipping charge.
	BenefitShippingAbsolute BenefitType = "shipping_absolute"
	// BenefitShippingFixedPrice caps the shipping charge at a fixed price.
	BenefitShippingFixedPrice BenefitType = "shipping_fixed_price"
	// BenefitShippingPercentage discounts the shipping charge by a percentage.
	BenefitShippingPercentage BenefitType = "shipping_percentage"
	// BenefitCustom delegates to an externally registered implementation.
	BenefitCustom BenefitType = "custom"
)

// IsShipping reports whether the type rewards shipping rather than the basket.
func (t BenefitType) IsShipping() bool {
	switch t {
	case BenefitShippingAbsolute, BenefitShippingFixedPrice, BenefitShippingPercentage:
		return true
	}
	return false
}

// Rounder is the pluggable rounding policy applied to computed discounts.
type Rounder func(decimal.Decimal) decimal.Decimal

// TruncateCents is the default rounding policy: truncate toward zero at two
// decimal places.
func TruncateCents(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(2)
}

// ApplyOption tweaks a single benefit application. Benefits that do not
// support an option ignore it.
type ApplyOption func(*applyOptions)

type applyOptions struct {
	valueOverride    *decimal.Decimal
	maxTotalDiscount *decimal.Decimal
}

// WithValueOverride substitutes the benefit's configured value for this
// application (used by voucher-style callers).
func WithValueOverride(v decimal.Decimal) ApplyOption {
	return func(o *applyOptions) { o.valueOverride = &v }
}

// WithMaxTotalDiscount caps the total discount this application may produce.
func WithMaxTotalDiscount(v decimal.Decimal) ApplyOption {
	return func(o *applyOptions) { o.maxTotalDiscount = &v }
}

func collectOptions(opts []ApplyOption) applyOptions {
	var o applyOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Benefit computes and applies the reward of an offer.
type Benefit interface {
	// Apply mutates the basket lines it discounts and invokes the
	// condition's consumption bookkeeping.
	Apply(b *basket.Basket, c Condition, o *ConditionalOffer, opts ...ApplyOption) ApplicationResult
	// ShippingDiscount computes the discount off a shipping charge.
	// Non-shipping benefits return zero.
	ShippingDiscount(charge decimal.Decimal) decimal.Decimal
}

// BenefitFactory builds a custom benefit from its spec.
type BenefitFactory func(spec BenefitSpec) (Benefit, error)

var benefitRegistry = map[string]BenefitFactory{}

// RegisterBenefit makes a custom benefit implementation available under the
// given name.
func RegisterBenefit(name string, f BenefitFactory) {
	benefitRegistry[name] = f
}

// BenefitSpec is the stored definition of a benefit.
type BenefitSpec struct {
	Type  BenefitType
	Range *Range
	Value decimal.Decimal
	// MaxAffectedItems caps how many items the benefit may discount.
	// Zero means effectively unbounded.
	MaxAffectedItems int
	Custom           string
	// Rounder overrides the default discount rounding policy.
	Rounder Rounder
}

var oneHundred = decimal.NewFromInt(100)

// Validate rejects misconfigured benefit specs before any evaluation.
func (s BenefitSpec) Validate() error {
	switch s.Type {
	case BenefitPercentage:
		if s.Range == nil {
			return errors.Wrap(ErrInvalidConfig, "percentage benefit requires a range")
		}
		if s.Value.GreaterThan(oneHundred) {
			return errors.Wrap(ErrInvalidConfig, "percentage discount cannot exceed 100")
		}
	case BenefitAbsolute:
		if s.Range == nil {
			return errors.Wrap(ErrInvalidConfig, "absolute benefit requires a range")
		}
		if !s.Value.IsPositive() {
			return errors.Wrap(ErrInvalidConfig, "absolute benefit requires a value")
		}
	case BenefitMultibuy:
		if s.Range == nil {
			return errors.Wrap(ErrInvalidConfig, "multibuy benefit requires a range")
		}
		if !s.Value.IsZero() {
			return errors.Wrap(ErrInvalidConfig, "multibuy benefit does not take a value")
		}
		if s.MaxAffectedItems != 0 {
			return errors.Wrap(ErrInvalidConfig, "multibuy benefit does not take max affected items")
		}
	case BenefitFixedPrice:
		if s.Range != nil {
			return errors.Wrap(ErrInvalidConfig, "fixed price benefit uses the condition range, not its own")
		}
	case BenefitShippingAbsolute:
		if !s.Value.IsPositive() {
			return errors.Wrap(ErrInvalidConfig, "shipping absolute benefit requires a value")
		}
		if err := s.validateShippingCommon(); err != nil {
			return err
		}
	case BenefitShippingPercentage:
		if s.Value.GreaterThan(oneHundred) {
			return errors.Wrap(ErrInvalidConfig, "percentage discount cannot exceed 100")
		}
		if err := s.validateShippingCommon(); err != nil {
			return err
		}
	case BenefitShippingFixedPrice:
		if err := s.validateShippingCommon(); err != nil {
			return err
		}
	case BenefitCustom:
		if _, ok := benefitRegistry[s.Custom]; !ok {
			return errors.Wrapf(ErrInvalidConfig, "unknown custom benefit %q", s.Custom)
		}
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown benefit type %q", s.Type)
	}
	return nil
}

func (s BenefitSpec) validateShippingCommon() error {
	if s.Range != nil {
		return errors.Wrap(ErrInvalidConfig, "shipping benefits do not apply to products and take no range")
	}
	if s.MaxAffectedItems != 0 {
		return errors.Wrap(ErrInvalidConfig, "shipping benefits do not take max affected items")
	}
	return nil
}

// Build resolves the spec to a concrete benefit.
func (s BenefitSpec) Build() (Benefit, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	base := benefitBase{
		rng:              s.Range,
		value:            s.Value,
		maxAffectedItems: s.MaxAffectedItems,
		round:            s.Rounder,
	}
	if base.round == nil {
		base.round = TruncateCents
	}
	switch s.Type {
	case BenefitPercentage:
		return &PercentageDiscountBenefit{base}, nil
	case BenefitAbsolute:
		return &AbsoluteDiscountBenefit{base}, nil
	case BenefitMultibuy:
		return &MultibuyDiscountBenefit{base}, nil
	case BenefitFixedPrice:
		return &FixedPriceBenefit{base}, nil
	case BenefitShippingAbsolute:
		return &ShippingAbsoluteDiscountBenefit{shippingBenefit{base}}, nil
	case BenefitShippingFixedPrice:
		return &ShippingFixedPriceBenefit{shippingBenefit{base}}, nil
	case BenefitShippingPercentage:
		return &ShippingPercentageDiscountBenefit{shippingBenefit{base}}, nil
	case BenefitCustom:
		return benefitRegistry[s.Custom](s)
	}
	return nil, errors.Wrapf(ErrInvalidConfig, "unknown benefit type %q", s.Type)
}

// maxAffectedCeiling bounds benefits with no explicit item cap.
const maxAffectedCeiling = 10000

type benefitBase struct {
	rng              *Range
	value            decimal.Decimal
	maxAffectedItems int
	round            Rounder
}

func (b *benefitBase) effectiveMaxAffectedItems() int {
	if b.maxAffectedItems > 0 {
		return b.maxAffectedItems
	}
	return maxAffectedCeiling
}

func (b *benefitBase) canApply(line *basket.Line) bool {
	return line.HasStockRecord() && line.Product().IsDiscountable
}

// applicableLines returns the lines available to be discounted, cheapest
// first for consistent application. Lines with a zero price or no remaining
// undiscounted quantity are skipped. rng overrides the benefit's own range
// (the fixed-price benefit passes the condition's range).
func (b *benefitBase) applicableLines(bk *basket.Basket, rng *Range) []pricedLine {
	if rng == nil {
		rng = b.rng
	}
	var lines []pricedLine
	for _, line := range bk.Lines() {
		if !rng.Contains(line.Product()) || !b.canApply(line) {
			continue
		}
		price := line.UnitPrice()
		if !price.IsPositive() {
			continue
		}
		if line.QuantityWithoutDiscount() == 0 {
			continue
		}
		lines = append(lines, pricedLine{price: price, line: line})
	}
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].price.LessThan(lines[j].price)
	})
	return lines
}

// ShippingDiscount on non-shipping benefits is always zero.
func (b *benefitBase) ShippingDiscount(decimal.Decimal) decimal.Decimal {
	return decimal.Zero
}
