package offer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/offer-engine/internal/domain/basket"
)

func buildBenefit(t *testing.T, spec BenefitSpec) Benefit {
	t.Helper()
	b, err := spec.Build()
	require.NoError(t, err)
	return b
}

func TestPercentageDiscountBenefit(t *testing.T) {
	t.Run("discounts all matching items", func(t *testing.T) {
		line := testLine("p1", 3, "10")
		b := testBasket(line)
		cond := countCondition(allRange(), 2)
		ben := buildBenefit(t, BenefitSpec{Type: BenefitPercentage, Range: allRange(), Value: dec("10")})

		result := ben.Apply(b, cond, nil)

		assert.True(t, dec("3.00").Equal(result.Discount()), "got %s", result.Discount())
		assert.Equal(t, 3, line.ConsumedQuantity())
		assert.True(t, result.IsSuccessful())
		assert.False(t, result.IsFinal())
	})

	t.Run("item cap bounds affected quantity", func(t *testing.T) {
		line := testLine("p1", 3, "10")
		b := testBasket(line)
		cond := countCondition(allRange(), 2)
		ben := buildBenefit(t, BenefitSpec{
			Type: BenefitPercentage, Range: allRange(), Value: dec("10"), MaxAffectedItems: 2,
		})

		result := ben.Apply(b, cond, nil)

		assert.True(t, dec("2.00").Equal(result.Discount()), "got %s", result.Discount())
		assert.Equal(t, 2, line.ConsumedQuantity())
	})

	t.Run("cheapest lines discounted first under item cap", func(t *testing.T) {
		cheap := testLine("p1", 2, "5")
		pricey := testLine("p2", 2, "20")
		b := testBasket(cheap, pricey)
		cond := countCondition(allRange(), 1)
		ben := buildBenefit(t, BenefitSpec{
			Type: BenefitPercentage, Range: allRange(), Value: dec("50"), MaxAffectedItems: 2,
		})

		result := ben.Apply(b, cond, nil)

		// Two cheapest units: 50% of 2 x $5.
		assert.True(t, dec("5.00").Equal(result.Discount()), "got %s", result.Discount())
		assert.Equal(t, 2, cheap.ConsumedQuantity())
		assert.Equal(t, 0, pricey.ConsumedQuantity())
	})

	t.Run("money budget clips the discount", func(t *testing.T) {
		line := testLine("p1", 4, "10")
		b := testBasket(line)
		cond := countCondition(allRange(), 1)
		ben := buildBenefit(t, BenefitSpec{Type: BenefitPercentage, Range: allRange(), Value: dec("50")})

		p, ok := ben.(*PercentageDiscountBenefit)
		require.True(t, ok)
		result := p.Apply(b, cond, nil, WithMaxTotalDiscount(dec("12")))

		assert.True(t, dec("12").Equal(result.Discount()), "got %s", result.Discount())
	})

	t.Run("rounding truncates toward zero", func(t *testing.T) {
		line := testLine("p1", 1, "9.99")
		b := testBasket(line)
		cond := countCondition(allRange(), 1)
		ben := buildBenefit(t, BenefitSpec{Type: BenefitPercentage, Range: allRange(), Value: dec("15")})

		result := ben.Apply(b, cond, nil)

		// 15% of 9.99 = 1.4985, truncated to 1.49.
		assert.True(t, dec("1.49").Equal(result.Discount()), "got %s", result.Discount())
	})

	t.Run("zero priced lines are skipped", func(t *testing.T) {
		free := testLine("p1", 1, "0")
		paid := testLine("p2", 1, "10")
		b := testBasket(free, paid)
		cond := countCondition(allRange(), 1)
		ben := buildBenefit(t, BenefitSpec{Type: BenefitPercentage, Range: allRange(), Value: dec("10")})

		result := ben.Apply(b, cond, nil)

		assert.True(t, dec("1.00").Equal(result.Discount()), "got %s", result.Discount())
		assert.Equal(t, 0, free.ConsumedQuantity())
	})
}

func TestAbsoluteDiscountBenefit(t *testing.T) {
	t.Run("proportional split with exact remainder", func(t *testing.T) {
		l30 := testLine("p1", 1, "30")
		l20 := testLine("p2", 1, "20")
		b := testBasket(l30, l20)
		cond := countCondition(allRange(), 2)
		ben := buildBenefit(t, BenefitSpec{Type: BenefitAbsolute, Range: allRange(), Value: dec("10")})

		result := ben.Apply(b, cond, nil)

		require.True(t, dec("10.00").Equal(result.Discount()), "got %s", result.Discount())
		// Proportional shares: $30 line gets 10*30/50 = $6, $20 line gets $4.
		assert.True(t, dec("6.00").Equal(l30.Discount()), "got %s", l30.Discount())
		assert.True(t, dec("4.00").Equal(l20.Discount()), "got %s", l20.Discount())
	})

	t.Run("per line discounts always sum to the total", func(t *testing.T) {
		// Awkward prices that round badly when split proportionally.
		lines := []*basket.Line{
			testLine("p1", 3, "3.33"),
			testLine("p2", 1, "7.77"),
			testLine("p3", 2, "11.11"),
		}
		b := testBasket(lines...)
		cond := countCondition(allRange(), 1)
		ben := buildBenefit(t, BenefitSpec{Type: BenefitAbsolute, Range: allRange(), Value: dec("10")})

		result := ben.Apply(b, cond, nil)

		sum := decimal.Zero
		for _, l := range lines {
			sum = sum.Add(l.Discount())
		}
		assert.True(t, result.Discount().Equal(sum), "total %s vs sum %s", result.Discount(), sum)
		assert.True(t, dec("10").Equal(result.Discount()))
	})

	t.Run("discount capped at matched value", func(t *testing.T) {
		line := testLine("p1", 1, "6")
		b := testBasket(line)
		cond := countCondition(allRange(), 1)
		ben := buildBenefit(t, BenefitSpec{Type: BenefitAbsolute, Range: allRange(), Value: dec("10")})

		result := ben.Apply(b, cond, nil)

		assert.True(t, dec("6").Equal(result.Discount()), "got %s", result.Discount())
	})

	t.Run("no matching lines yields zero", func(t *testing.T) {
		b := testBasket(testLine("p1", 1, "6"))
		cond := countCondition(allRange(), 1)
		ben := buildBenefit(t, BenefitSpec{Type: BenefitAbsolute, Range: productRange("other"), Value: dec("10")})

		result := ben.Apply(b, cond, nil)

		assert.False(t, result.IsSuccessful())
		assert.True(t, result.Discount().IsZero())
	})
}

func TestFixedPriceBenefit(t *testing.T) {
	t.Run("covered items sold for fixed price", func(t *testing.T) {
		l1 := testLine("p1", 1, "8")
		l2 := testLine("p2", 1, "12")
		b := testBasket(l1, l2)
		cond := countCondition(productRange("p1", "p2"), 2)
		ben := buildBenefit(t, BenefitSpec{Type: BenefitFixedPrice, Value: dec("15")})

		result := ben.Apply(b, cond, nil)

		// Covered value $20 for a fixed price of $15.
		require.True(t, dec("5.00").Equal(result.Discount()), "got %s", result.Discount())
		sum := l1.Discount().Add(l2.Discount())
		assert.True(t, result.Discount().Equal(sum), "conservation: %s vs %s", result.Discount(), sum)
	})

	t.Run("value condition yields zero", func(t *testing.T) {
		b := testBasket(testLine("p1", 2, "10"))
		cond := valueCondition(allRange(), "15")
		ben := buildBenefit(t, BenefitSpec{Type: BenefitFixedPrice, Value: dec("5")})

		result := ben.Apply(b, cond, nil)

		assert.False(t, result.IsSuccessful())
	})

	t.Run("coverage condition covers one unit per line", func(t *testing.T) {
		l1 := testLine("p1", 3, "10")
		l2 := testLine("p2", 3, "10")
		b := testBasket(l1, l2)
		cond := coverageCondition(allRange(), 2)
		ben := buildBenefit(t, BenefitSpec{Type: BenefitFixedPrice, Value: dec("12")})

		result := ben.Apply(b, cond, nil)

		// One unit of each: $20 covered, $12 fixed price.
		assert.True(t, dec("8.00").Equal(result.Discount()), "got %s", result.Discount())
	})

	t.Run("fixed price above covered value yields zero", func(t *testing.T) {
		b := testBasket(testLine("p1", 1, "8"))
		cond := countCondition(allRange(), 1)
		ben := buildBenefit(t, BenefitSpec{Type: BenefitFixedPrice, Value: dec("20")})

		result := ben.Apply(b, cond, nil)

		assert.False(t, result.IsSuccessful())
		assert.False(t, result.Discount().IsNegative(), "discount never goes negative")
	})
}

func TestMultibuyDiscountBenefit(t *testing.T) {
	t.Run("cheapest item becomes free", func(t *testing.T) {
		cheap := testLine("p1", 2, "4")
		pricey := testLine("p2", 1, "10")
		b := testBasket(cheap, pricey)
		cond := countCondition(allRange(), 3)
		ben := buildBenefit(t, BenefitSpec{Type: BenefitMultibuy, Range: allRange()})

		result := ben.Apply(b, cond, nil)

		assert.True(t, dec("4").Equal(result.Discount()), "got %s", result.Discount())
		assert.True(t, dec("4").Equal(cheap.Discount()))
	})

	t.Run("empty range yields zero", func(t *testing.T) {
		b := testBasket(testLine("p1", 1, "4"))
		cond := countCondition(allRange(), 1)
		ben := buildBenefit(t, BenefitSpec{Type: BenefitMultibuy, Range: productRange("other")})

		result := ben.Apply(b, cond, nil)

		assert.False(t, result.IsSuccessful())
	})
}

func TestShippingBenefits(t *testing.T) {
	t.Run("absolute is capped at the charge", func(t *testing.T) {
		ben := buildBenefit(t, BenefitSpec{Type: BenefitShippingAbsolute, Value: dec("5")})
		assert.True(t, dec("5").Equal(ben.ShippingDiscount(dec("8"))))
		assert.True(t, dec("3").Equal(ben.ShippingDiscount(dec("3"))))
	})

	t.Run("fixed price reduces charge to the value", func(t *testing.T) {
		ben := buildBenefit(t, BenefitSpec{Type: BenefitShippingFixedPrice, Value: dec("5")})
		assert.True(t, dec("3").Equal(ben.ShippingDiscount(dec("8"))))
		assert.True(t, ben.ShippingDiscount(dec("4")).IsZero(), "already cheaper than the fixed price")
	})

	t.Run("percentage rounds the discount", func(t *testing.T) {
		ben := buildBenefit(t, BenefitSpec{Type: BenefitShippingPercentage, Value: dec("33")})
		assert.True(t, dec("3.29").Equal(ben.ShippingDiscount(dec("9.99"))), "got %s", ben.ShippingDiscount(dec("9.99")))
	})

	t.Run("apply returns a terminal result and consumes the condition", func(t *testing.T) {
		line := testLine("p1", 2, "10")
		b := testBasket(line)
		cond := countCondition(allRange(), 2)
		ben := buildBenefit(t, BenefitSpec{Type: BenefitShippingAbsolute, Value: dec("5")})

		result := ben.Apply(b, cond, nil)

		assert.True(t, result.IsFinal())
		assert.True(t, result.IsSuccessful())
		assert.Equal(t, AffectsShipping, result.Affects())
		// The condition still records its consumption even though no line
		// is discounted.
		assert.Equal(t, 2, line.ConsumedQuantity())
		assert.True(t, line.Discount().IsZero())
	})

	t.Run("non shipping benefits give zero shipping discount", func(t *testing.T) {
		ben := buildBenefit(t, BenefitSpec{Type: BenefitPercentage, Range: allRange(), Value: dec("10")})
		assert.True(t, ben.ShippingDiscount(dec("9")).IsZero())
	})
}

func TestBenefitSpecValidate(t *testing.T) {
	rng := allRange()

	tests := []struct {
		name    string
		spec    BenefitSpec
		wantErr bool
	}{
		{"valid percentage", BenefitSpec{Type: BenefitPercentage, Range: rng, Value: dec("25")}, false},
		{"percentage over 100", BenefitSpec{Type: BenefitPercentage, Range: rng, Value: dec("101")}, true},
		{"percentage without range", BenefitSpec{Type: BenefitPercentage, Value: dec("25")}, true},
		{"valid absolute", BenefitSpec{Type: BenefitAbsolute, Range: rng, Value: dec("5")}, false},
		{"absolute without value", BenefitSpec{Type: BenefitAbsolute, Range: rng}, true},
		{"valid multibuy", BenefitSpec{Type: BenefitMultibuy, Range: rng}, false},
		{"multibuy with value", BenefitSpec{Type: BenefitMultibuy, Range: rng, Value: dec("3")}, true},
		{"multibuy with item cap", BenefitSpec{Type: BenefitMultibuy, Range: rng, MaxAffectedItems: 2}, true},
		{"fixed price with own range", BenefitSpec{Type: BenefitFixedPrice, Range: rng, Value: dec("5")}, true},
		{"valid fixed price", BenefitSpec{Type: BenefitFixedPrice, Value: dec("5")}, false},
		{"shipping with range", BenefitSpec{Type: BenefitShippingAbsolute, Range: rng, Value: dec("5")}, true},
		{"shipping percentage over 100", BenefitSpec{Type: BenefitShippingPercentage, Value: dec("150")}, true},
		{"shipping with item cap", BenefitSpec{Type: BenefitShippingFixedPrice, MaxAffectedItems: 1}, true},
		{"valid shipping fixed price", BenefitSpec{Type: BenefitShippingFixedPrice, Value: dec("5")}, false},
		{"unknown type", BenefitSpec{Type: "bogus"}, true},
		{"unregistered custom", BenefitSpec{Type: BenefitCustom, Custom: "nope"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCustomRounder(t *testing.T) {
	roundUp := func(d decimal.Decimal) decimal.Decimal { return d.RoundUp(2) }

	line := testLine("p1", 1, "9.99")
	b := testBasket(line)
	cond := countCondition(allRange(), 1)
	ben := buildBenefit(t, BenefitSpec{
		Type: BenefitPercentage, Range: allRange(), Value: dec("15"), Rounder: roundUp,
	})

	result := ben.Apply(b, cond, nil)

	// 1.4985 rounded up instead of truncated.
	assert.True(t, dec("1.50").Equal(result.Discount()), "got %s", result.Discount())
}
