package offer

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/offer-engine/internal/domain/basket"
	"github.com/xenking/offer-engine/internal/domain/catalog"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testProduct(id string) catalog.Product {
	return catalog.Product{
		ID:             id,
		Name:           id,
		ClassID:        "default",
		IsDiscountable: true,
	}
}

func testLine(productID string, qty int, price string) *basket.Line {
	return basket.NewLine(testProduct(productID), "sr-"+productID, qty, dec(price))
}

func testBasket(lines ...*basket.Line) *basket.Basket {
	b := basket.New()
	for _, l := range lines {
		b.AddLine(l)
	}
	return b
}

// allRange matches every product.
func allRange() *Range {
	return NewRange(RangeConfig{ID: "r-all", Name: "all products", IncludesAllProducts: true})
}

func productRange(ids ...string) *Range {
	return NewRange(RangeConfig{ID: "r-prod", Name: "selected products", IncludedProductIDs: ids})
}

func countCondition(rng *Range, threshold int64) Condition {
	c, err := ConditionSpec{Type: ConditionCount, Range: rng, Value: decimal.NewFromInt(threshold)}.Build()
	if err != nil {
		panic(err)
	}
	return c
}

func valueCondition(rng *Range, threshold string) Condition {
	c, err := ConditionSpec{Type: ConditionValue, Range: rng, Value: dec(threshold)}.Build()
	if err != nil {
		panic(err)
	}
	return c
}

func coverageCondition(rng *Range, threshold int64) Condition {
	c, err := ConditionSpec{Type: ConditionCoverage, Range: rng, Value: decimal.NewFromInt(threshold)}.Build()
	if err != nil {
		panic(err)
	}
	return c
}
