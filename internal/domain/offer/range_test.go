package offer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xenking/offer-engine/internal/domain/catalog"
)

func TestRangeContains(t *testing.T) {
	fruit := catalog.Category{ID: "c-fruit", Path: "food/fruit"}
	citrus := catalog.Category{ID: "c-citrus", Path: "food/fruit/citrus"}
	veg := catalog.Category{ID: "c-veg", Path: "food/veg"}

	tests := []struct {
		name    string
		cfg     RangeConfig
		product catalog.Product
		want    bool
	}{
		{
			name:    "includes all matches anything",
			cfg:     RangeConfig{IncludesAllProducts: true},
			product: testProduct("p1"),
			want:    true,
		},
		{
			name: "exclusion wins over includes all",
			cfg: RangeConfig{
				IncludesAllProducts: true,
				ExcludedProductIDs:  []string{"p1"},
			},
			product: testProduct("p1"),
			want:    false,
		},
		{
			name: "exclusion wins over explicit include",
			cfg: RangeConfig{
				IncludedProductIDs: []string{"p1"},
				ExcludedProductIDs: []string{"p1"},
			},
			product: testProduct("p1"),
			want:    false,
		},
		{
			name:    "explicit include matches",
			cfg:     RangeConfig{IncludedProductIDs: []string{"p1"}},
			product: testProduct("p1"),
			want:    true,
		},
		{
			name:    "non-member does not match",
			cfg:     RangeConfig{IncludedProductIDs: []string{"p1"}},
			product: testProduct("p2"),
			want:    false,
		},
		{
			name: "product class matches",
			cfg:  RangeConfig{ClassIDs: []string{"books"}},
			product: catalog.Product{
				ID: "p1", ClassID: "books", IsDiscountable: true,
			},
			want: true,
		},
		{
			name: "category equality matches",
			cfg:  RangeConfig{IncludedCategories: []catalog.Category{fruit}},
			product: catalog.Product{
				ID: "p1", Categories: []catalog.Category{fruit},
			},
			want: true,
		},
		{
			name: "category descendant matches",
			cfg:  RangeConfig{IncludedCategories: []catalog.Category{fruit}},
			product: catalog.Product{
				ID: "p1", Categories: []catalog.Category{citrus},
			},
			want: true,
		},
		{
			name: "ancestor category does not match included child",
			cfg:  RangeConfig{IncludedCategories: []catalog.Category{citrus}},
			product: catalog.Product{
				ID: "p1", Categories: []catalog.Category{fruit},
			},
			want: false,
		},
		{
			name: "sibling category does not match",
			cfg:  RangeConfig{IncludedCategories: []catalog.Category{veg}},
			product: catalog.Product{
				ID: "p1", Categories: []catalog.Category{citrus},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRange(tt.cfg)
			assert.Equal(t, tt.want, r.Contains(tt.product))
		})
	}
}

func TestRangeContains_ChildResolvesToParent(t *testing.T) {
	parent := testProduct("parent")
	child := catalog.Product{
		ID:             "child",
		Parent:         &parent,
		IsDiscountable: true,
	}

	r := NewRange(RangeConfig{IncludedProductIDs: []string{"parent"}})
	assert.True(t, r.Contains(child))

	r2 := NewRange(RangeConfig{IncludedProductIDs: []string{"child"}})
	assert.False(t, r2.Contains(child), "membership is decided against the parent")
}

func TestRangeAddRemoveProduct(t *testing.T) {
	r := productRange("p1")
	p2 := testProduct("p2")

	assert.False(t, r.Contains(p2))

	assert.True(t, r.AddProduct("p2"), "first add is new")
	assert.False(t, r.AddProduct("p2"), "second add is a duplicate")
	assert.True(t, r.Contains(p2), "memo is invalidated by AddProduct")

	r.RemoveProduct("p2")
	assert.False(t, r.Contains(p2))
}

type evenMatcher struct{}

func (evenMatcher) Contains(p catalog.Product) bool { return p.ID == "p2" || p.ID == "p4" }

func TestCustomRange(t *testing.T) {
	r := NewCustomRange("r-custom", "custom", evenMatcher{})
	assert.True(t, r.Contains(testProduct("p2")))
	assert.False(t, r.Contains(testProduct("p1")))
}
