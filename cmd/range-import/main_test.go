package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xenking/offer-engine/internal/domain/catalog"
)

func TestSplitIdentifiers(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{name: "single token", line: "SKU-001", want: []string{"SKU-001"}},
		{name: "two tokens on one line", line: "SKU-001 0712345678904", want: []string{"SKU-001", "0712345678904"}},
		{name: "comma separated", line: "SKU-001,SKU-002", want: []string{"SKU-001", "SKU-002"}},
		{name: "keeps word colon dot dash", line: "ns:item.v2-a", want: []string{"ns:item.v2-a"}},
		{name: "mixed separators", line: "a;b\tc (d)", want: []string{"a", "b", "c", "d"}},
		{name: "blank line", line: "   ", want: nil},
		{name: "empty line", line: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitIdentifiers(tt.line)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDedupSet(t *testing.T) {
	set := newDedupSet()

	assert.True(t, set.add("SKU-001"))
	assert.True(t, set.add("SKU-002"))
	assert.False(t, set.add("SKU-001"))

	assert.Equal(t, []string{"SKU-001", "SKU-002"}, set.identifiers())
}

func TestCountUnresolved(t *testing.T) {
	products := []catalog.Product{
		{ID: "p1", SKU: "SKU-001", UPC: "0712345678904"},
		{ID: "p2", SKU: "SKU-002"},
	}

	t.Run("all identifiers match", func(t *testing.T) {
		batch := []string{"SKU-001", "SKU-002"}
		assert.Equal(t, 0, countUnresolved(batch, products))
	})

	t.Run("one product matched on both sku and upc", func(t *testing.T) {
		batch := []string{"SKU-001", "0712345678904", "SKU-002"}
		assert.Equal(t, 0, countUnresolved(batch, products))
	})

	t.Run("counts identifiers with no product", func(t *testing.T) {
		batch := []string{"SKU-001", "SKU-404", "SKU-405"}
		assert.Equal(t, 2, countUnresolved(batch, products))
	})
}
