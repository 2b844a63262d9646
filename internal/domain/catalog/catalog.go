// Package catalog holds the product data the offer engine evaluates against.
//
// The engine only needs a narrow view of the catalog: product identity,
// parent/child structure, product class, category membership, and the
// discountable flag. Pricing for basket lines comes from the stock record
// attached to each line, not from here.
package catalog

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Category is a node in the category tree, identified by a materialized path
// of slash-separated slugs (e.g. "food/fruit/citrus").
type Category struct {
	ID   string
	Path string
}

// IsDescendantOf reports whether c sits strictly below other in the tree.
func (c Category) IsDescendantOf(other Category) bool {
	return strings.HasPrefix(c.Path, other.Path+"/")
}

// EqualOrDescendantOf reports whether c is other or sits below it.
func (c Category) EqualOrDescendantOf(other Category) bool {
	return c.Path == other.Path || c.IsDescendantOf(other)
}

// Product is a catalog item as seen by the offer engine.
//
// Child products (variants) carry a pointer to their parent; range membership
// is always decided against the parent.
type Product struct {
	ID             string
	Name           string
	ClassID        string
	Parent         *Product
	Categories     []Category
	Price          decimal.Decimal
	SKU            string
	UPC            string
	IsDiscountable bool
}

// EffectiveRangeTarget resolves a child product to its parent. Stand-alone
// and parent products resolve to themselves.
func (p Product) EffectiveRangeTarget() Product {
	if p.Parent != nil {
		return *p.Parent
	}
	return p
}

// Repository defines read operations the engine and its tooling need from
// the catalog store.
type Repository interface {
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	// FindByIdentifiers resolves SKU/UPC identifiers to products. Identifiers
	// with no matching product are simply absent from the result.
	FindByIdentifiers(ctx context.Context, identifiers []string) ([]Product, error)
}
