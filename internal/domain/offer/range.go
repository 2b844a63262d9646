package offer

import (
	"sync"

	"github.com/xenking/offer-engine/internal/domain/catalog"
)

// Matcher is a custom product-membership predicate that can replace the
// built-in range logic entirely.
type Matcher interface {
	Contains(p catalog.Product) bool
}

// Range is a named predicate over catalog products. Offers use ranges to
// decide which basket lines their conditions and benefits may act on.
//
// Membership is decided in a fixed order: the exclusion set always wins,
// then the includes-all flag, then product class, then the explicit product
// set, and finally category membership (a product matches when one of its
// categories equals or descends from an included category).
type Range struct {
	ID   string
	Name string

	IncludesAllProducts bool

	mu         sync.RWMutex
	includeIDs map[string]struct{}
	excludeIDs map[string]struct{}
	classIDs   map[string]struct{}
	categories []catalog.Category

	matcher Matcher

	memo map[string]bool
}

// RangeConfig holds the definition of a built-in range.
type RangeConfig struct {
	ID                  string
	Name                string
	IncludesAllProducts bool
	IncludedProductIDs  []string
	ExcludedProductIDs  []string
	ClassIDs            []string
	IncludedCategories  []catalog.Category
}

// NewRange builds a Range from its definition.
func NewRange(cfg RangeConfig) *Range {
	return &Range{
		ID:                  cfg.ID,
		Name:                cfg.Name,
		IncludesAllProducts: cfg.IncludesAllProducts,
		includeIDs:          toSet(cfg.IncludedProductIDs),
		excludeIDs:          toSet(cfg.ExcludedProductIDs),
		classIDs:            toSet(cfg.ClassIDs),
		categories:          cfg.IncludedCategories,
		memo:                make(map[string]bool),
	}
}

// NewCustomRange wraps an externally supplied matcher in a Range.
func NewCustomRange(id, name string, m Matcher) *Range {
	return &Range{ID: id, Name: name, matcher: m, memo: make(map[string]bool)}
}

func toSet(ids []string) map[string]struct{} {
	s := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether the product belongs to the range. Child products
// are resolved to their parent before testing. Results are memoized per
// product until the range definition changes.
func (r *Range) Contains(p catalog.Product) bool {
	p = p.EffectiveRangeTarget()

	r.mu.RLock()
	if ok, hit := r.memo[p.ID]; hit {
		r.mu.RUnlock()
		return ok
	}
	r.mu.RUnlock()

	ok := r.contains(p)

	r.mu.Lock()
	r.memo[p.ID] = ok
	r.mu.Unlock()
	return ok
}

func (r *Range) contains(p catalog.Product) bool {
	if r.matcher != nil {
		return r.matcher.Contains(p)
	}
	if _, excluded := r.excludeIDs[p.ID]; excluded {
		return false
	}
	if r.IncludesAllProducts {
		return true
	}
	if _, ok := r.classIDs[p.ClassID]; ok {
		return true
	}
	if _, ok := r.includeIDs[p.ID]; ok {
		return true
	}
	for _, c := range p.Categories {
		for _, included := range r.categories {
			if c.EqualOrDescendantOf(included) {
				return true
			}
		}
	}
	return false
}

// AddProduct adds a product to the range's explicit include set. It reports
// whether the product was newly added (false means duplicate).
func (r *Range) AddProduct(productID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.includeIDs[productID]; ok {
		return false
	}
	r.includeIDs[productID] = struct{}{}
	r.memo = make(map[string]bool)
	return true
}

// RemoveProduct removes a product from the explicit include set.
func (r *Range) RemoveProduct(productID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.includeIDs, productID)
	r.memo = make(map[string]bool)
}

// IncludedProductIDs returns a snapshot of the explicit include set.
func (r *Range) IncludedProductIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.includeIDs))
	for id := range r.includeIDs {
		ids = append(ids, id)
	}
	return ids
}

// Invalidate drops memoized membership results. Call after changing the
// range definition out of band.
func (r *Range) Invalidate() {
	r.mu.Lock()
	r.memo = make(map[string]bool)
	r.mu.Unlock()
}
