package offer

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/offer-engine/internal/domain/basket"
)

// Application records one offer's contribution to a basket pass.
type Application struct {
	Offer *ConditionalOffer
	// Result is the last result the offer produced.
	Result ApplicationResult
	// Freq is how many times the offer applied within the pass.
	Freq int
	// Discount is the total basket discount across all applications.
	Discount decimal.Decimal
}

// OfferUpsell pairs a partially satisfied offer with its upsell message.
type OfferUpsell struct {
	Offer   *ConditionalOffer
	Message string
}

// ApplicationLog is the outcome of applying a set of offers to one basket.
type ApplicationLog struct {
	Applications []Application
	// ShippingOffer is the offer whose terminal shipping result won the
	// pass, if any.
	ShippingOffer *ConditionalOffer
	// PostOrderDescriptions collects deferred benefit descriptions.
	PostOrderDescriptions []string
	// Upsells lists available offers the basket partially satisfies.
	Upsells []OfferUpsell
}

// TotalBasketDiscount sums the basket discounts across all applications.
func (l *ApplicationLog) TotalBasketDiscount() decimal.Decimal {
	total := decimal.Zero
	for _, a := range l.Applications {
		total = total.Add(a.Discount)
	}
	return total
}

// ShippingDiscount computes the discount off the given shipping charge from
// the winning shipping offer, or zero when none applied.
func (l *ApplicationLog) ShippingDiscount(charge decimal.Decimal) decimal.Decimal {
	if l.ShippingOffer == nil {
		return decimal.Zero
	}
	d, err := l.ShippingOffer.ShippingDiscount(charge)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Applicator applies a catalog of offers to baskets.
//
// One basket's pass is strictly sequential in priority order: every offer
// must observe the line consumption performed by the offers before it.
// Passes over independent baskets share no line state and can run in
// parallel.
type Applicator struct {
	ledger UsageLedger
}

// NewApplicator builds an Applicator that consults the given usage ledger
// for per-user caps.
func NewApplicator(ledger UsageLedger) *Applicator {
	return &Applicator{ledger: ledger}
}

// Apply resets the basket's offer state and applies the offers in descending
// priority order. Each offer is re-applied until it stops producing an
// effect or hits its per-basket application cap. A terminal shipping result
// stops all further shipping offers in the pass.
func (a *Applicator) Apply(ctx context.Context, b *basket.Basket, offers []*ConditionalOffer, userID string, at time.Time) (*ApplicationLog, error) {
	sorted := make([]*ConditionalOffer, len(offers))
	copy(sorted, offers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	b.ResetOfferState()

	log := &ApplicationLog{}
	shippingDone := false

	for _, o := range sorted {
		if err := o.Resolve(); err != nil {
			return nil, err
		}
		available, err := o.IsAvailable(ctx, a.ledger, userID, at)
		if err != nil {
			return nil, err
		}
		if !available {
			continue
		}
		if shippingDone && o.Benefit.Type.IsShipping() {
			continue
		}

		maxApps, err := o.MaxApplications(ctx, a.ledger, userID)
		if err != nil {
			return nil, err
		}

		freq := 0
		discount := decimal.Zero
		var last ApplicationResult
		for freq < maxApps {
			result, err := o.ApplyBenefit(b)
			if err != nil {
				return nil, err
			}
			if !result.IsSuccessful() {
				break
			}
			freq++
			discount = discount.Add(result.Discount())
			last = result
			if result.IsFinal() {
				break
			}
		}

		if freq == 0 {
			if partial, _ := o.IsConditionPartiallySatisfied(b); partial {
				if msg, _ := o.UpsellMessage(b); msg != "" {
					log.Upsells = append(log.Upsells, OfferUpsell{Offer: o, Message: msg})
				}
			}
			continue
		}

		log.Applications = append(log.Applications, Application{
			Offer:    o,
			Result:   last,
			Freq:     freq,
			Discount: discount,
		})
		switch last.Affects() {
		case AffectsShipping:
			shippingDone = true
			log.ShippingOffer = o
		case AffectsPostOrder:
			if action, ok := last.(PostOrderAction); ok {
				log.PostOrderDescriptions = append(log.PostOrderDescriptions, action.Description)
			}
		}
	}

	return log, nil
}
