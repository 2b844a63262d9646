package offer

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/offer-engine/internal/domain/basket"
)

// ErrNotFound is returned when a requested offer does not exist.
var ErrNotFound = errors.New("offer not found")

// ErrVersionConflict is returned when persisting offer usage loses the
// optimistic concurrency race. The caller should reload the offer and retry.
var ErrVersionConflict = errors.New("offer version conflict")

// Status is the lifecycle state of a conditional offer.
type Status string

const (
	// StatusOpen means the offer can still be applied.
	StatusOpen Status = "Open"
	// StatusSuspended means the offer was administratively paused.
	StatusSuspended Status = "Suspended"
	// StatusConsumed means the offer's usage caps leave zero remaining uses.
	StatusConsumed Status = "Consumed"
)

// applicationCeiling bounds MaxApplications when no explicit cap is set.
const applicationCeiling = 10000

// UsageLedger reports how often a user has used an offer across past orders.
// It is consumed, not owned, by the engine.
type UsageLedger interface {
	CountUserApplications(ctx context.Context, offerID, userID string) (int, error)
}

// Usage summarises one offer's contribution to a completed order.
type Usage struct {
	// Freq is how many times the offer applied within the order.
	Freq int
	// Discount is the total monetary discount the offer produced.
	Discount decimal.Decimal
}

// ConditionalOffer binds a condition to a benefit with availability and
// usage-cap bookkeeping. Higher priority offers are applied first.
type ConditionalOffer struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Status      Status
	Priority    int

	Condition ConditionSpec
	Benefit   BenefitSpec

	// Availability window. Nil means unbounded on that side.
	Start *time.Time
	End   *time.Time

	// Usage caps; zero means unset.
	MaxGlobalApplications int
	MaxUserApplications   int
	MaxBasketApplications int
	// MaxDiscount caps the lifetime discount; zero means unset.
	MaxDiscount decimal.Decimal

	// Running counters.
	TotalDiscount   decimal.Decimal
	NumApplications int
	NumOrders       int

	// Version is the optimistic concurrency token guarding counter updates.
	Version int64

	condition Condition
	benefit   Benefit
}

// Validate rejects misconfigured offers before any evaluation.
func (o *ConditionalOffer) Validate() error {
	if o.Start != nil && o.End != nil && o.Start.After(*o.End) {
		return errors.Wrap(ErrInvalidConfig, "end date must be later than start date")
	}
	if err := o.Condition.Validate(); err != nil {
		return err
	}
	return o.Benefit.Validate()
}

// Resolve validates the offer and instantiates its condition and benefit.
// It must be called once before an evaluation pass; the resolved behaviour
// is reused for every call within the pass.
func (o *ConditionalOffer) Resolve() error {
	if err := o.Validate(); err != nil {
		return err
	}
	cond, err := o.Condition.Build()
	if err != nil {
		return err
	}
	ben, err := o.Benefit.Build()
	if err != nil {
		return err
	}
	o.condition, o.benefit = cond, ben
	return nil
}

func (o *ConditionalOffer) resolved() error {
	if o.condition == nil || o.benefit == nil {
		return errors.Wrapf(ErrInvalidConfig, "offer %s not resolved", o.Slug)
	}
	return nil
}

// IsSuspended reports whether the offer is administratively paused.
func (o *ConditionalOffer) IsSuspended() bool { return o.Status == StatusSuspended }

// IsOpen reports whether the offer is open for use.
func (o *ConditionalOffer) IsOpen() bool { return o.Status == StatusOpen }

// Suspend pauses the offer.
func (o *ConditionalOffer) Suspend() { o.Status = StatusSuspended }

// Unsuspend reopens the offer; RecomputeStatus may demote it to Consumed.
func (o *ConditionalOffer) Unsuspend() {
	o.Status = StatusOpen
	o.RecomputeStatus()
}

// RecomputeStatus re-derives the status from the usage caps. It runs on
// every persist: an offer whose basket/global caps leave zero remaining uses
// becomes Consumed. The per-user cap is ignored here since it needs a
// specific user.
func (o *ConditionalOffer) RecomputeStatus() {
	if o.IsSuspended() {
		return
	}
	if o.maxApplicationsForUserUses(0, false) == 0 {
		o.Status = StatusConsumed
	} else {
		o.Status = StatusOpen
	}
}

// IsAvailable reports whether the offer can be used by the given user at the
// given time. userID may be empty for anonymous baskets.
func (o *ConditionalOffer) IsAvailable(ctx context.Context, ledger UsageLedger, userID string, at time.Time) (bool, error) {
	if o.IsSuspended() {
		return false, nil
	}
	if o.Start != nil && o.Start.After(at) {
		return false, nil
	}
	if o.End != nil && at.After(*o.End) {
		return false, nil
	}
	remaining, err := o.MaxApplications(ctx, ledger, userID)
	if err != nil {
		return false, err
	}
	return remaining > 0, nil
}

// MaxApplications returns how many more times the offer can be applied to a
// basket for the given user: the minimum of the safety ceiling and every
// configured cap's remaining headroom. Zero when any cap is exhausted.
func (o *ConditionalOffer) MaxApplications(ctx context.Context, ledger UsageLedger, userID string) (int, error) {
	userUses := 0
	if o.MaxUserApplications > 0 && userID != "" && ledger != nil {
		n, err := ledger.CountUserApplications(ctx, o.ID, userID)
		if err != nil {
			return 0, errors.Wrap(err, "count user applications")
		}
		userUses = n
	}
	return o.maxApplicationsForUserUses(userUses, userID != ""), nil
}

func (o *ConditionalOffer) maxApplicationsForUserUses(userUses int, haveUser bool) int {
	if !o.MaxDiscount.IsZero() && o.TotalDiscount.GreaterThanOrEqual(o.MaxDiscount) {
		return 0
	}
	limit := applicationCeiling
	if o.MaxUserApplications > 0 && haveUser {
		limit = min(limit, max(0, o.MaxUserApplications-userUses))
	}
	if o.MaxBasketApplications > 0 {
		limit = min(limit, o.MaxBasketApplications)
	}
	if o.MaxGlobalApplications > 0 {
		limit = min(limit, max(0, o.MaxGlobalApplications-o.NumApplications))
	}
	return limit
}

// IsConditionSatisfied reports whether the basket meets the offer's condition.
func (o *ConditionalOffer) IsConditionSatisfied(b *basket.Basket) (bool, error) {
	if err := o.resolved(); err != nil {
		return false, err
	}
	return o.condition.IsSatisfied(o, b), nil
}

// IsConditionPartiallySatisfied reports whether the basket partially meets
// the condition, for upselling.
func (o *ConditionalOffer) IsConditionPartiallySatisfied(b *basket.Basket) (bool, error) {
	if err := o.resolved(); err != nil {
		return false, err
	}
	return o.condition.IsPartiallySatisfied(o, b), nil
}

// UpsellMessage returns a hint on what to add to qualify, or "".
func (o *ConditionalOffer) UpsellMessage(b *basket.Basket) (string, error) {
	if err := o.resolved(); err != nil {
		return "", err
	}
	return o.condition.UpsellMessage(o, b), nil
}

// ApplyBenefit applies the offer's benefit to the basket and returns the
// result. A basket that does not satisfy the condition yields the zero
// result; there is no failure path during evaluation.
func (o *ConditionalOffer) ApplyBenefit(b *basket.Basket) (ApplicationResult, error) {
	if err := o.resolved(); err != nil {
		return nil, err
	}
	if !o.condition.IsSatisfied(o, b) {
		return ZeroDiscount, nil
	}
	return o.benefit.Apply(b, o.condition, o), nil
}

// ShippingDiscount computes the discount the offer's benefit gives off a
// shipping charge.
func (o *ConditionalOffer) ShippingDiscount(charge decimal.Decimal) (decimal.Decimal, error) {
	if err := o.resolved(); err != nil {
		return decimal.Zero, err
	}
	return o.benefit.ShippingDiscount(charge), nil
}

// RecordUsage rolls one order's usage into the running counters and
// re-derives the status. Persistence (with its concurrency guard) is the
// store's job; this mutates only the in-memory offer.
func (o *ConditionalOffer) RecordUsage(u Usage) {
	o.NumApplications += u.Freq
	o.TotalDiscount = o.TotalDiscount.Add(u.Discount)
	o.NumOrders++
	o.RecomputeStatus()
}

// Restriction is one human-readable availability constraint paired with
// whether it is currently satisfied. Restrictions are for display; the apply
// decision itself is IsAvailable/MaxApplications.
type Restriction struct {
	Description string
	IsSatisfied bool
}

// AvailabilityRestrictions lists the offer's availability constraints.
func (o *ConditionalOffer) AvailabilityRestrictions(at time.Time) []Restriction {
	var rs []Restriction
	if o.IsSuspended() {
		rs = append(rs, Restriction{Description: "Offer is suspended", IsSatisfied: false})
	}

	if o.MaxGlobalApplications > 0 {
		remaining := o.MaxGlobalApplications - o.NumApplications
		rs = append(rs, Restriction{
			Description: fmt.Sprintf("Limited to %d uses (%d remaining)", o.MaxGlobalApplications, remaining),
			IsSatisfied: remaining > 0,
		})
	}

	if o.MaxUserApplications > 0 {
		desc := fmt.Sprintf("Limited to %d uses per user", o.MaxUserApplications)
		if o.MaxUserApplications == 1 {
			desc = "Limited to 1 use per user"
		}
		rs = append(rs, Restriction{Description: desc, IsSatisfied: true})
	}

	if o.MaxBasketApplications > 0 {
		desc := fmt.Sprintf("Limited to %d uses per basket", o.MaxBasketApplications)
		if o.MaxBasketApplications == 1 {
			desc = "Limited to 1 use per basket"
		}
		rs = append(rs, Restriction{Description: desc, IsSatisfied: true})
	}

	if o.Start != nil || o.End != nil {
		var desc string
		var ok bool
		switch {
		case o.Start != nil && o.End != nil:
			desc = fmt.Sprintf("Available between %s and %s", formatWindowTime(*o.Start), formatWindowTime(*o.End))
			ok = !at.Before(*o.Start) && !at.After(*o.End)
		case o.Start != nil:
			desc = fmt.Sprintf("Available from %s", formatWindowTime(*o.Start))
			ok = !at.Before(*o.Start)
		default:
			desc = fmt.Sprintf("Available until %s", formatWindowTime(*o.End))
			ok = !at.After(*o.End)
		}
		rs = append(rs, Restriction{Description: desc, IsSatisfied: ok})
	}

	if !o.MaxDiscount.IsZero() {
		rs = append(rs, Restriction{
			Description: fmt.Sprintf("Limited to a cost of %s", o.MaxDiscount.StringFixed(2)),
			IsSatisfied: o.TotalDiscount.LessThan(o.MaxDiscount),
		})
	}

	return rs
}

// formatWindowTime hides the clock when a window boundary falls on midnight.
func formatWindowTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 {
		return t.Format("2 Jan 2006")
	}
	return t.Format("2 Jan 2006 15:04")
}
