package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/offer-engine/internal/domain/offer"
)

const (
	offerColumns = `id, name, slug, description, status, priority,
		condition_type, condition_range_id, condition_value,
		benefit_type, benefit_range_id, benefit_value, benefit_max_affected,
		start_at, end_at,
		max_global_applications, max_user_applications, max_basket_applications, max_discount,
		total_discount, num_applications, num_orders, version`

	listOpenOffersSQL = `SELECT ` + offerColumns + `
		FROM offers WHERE status = 'Open' ORDER BY priority DESC, slug`

	getOfferBySlugSQL = `SELECT ` + offerColumns + ` FROM offers WHERE slug = $1`

	updateOfferUsageSQL = `UPDATE offers
		SET total_discount = $2, num_applications = $3, num_orders = $4,
			status = $5, version = version + 1
		WHERE id = $1 AND version = $6`

	insertOrderDiscountSQL = `INSERT INTO order_discounts (order_id, offer_id, user_id, frequency, discount)
		VALUES ($1, $2, $3, $4, $5)`
)

// OfferRepository loads offers and persists their usage in PostgreSQL.
type OfferRepository struct {
	pool   *pgxpool.Pool
	ranges *RangeRepository
}

// NewOfferRepository returns an OfferRepository that uses the given pool.
func NewOfferRepository(pool *pgxpool.Pool, ranges *RangeRepository) *OfferRepository {
	return &OfferRepository{pool: pool, ranges: ranges}
}

// ListOpen returns all open offers ordered by descending priority, with their
// condition and benefit ranges loaded.
func (r *OfferRepository) ListOpen(ctx context.Context) ([]*offer.ConditionalOffer, error) {
	rows, err := r.pool.Query(ctx, listOpenOffersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing open offers: %w", err)
	}
	scanned, err := pgx.CollectRows(rows, scanOffer)
	if err != nil {
		return nil, fmt.Errorf("listing open offers: %w", err)
	}
	offers := make([]*offer.ConditionalOffer, 0, len(scanned))
	loaded := make(map[string]*offer.Range)
	for i := range scanned {
		if err := r.attachRanges(ctx, &scanned[i], loaded); err != nil {
			return nil, err
		}
		offers = append(offers, &scanned[i].offer)
	}
	return offers, nil
}

// GetBySlug loads a single offer, with its ranges, by slug.
func (r *OfferRepository) GetBySlug(ctx context.Context, slug string) (*offer.ConditionalOffer, error) {
	rows, err := r.pool.Query(ctx, getOfferBySlugSQL, slug)
	if err != nil {
		return nil, fmt.Errorf("loading offer %q: %w", slug, err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, scanOffer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, offer.ErrNotFound
		}
		return nil, fmt.Errorf("loading offer %q: %w", slug, err)
	}
	if err := r.attachRanges(ctx, &row, make(map[string]*offer.Range)); err != nil {
		return nil, err
	}
	return &row.offer, nil
}

// RecordUsage rolls one order's usage into the offer's counters and writes an
// order discount row, in one transaction. The update is guarded by the
// offer's version: when another writer got there first,
// offer.ErrVersionConflict is returned and neither the store nor the
// in-memory offer changes.
func (r *OfferRepository) RecordUsage(ctx context.Context, o *offer.ConditionalOffer, orderID, userID string, u offer.Usage) error {
	prevVersion := o.Version
	next := *o
	next.RecordUsage(u)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("recording usage for offer %q: %w", o.Slug, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, updateOfferUsageSQL,
		o.ID, next.TotalDiscount, next.NumApplications, next.NumOrders, string(next.Status), prevVersion,
	)
	if err != nil {
		return fmt.Errorf("recording usage for offer %q: %w", o.Slug, err)
	}
	if tag.RowsAffected() == 0 {
		return offer.ErrVersionConflict
	}

	if _, err := tx.Exec(ctx, insertOrderDiscountSQL, orderID, o.ID, userID, u.Freq, u.Discount); err != nil {
		return fmt.Errorf("recording usage for offer %q: %w", o.Slug, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("recording usage for offer %q: %w", o.Slug, err)
	}
	*o = next
	o.Version = prevVersion + 1
	return nil
}

// offerRow pairs a scanned offer with the range IDs still to be resolved.
type offerRow struct {
	offer            offer.ConditionalOffer
	conditionRangeID string
	benefitRangeID   string
}

func scanOffer(row pgx.CollectableRow) (offerRow, error) {
	var (
		o                offerRow
		status           string
		conditionType    string
		benefitType      string
		conditionRangeID *string
		benefitRangeID   *string
		startAt          *time.Time
		endAt            *time.Time
	)
	err := row.Scan(
		&o.offer.ID, &o.offer.Name, &o.offer.Slug, &o.offer.Description, &status, &o.offer.Priority,
		&conditionType, &conditionRangeID, &o.offer.Condition.Value,
		&benefitType, &benefitRangeID, &o.offer.Benefit.Value, &o.offer.Benefit.MaxAffectedItems,
		&startAt, &endAt,
		&o.offer.MaxGlobalApplications, &o.offer.MaxUserApplications, &o.offer.MaxBasketApplications, &o.offer.MaxDiscount,
		&o.offer.TotalDiscount, &o.offer.NumApplications, &o.offer.NumOrders, &o.offer.Version,
	)
	o.offer.Status = offer.Status(status)
	o.offer.Condition.Type = offer.ConditionType(conditionType)
	o.offer.Benefit.Type = offer.BenefitType(benefitType)
	o.offer.Start = startAt
	o.offer.End = endAt
	if conditionRangeID != nil {
		o.conditionRangeID = *conditionRangeID
	}
	if benefitRangeID != nil {
		o.benefitRangeID = *benefitRangeID
	}
	return o, err
}

func (r *OfferRepository) attachRanges(ctx context.Context, row *offerRow, loaded map[string]*offer.Range) error {
	load := func(id string) (*offer.Range, error) {
		if rng, ok := loaded[id]; ok {
			return rng, nil
		}
		rng, err := r.ranges.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("loading ranges for offer %q: %w", row.offer.Slug, err)
		}
		loaded[id] = rng
		return rng, nil
	}

	if row.conditionRangeID != "" {
		rng, err := load(row.conditionRangeID)
		if err != nil {
			return err
		}
		row.offer.Condition.Range = rng
	}
	if row.benefitRangeID != "" {
		rng, err := load(row.benefitRangeID)
		if err != nil {
			return err
		}
		row.offer.Benefit.Range = rng
	}
	return nil
}
