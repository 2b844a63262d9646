package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/offer-engine/internal/domain/offer"
)

const countUserApplicationsSQL = `SELECT COALESCE(SUM(frequency), 0)
	FROM order_discounts WHERE offer_id = $1 AND user_id = $2`

var _ offer.UsageLedger = (*UsageRepository)(nil)

// UsageRepository answers per-user usage questions from the order discount
// history.
type UsageRepository struct {
	pool *pgxpool.Pool
}

// NewUsageRepository returns a UsageRepository that uses the given pool.
func NewUsageRepository(pool *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{pool: pool}
}

// CountUserApplications returns how many times the user has had the offer
// applied across past orders.
func (r *UsageRepository) CountUserApplications(ctx context.Context, offerID, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, countUserApplicationsSQL, offerID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting applications of offer %q for user %q: %w", offerID, userID, err)
	}
	return count, nil
}
