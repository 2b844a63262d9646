package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/offer-engine/internal/domain/catalog"
	"github.com/xenking/offer-engine/internal/domain/offer"
)

const (
	getRangeSQL = `SELECT id, name, includes_all FROM ranges WHERE id = $1`

	getRangeProductsSQL = `SELECT product_id, excluded FROM range_products WHERE range_id = $1`

	getRangeClassesSQL = `SELECT class_id FROM range_classes WHERE range_id = $1`

	getRangeCategoriesSQL = `SELECT c.id, c.path
		FROM range_categories rc
		JOIN categories c ON c.id = rc.category_id
		WHERE rc.range_id = $1`

	addRangeProductSQL = `INSERT INTO range_products (range_id, product_id, excluded)
		VALUES ($1, $2, FALSE)
		ON CONFLICT (range_id, product_id) DO NOTHING`

	removeRangeProductSQL = `DELETE FROM range_products
		WHERE range_id = $1 AND product_id = $2 AND excluded = FALSE`
)

// ErrRangeNotFound is returned when a requested range does not exist.
var ErrRangeNotFound = errors.New("range not found")

// RangeRepository loads and mutates range definitions in PostgreSQL.
type RangeRepository struct {
	pool *pgxpool.Pool
}

// NewRangeRepository returns a RangeRepository that uses the given pool.
func NewRangeRepository(pool *pgxpool.Pool) *RangeRepository {
	return &RangeRepository{pool: pool}
}

// GetByID loads a range with its product, class, and category sets.
func (r *RangeRepository) GetByID(ctx context.Context, id string) (*offer.Range, error) {
	cfg := offer.RangeConfig{ID: id}

	err := r.pool.QueryRow(ctx, getRangeSQL, id).Scan(&cfg.ID, &cfg.Name, &cfg.IncludesAllProducts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRangeNotFound
		}
		return nil, fmt.Errorf("loading range %q: %w", id, err)
	}

	rows, err := r.pool.Query(ctx, getRangeProductsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("loading range %q products: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var productID string
		var excluded bool
		if err := rows.Scan(&productID, &excluded); err != nil {
			return nil, fmt.Errorf("loading range %q products: %w", id, err)
		}
		if excluded {
			cfg.ExcludedProductIDs = append(cfg.ExcludedProductIDs, productID)
		} else {
			cfg.IncludedProductIDs = append(cfg.IncludedProductIDs, productID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading range %q products: %w", id, err)
	}

	classRows, err := r.pool.Query(ctx, getRangeClassesSQL, id)
	if err != nil {
		return nil, fmt.Errorf("loading range %q classes: %w", id, err)
	}
	cfg.ClassIDs, err = pgx.CollectRows(classRows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("loading range %q classes: %w", id, err)
	}

	catRows, err := r.pool.Query(ctx, getRangeCategoriesSQL, id)
	if err != nil {
		return nil, fmt.Errorf("loading range %q categories: %w", id, err)
	}
	cfg.IncludedCategories, err = pgx.CollectRows(catRows, func(row pgx.CollectableRow) (catalog.Category, error) {
		var c catalog.Category
		err := row.Scan(&c.ID, &c.Path)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("loading range %q categories: %w", id, err)
	}

	return offer.NewRange(cfg), nil
}

// AddProduct adds a product to the range's explicit include set. It reports
// whether the product was newly added (false means it was already present).
func (r *RangeRepository) AddProduct(ctx context.Context, rangeID, productID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, addRangeProductSQL, rangeID, productID)
	if err != nil {
		return false, fmt.Errorf("adding product %q to range %q: %w", productID, rangeID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// RemoveProduct removes a product from the range's explicit include set.
func (r *RangeRepository) RemoveProduct(ctx context.Context, rangeID, productID string) error {
	_, err := r.pool.Exec(ctx, removeRangeProductSQL, rangeID, productID)
	if err != nil {
		return fmt.Errorf("removing product %q from range %q: %w", productID, rangeID, err)
	}
	return nil
}
