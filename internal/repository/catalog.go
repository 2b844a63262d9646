package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/offer-engine/internal/domain/catalog"
)

const (
	getProductsByIDsSQL = `SELECT id, name, class_id, parent_id, COALESCE(sku, ''), COALESCE(upc, ''),
		price, is_discountable
		FROM products WHERE id = ANY($1)`

	findProductsByIdentifiersSQL = `SELECT id, name, class_id, parent_id, COALESCE(sku, ''), COALESCE(upc, ''),
		price, is_discountable
		FROM products WHERE sku = ANY($1) OR upc = ANY($1)`

	getProductCategoriesSQL = `SELECT pc.product_id, c.id, c.path
		FROM product_categories pc
		JOIN categories c ON c.id = pc.category_id
		WHERE pc.product_id = ANY($1)`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// GetByIDs loads the given products with their categories and, for child
// products, their parent. Duplicate ids are allowed; a basket may hold
// several lines of the same product.
func (r *CatalogRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	products, err := r.queryProducts(ctx, getProductsByIDsSQL, unique)
	if err != nil {
		return nil, fmt.Errorf("loading products by ids: %w", err)
	}
	if len(products) != len(unique) {
		return nil, catalog.ErrNotFound
	}
	return products, nil
}

// FindByIdentifiers resolves SKU/UPC identifiers to products. Unknown
// identifiers are absent from the result.
func (r *CatalogRepository) FindByIdentifiers(ctx context.Context, identifiers []string) ([]catalog.Product, error) {
	products, err := r.queryProducts(ctx, findProductsByIdentifiersSQL, identifiers)
	if err != nil {
		return nil, fmt.Errorf("loading products by identifiers: %w", err)
	}
	return products, nil
}

func (r *CatalogRepository) queryProducts(ctx context.Context, sql string, args []string) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, sql, args)
	if err != nil {
		return nil, err
	}

	type productRow struct {
		product  catalog.Product
		parentID string
	}
	prows, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (productRow, error) {
		var pr productRow
		var parentID *string
		err := row.Scan(
			&pr.product.ID, &pr.product.Name, &pr.product.ClassID, &parentID,
			&pr.product.SKU, &pr.product.UPC, &pr.product.Price, &pr.product.IsDiscountable,
		)
		if parentID != nil {
			pr.parentID = *parentID
		}
		return pr, err
	})
	if err != nil {
		return nil, err
	}
	if len(prows) == 0 {
		return nil, nil
	}

	// Load parents not already part of the result set.
	byID := make(map[string]*catalog.Product, len(prows))
	ids := make([]string, 0, len(prows))
	var missingParents []string
	for i := range prows {
		byID[prows[i].product.ID] = &prows[i].product
		ids = append(ids, prows[i].product.ID)
	}
	for i := range prows {
		if pid := prows[i].parentID; pid != "" {
			if _, ok := byID[pid]; !ok {
				missingParents = append(missingParents, pid)
			}
		}
	}
	if len(missingParents) > 0 {
		parents, err := r.queryProducts(ctx, getProductsByIDsSQL, missingParents)
		if err != nil {
			return nil, err
		}
		for i := range parents {
			byID[parents[i].ID] = &parents[i]
			ids = append(ids, parents[i].ID)
		}
	}

	if err := r.attachCategories(ctx, byID, ids); err != nil {
		return nil, err
	}

	out := make([]catalog.Product, len(prows))
	for i := range prows {
		p := prows[i].product
		p.Categories = byID[p.ID].Categories
		if pid := prows[i].parentID; pid != "" {
			if parent, ok := byID[pid]; ok {
				p.Parent = parent
			}
		}
		out[i] = p
	}
	return out, nil
}

func (r *CatalogRepository) attachCategories(ctx context.Context, byID map[string]*catalog.Product, ids []string) error {
	rows, err := r.pool.Query(ctx, getProductCategoriesSQL, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var productID string
		var c catalog.Category
		if err := rows.Scan(&productID, &c.ID, &c.Path); err != nil {
			return err
		}
		if p, ok := byID[productID]; ok {
			p.Categories = append(p.Categories, c)
		}
	}
	return rows.Err()
}
