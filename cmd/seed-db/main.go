// Command seed-db creates the schema and loads a small demo catalog with a
// few ranges and offers, enough to exercise the API end to end.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/offer-engine/internal/repository"
)

func main() {
	var databaseURL string

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCatalog(ctx, pool); err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	if err := seedRanges(ctx, pool); err != nil {
		return errors.Wrap(err, "seed ranges")
	}
	if err := seedOffers(ctx, pool); err != nil {
		return errors.Wrap(err, "seed offers")
	}

	return nil
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding categories and products")

	categories := [][2]string{
		{"food", "food"},
		{"fruit", "food/fruit"},
		{"citrus", "food/fruit/citrus"},
		{"drinks", "drinks"},
	}
	for _, c := range categories {
		if _, err := pool.Exec(ctx, `INSERT INTO categories (id, name, path) VALUES ($1, $1, $2)
			ON CONFLICT (id) DO UPDATE SET path = EXCLUDED.path`, c[0], c[1]); err != nil {
			return errors.Wrapf(err, "upsert category %s", c[0])
		}
	}

	products := []struct {
		id, name, classID, sku, category string
		price                            string
	}{
		{"orange", "Orange", "produce", "SKU-ORANGE", "citrus", "1.20"},
		{"lemon", "Lemon", "produce", "SKU-LEMON", "citrus", "0.80"},
		{"apple", "Apple", "produce", "SKU-APPLE", "fruit", "1.00"},
		{"cola", "Cola", "beverage", "SKU-COLA", "drinks", "2.50"},
		{"lemonade", "Lemonade", "beverage", "SKU-LEMONADE", "drinks", "3.00"},
	}
	for _, p := range products {
		if _, err := pool.Exec(ctx, `INSERT INTO products (id, name, class_id, sku, price)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, class_id = EXCLUDED.class_id,
				sku = EXCLUDED.sku, price = EXCLUDED.price`,
			p.id, p.name, p.classID, p.sku, p.price); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.id)
		}
		if _, err := pool.Exec(ctx, `INSERT INTO product_categories (product_id, category_id)
			VALUES ($1, $2) ON CONFLICT DO NOTHING`, p.id, p.category); err != nil {
			return errors.Wrapf(err, "link product %s", p.id)
		}
		slog.Info("upserted product", slog.String("id", p.id), slog.String("name", p.name))
	}

	return nil
}

func seedRanges(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding ranges")

	ranges := []struct {
		id, name    string
		includesAll bool
	}{
		{"all-products", "All products", true},
		{"citrus-fruit", "Citrus fruit", false},
		{"beverages", "Beverages", false},
	}
	for _, r := range ranges {
		if _, err := pool.Exec(ctx, `INSERT INTO ranges (id, name, includes_all)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, includes_all = EXCLUDED.includes_all`,
			r.id, r.name, r.includesAll); err != nil {
			return errors.Wrapf(err, "upsert range %s", r.id)
		}
	}

	if _, err := pool.Exec(ctx, `INSERT INTO range_categories (range_id, category_id)
		VALUES ('citrus-fruit', 'citrus') ON CONFLICT DO NOTHING`); err != nil {
		return errors.Wrap(err, "link citrus range")
	}
	if _, err := pool.Exec(ctx, `INSERT INTO range_classes (range_id, class_id)
		VALUES ('beverages', 'beverage') ON CONFLICT DO NOTHING`); err != nil {
		return errors.Wrap(err, "link beverages range")
	}

	return nil
}

func seedOffers(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding offers")

	offers := []struct {
		id, slug, name                string
		priority                      int
		conditionType, conditionRange string
		conditionValue                string
		benefitType                   string
		benefitRange                  string
		benefitValue                  string
	}{
		{
			id: "offer-citrus", slug: "citrus-deal", name: "3 citrus fruits: 20% off",
			priority:      10,
			conditionType: "count", conditionRange: "citrus-fruit", conditionValue: "3",
			benefitType: "percentage", benefitRange: "citrus-fruit", benefitValue: "20",
		},
		{
			id: "offer-drinks", slug: "free-drink", name: "Buy 2 drinks, cheapest free",
			priority:      5,
			conditionType: "count", conditionRange: "beverages", conditionValue: "2",
			benefitType: "multibuy", benefitRange: "beverages", benefitValue: "0",
		},
		{
			id: "offer-basket", slug: "big-basket", name: "Spend 10, get 1 off",
			priority:      1,
			conditionType: "value", conditionRange: "all-products", conditionValue: "10",
			benefitType: "absolute", benefitRange: "all-products", benefitValue: "1",
		},
	}
	for _, o := range offers {
		if _, err := pool.Exec(ctx, `INSERT INTO offers
			(id, name, slug, priority, condition_type, condition_range_id, condition_value,
			 benefit_type, benefit_range_id, benefit_value)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, priority = EXCLUDED.priority,
				condition_type = EXCLUDED.condition_type, condition_range_id = EXCLUDED.condition_range_id,
				condition_value = EXCLUDED.condition_value, benefit_type = EXCLUDED.benefit_type,
				benefit_range_id = EXCLUDED.benefit_range_id, benefit_value = EXCLUDED.benefit_value`,
			o.id, o.name, o.slug, o.priority,
			o.conditionType, o.conditionRange, o.conditionValue,
			o.benefitType, o.benefitRange, o.benefitValue); err != nil {
			return errors.Wrapf(err, "upsert offer %s", o.slug)
		}
		slog.Info("upserted offer", slog.String("slug", o.slug), slog.String("name", o.name))
	}

	return nil
}
