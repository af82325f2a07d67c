// Command seed-db loads a catalog file into PostgreSQL and prints admin key
// digests.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/db"
	"github.com/xenking/kart-storefront/internal/codec"
	"github.com/xenking/kart-storefront/internal/domain/auth"
	"github.com/xenking/kart-storefront/internal/domain/product"
	"github.com/xenking/kart-storefront/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		catalogFile string
		hashKey     string
		pepper      string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog", "", "path to catalog JSON file (embedded seed when empty)")
	flag.StringVar(&hashKey, "hash-key", "", "print the digest of this admin key and exit")
	flag.StringVar(&pepper, "pepper", os.Getenv("SHOP_ADMIN_PEPPER"), "HMAC pepper for admin key digests")
	flag.Parse()

	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if hashKey != "" {
		keys, err := auth.NewKeys(pepper, nil)
		if err != nil {
			lg.Fatal("Create keys", zap.Error(err))
		}
		fmt.Println(keys.Hash(hashKey))
		return
	}

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, catalogFile); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, catalogFile string) error {
	data := db.Catalog
	if catalogFile != "" {
		b, err := os.ReadFile(catalogFile)
		if err != nil {
			return errors.Wrap(err, "read catalog")
		}
		data = b
	}
	catalog, err := codec.DecodeCatalog(data)
	if err != nil {
		return err
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products := postgres.NewProductRepository(pool)
	for _, p := range catalog.Products {
		if err := product.Validate(p); err != nil {
			return errors.Wrapf(err, "product %s", p.ID)
		}
		if err := products.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		lg.Info("Upserted product", zap.String("id", p.ID), zap.String("name", p.Name))
	}

	coupons := postgres.NewCouponRepository(pool)
	for _, c := range catalog.Coupons {
		if err := coupons.Upsert(ctx, c); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}
		lg.Info("Upserted coupon", zap.String("code", c.Code))
	}
	return nil
}
