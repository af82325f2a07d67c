// Command coupon-import loads coupons from gzip-compressed CSV files into
// PostgreSQL.
//
// Each line holds CODE,name,type,value. Invalid rows are skipped and
// duplicate codes keep their first occurrence.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		workers     int
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&workers, "workers", 8, "concurrent upserts")
	flag.Parse()

	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}
	if flag.NArg() == 0 {
		lg.Fatal("Usage: coupon-import [flags] file.csv.gz...")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, flag.Args(), workers); err != nil {
		lg.Fatal("Coupon import failed", zap.Error(err))
	}
	lg.Info("Coupon import completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL string, files []string, workers int) error {
	imp := newImporter(lg)
	for _, path := range files {
		if err := imp.readFile(ctx, path); err != nil {
			return err
		}
	}
	lg.Info("Parsed coupons",
		zap.Int("valid", len(imp.coupons)),
		zap.Int("invalid", imp.invalid),
		zap.Int("duplicates", imp.duplicates),
	)
	if len(imp.coupons) == 0 {
		return nil
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	return writeCoupons(ctx, lg, postgres.NewCouponRepository(pool), imp.coupons, workers)
}
