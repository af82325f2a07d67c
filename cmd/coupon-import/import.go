package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-storefront/internal/domain/coupon"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	progressEvery = 10_000
)

// upserter is the subset of coupon.Repository the importer writes through.
type upserter interface {
	Upsert(ctx context.Context, c coupon.Coupon) error
}

type importer struct {
	lg *zap.Logger

	// seen filters codes cheaply; exact confirms bloom positives.
	seen  *bloom.BloomFilter
	exact map[string]struct{}

	coupons    []coupon.Coupon
	invalid    int
	duplicates int
}

func newImporter(lg *zap.Logger) *importer {
	return &importer{
		lg:    lg,
		seen:  bloom.NewWithEstimates(bloomCapacity, bloomFPR),
		exact: make(map[string]struct{}),
	}
}

func (imp *importer) readFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	if err := imp.read(ctx, gz); err != nil {
		return errors.Wrap(err, path)
	}
	return nil
}

func (imp *importer) read(ctx context.Context, r io.Reader) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "line %d", line)
		}
		if line%progressEvery == 0 {
			imp.lg.Info("Import progress", zap.Int("lines", line))
		}

		c, err := parseRecord(rec)
		if err != nil {
			imp.invalid++
			imp.lg.Debug("Skip row", zap.Int("line", line), zap.Error(err))
			continue
		}
		if imp.duplicate(c.Code) {
			imp.duplicates++
			continue
		}
		imp.coupons = append(imp.coupons, c)
	}
}

// duplicate records code and reports whether it was seen before.
func (imp *importer) duplicate(code string) bool {
	if imp.seen.TestAndAddString(code) {
		if _, ok := imp.exact[code]; ok {
			return true
		}
	}
	imp.exact[code] = struct{}{}
	return false
}

func parseRecord(rec []string) (coupon.Coupon, error) {
	if len(rec) != 4 {
		return coupon.Coupon{}, errors.Errorf("got %d fields, want 4", len(rec))
	}
	value, err := strconv.ParseInt(strings.TrimSpace(rec[3]), 10, 64)
	if err != nil {
		return coupon.Coupon{}, errors.Wrap(err, "value")
	}
	c := coupon.Coupon{
		Code:          strings.TrimSpace(rec[0]),
		Name:          strings.TrimSpace(rec[1]),
		DiscountType:  coupon.DiscountType(strings.ToLower(strings.TrimSpace(rec[2]))),
		DiscountValue: value,
	}
	if err := coupon.Validate(c); err != nil {
		return coupon.Coupon{}, err
	}
	return c, nil
}

func writeCoupons(ctx context.Context, lg *zap.Logger, repo upserter, coupons []coupon.Coupon, workers int) error {
	lg.Info("Writing coupons", zap.Int("count", len(coupons)), zap.Int("workers", workers))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, c := range coupons {
		g.Go(func() error {
			if err := repo.Upsert(ctx, c); err != nil {
				return errors.Wrapf(err, "upsert coupon %s", c.Code)
			}
			return nil
		})
	}
	return g.Wait()
}
