package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-storefront/internal/domain/coupon"
)

const (
	listCouponsSQL = `SELECT code, name, discount_type, discount_value
		FROM coupons ORDER BY position`

	upsertCouponSQL = `INSERT INTO coupons (code, name, discount_type, discount_value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			discount_type = EXCLUDED.discount_type,
			discount_value = EXCLUDED.discount_value`

	deleteCouponSQL = `DELETE FROM coupons WHERE code = $1`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// List returns all coupons in creation order.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	coupons, err := pgx.CollectRows(rows, scanCoupon)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return coupons, nil
}

// Upsert inserts or replaces a coupon by code.
func (r *CouponRepository) Upsert(ctx context.Context, c coupon.Coupon) error {
	if _, err := r.pool.Exec(ctx, upsertCouponSQL,
		c.Code, c.Name, string(c.DiscountType), c.DiscountValue,
	); err != nil {
		return fmt.Errorf("upserting coupon %q: %w", c.Code, err)
	}
	return nil
}

// Delete removes a coupon by code.
func (r *CouponRepository) Delete(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, deleteCouponSQL, code)
	if err != nil {
		return fmt.Errorf("deleting coupon %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
	)
	err := row.Scan(&c.Code, &c.Name, &discountType, &c.DiscountValue)
	c.DiscountType = coupon.DiscountType(discountType)
	return c, err
}
