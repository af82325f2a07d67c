package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-storefront/db"
	"github.com/xenking/kart-storefront/internal/domain/coupon"
	"github.com/xenking/kart-storefront/internal/domain/product"
)

func TestSeed(t *testing.T) {
	products, coupons, err := Seed(db.Catalog)
	require.NoError(t, err)

	ctx := context.Background()
	ps, err := products.List(ctx)
	require.NoError(t, err)
	assert.Len(t, ps, 3)

	cs, err := coupons.List(ctx)
	require.NoError(t, err)
	assert.Len(t, cs, 2)
}

func TestSeed_Malformed(t *testing.T) {
	_, _, err := Seed([]byte(`{"products": [{"price": "free"}]}`))
	require.Error(t, err)
}

func TestProductRepository(t *testing.T) {
	ctx := context.Background()
	r := NewProductRepository(
		product.Product{ID: "p1", Name: "One", Price: 100, Stock: 1},
		product.Product{ID: "p2", Name: "Two", Price: 200, Stock: 2},
	)

	require.NoError(t, r.Upsert(ctx, product.Product{ID: "p1", Name: "One v2", Price: 150, Stock: 1}))
	require.NoError(t, r.Upsert(ctx, product.Product{ID: "p3", Name: "Three", Price: 300, Stock: 3}))

	ps, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, ps, 3)
	assert.Equal(t, "One v2", ps[0].Name, "upsert keeps position")
	assert.Equal(t, "p3", ps[2].ID)

	require.NoError(t, r.Delete(ctx, "p2"))
	require.ErrorIs(t, r.Delete(ctx, "p2"), product.ErrNotFound)
}

func TestCouponRepository(t *testing.T) {
	ctx := context.Background()
	r := NewCouponRepository()

	c := coupon.Coupon{Code: "SAVE10", DiscountType: coupon.DiscountPercentage, DiscountValue: 10}
	require.NoError(t, r.Upsert(ctx, c))
	c.DiscountValue = 20
	require.NoError(t, r.Upsert(ctx, c))

	cs, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, int64(20), cs[0].DiscountValue)

	require.NoError(t, r.Delete(ctx, "SAVE10"))
	require.ErrorIs(t, r.Delete(ctx, "SAVE10"), coupon.ErrNotFound)
}
