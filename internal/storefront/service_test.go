package storefront

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-storefront/db"
	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/domain/coupon"
	"github.com/xenking/kart-storefront/internal/domain/notify"
	"github.com/xenking/kart-storefront/internal/domain/order"
	"github.com/xenking/kart-storefront/internal/domain/product"
	"github.com/xenking/kart-storefront/internal/storage/memory"
)

// --- Mocks ---

type recordedNotification struct {
	Message string
	Kind    notify.Kind
}

type recordingSink struct {
	got []recordedNotification
}

func (s *recordingSink) Notify(_ context.Context, message string, kind notify.Kind) {
	s.got = append(s.got, recordedNotification{Message: message, Kind: kind})
}

func (s *recordingSink) last() recordedNotification {
	if len(s.got) == 0 {
		return recordedNotification{}
	}
	return s.got[len(s.got)-1]
}

type failingProducts struct {
	product.Repository
	err error
}

func (f failingProducts) Upsert(context.Context, product.Product) error { return f.err }
func (f failingProducts) Delete(context.Context, string) error          { return f.err }

// blockingPublisher waits for its context to end.
type blockingPublisher struct{}

func (blockingPublisher) PublishCompleted(ctx context.Context, _ cart.Order) error {
	<-ctx.Done()
	return ctx.Err()
}

type mockPublisher struct {
	orders []cart.Order
	err    error
}

func (m *mockPublisher) PublishCompleted(_ context.Context, o cart.Order) error {
	if m.err != nil {
		return m.err
	}
	m.orders = append(m.orders, o)
	return nil
}

// --- Helpers ---

type fixture struct {
	svc       *Service
	sink      *recordingSink
	publisher *mockPublisher
}

func newFixture(t *testing.T, mutate ...func(*Options)) fixture {
	t.Helper()
	products, coupons, err := memory.Seed(db.Catalog)
	require.NoError(t, err)

	f := fixture{sink: &recordingSink{}, publisher: &mockPublisher{}}
	opts := Options{
		Products:  products,
		Coupons:   coupons,
		Publisher: f.publisher,
		Sink:      f.sink,
		Now:       func() time.Time { return time.UnixMilli(1700000000000) },
		NewID:     func() string { return "p-new" },
	}
	for _, m := range mutate {
		m(&opts)
	}

	f.svc, err = New(opts)
	require.NoError(t, err)
	require.NoError(t, f.svc.Load(context.Background()))
	return f
}

func (f fixture) add(t *testing.T, id string, n int) CartView {
	t.Helper()
	var (
		v   CartView
		err error
	)
	for range n {
		v, err = f.svc.AddToCart(context.Background(), id)
		require.NoError(t, err)
	}
	return v
}

// --- Tests ---

func TestNew_RequiresRepositories(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	f := newFixture(t)
	assert.True(t, f.svc.Loaded())
	assert.Len(t, f.svc.Products(context.Background(), ""), 3)
	assert.Len(t, f.svc.Coupons(context.Background()), 2)
}

func TestProducts_Views(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, "p1", 5)

	views := f.svc.Products(ctx, "")
	require.Len(t, views, 3)

	p1 := views[0]
	assert.Equal(t, 15, p1.Remaining)
	assert.False(t, p1.SoldOut)
	assert.True(t, p1.HasDiscount)
	assert.True(t, p1.MaxRate.Equal(decimal.RequireFromString("0.2")))
	assert.Equal(t, 10, p1.MinQuantity)

	filtered := f.svc.Products(ctx, "product 3")
	require.Len(t, filtered, 1)
	assert.Equal(t, "p3", filtered[0].Product.ID)
}

func TestAddToCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v := f.add(t, "p1", 20)
	assert.Equal(t, 20, v.ItemCount)
	assert.Equal(t, notify.KindSuccess, f.sink.last().Kind)

	v, err := f.svc.AddToCart(ctx, "p1")
	require.ErrorIs(t, err, cart.ErrInsufficientStock)
	assert.Equal(t, 20, v.ItemCount, "rejected add returns the unchanged cart")
	assert.Equal(t, notify.KindWarning, f.sink.last().Kind)

	_, err = f.svc.AddToCart(ctx, "missing")
	require.ErrorIs(t, err, ErrProductNotFound)

	views := f.svc.Products(ctx, "")
	assert.True(t, views[0].SoldOut)
}

func TestUpdateQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, "p1", 1)

	v, err := f.svc.UpdateQuantity(ctx, "p1", 10)
	require.NoError(t, err)
	require.Len(t, v.Lines, 1)
	// 10 * 10000 at the 10% tier.
	assert.Equal(t, int64(90000), v.Lines[0].Total)
	assert.Equal(t, 10, v.Lines[0].Remaining)

	v, err = f.svc.UpdateQuantity(ctx, "p1", 21)
	require.ErrorIs(t, err, cart.ErrInsufficientStock)
	assert.Equal(t, 10, v.ItemCount)

	v, err = f.svc.UpdateQuantity(ctx, "p1", 0)
	require.NoError(t, err)
	assert.Empty(t, v.Lines)
}

func TestRemoveFromCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, "p1", 2)
	f.add(t, "p2", 1)

	v, err := f.svc.RemoveFromCart(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, v.Lines, 1)
	assert.Equal(t, "p2", v.Lines[0].Product.ID)

	_, err = f.svc.RemoveFromCart(ctx, "p1")
	require.NoError(t, err)
}

func TestSelectCoupon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, "p1", 10)

	v, err := f.svc.SelectCoupon(ctx, "PERCENT10")
	require.NoError(t, err)
	require.NotNil(t, v.Coupon)
	// 90000 after tier, 10% coupon.
	assert.Equal(t, int64(9000), v.Totals.CouponDiscountTotal)
	assert.Equal(t, int64(81000), v.Totals.GrandTotal)

	v, err = f.svc.SelectCoupon(ctx, "AMOUNT5000")
	require.NoError(t, err)
	assert.Equal(t, "AMOUNT5000", v.Coupon.Code, "selection replaces")
	assert.Equal(t, int64(85000), v.Totals.GrandTotal)

	v, err = f.svc.SelectCoupon(ctx, "NOPE")
	require.ErrorIs(t, err, ErrCouponNotFound)
	assert.Nil(t, v.Coupon, "unknown code clears the selection")
	assert.Equal(t, recordedNotification{Message: "Coupon NOPE not found", Kind: notify.KindError}, f.sink.last())

	_, err = f.svc.SelectCoupon(ctx, "PERCENT10")
	require.NoError(t, err)
	v, err = f.svc.SelectCoupon(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, v.Coupon)

	_, err = f.svc.SelectCoupon(ctx, "PERCENT10")
	require.NoError(t, err)
	v, err = f.svc.ClearCoupon(ctx)
	require.NoError(t, err)
	assert.Nil(t, v.Coupon)
	assert.Equal(t, int64(90000), v.Totals.GrandTotal)
}

func TestCompleteOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, "p1", 2)
	_, err := f.svc.SelectCoupon(ctx, "AMOUNT5000")
	require.NoError(t, err)

	o, err := f.svc.CompleteOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ORD-1700000000000", o.Number)
	assert.Equal(t, int64(15000), o.Totals.GrandTotal)
	assert.Equal(t, "AMOUNT5000", o.CouponCode)
	require.Len(t, f.publisher.orders, 1)
	assert.Equal(t, notify.KindSuccess, f.sink.last().Kind)
	assert.Contains(t, f.sink.last().Message, "ORD-1700000000000")

	v, err := f.svc.Cart(ctx)
	require.NoError(t, err)
	assert.Empty(t, v.Lines)
	assert.Nil(t, v.Coupon)

	// Stock is not decremented by completion.
	assert.Equal(t, 20, f.svc.Products(ctx, "")[0].Remaining)
}

func TestCompleteOrder_EmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CompleteOrder(context.Background())
	require.ErrorIs(t, err, cart.ErrEmptyCart)
	assert.Equal(t, notify.KindWarning, f.sink.last().Kind)
	assert.Empty(t, f.publisher.orders)
}

func TestCompleteOrder_PublishFailureKeepsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, "p1", 1)
	f.publisher.err = errors.New("broker down")

	_, err := f.svc.CompleteOrder(ctx)
	require.Error(t, err)
	assert.Equal(t, notify.KindError, f.sink.last().Kind)

	v, err := f.svc.Cart(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v.ItemCount)
}

func TestCompleteOrder_PublishTimeout(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Publisher = blockingPublisher{}
		o.PublishTimeout = 20 * time.Millisecond
	})
	ctx := context.Background()
	f.add(t, "p1", 1)

	_, err := f.svc.CompleteOrder(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, notify.KindError, f.sink.last().Kind)

	assert.True(t, f.svc.Loaded(), "lock is released after the publish bound")
	v, err := f.svc.Cart(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v.ItemCount)
}

func TestCreateProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.CreateProduct(ctx, product.Draft{Name: "Product 4", Price: 5000, Stock: 5})
	require.NoError(t, err)
	assert.Equal(t, "p-new", p.ID)
	assert.Len(t, f.svc.Products(ctx, ""), 4)

	_, err = f.svc.CreateProduct(ctx, product.Draft{Name: "Free", Price: 0, Stock: 1})
	var fe *product.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "price", fe.Field)
	assert.Equal(t, notify.KindError, f.sink.last().Kind)
	assert.Len(t, f.svc.Products(ctx, ""), 4)
}

func TestUpdateProduct_ReconcilesCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, "p1", 8)

	stock := 3
	p, err := f.svc.UpdateProduct(ctx, "p1", product.Patch{Stock: &stock})
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)

	v, err := f.svc.Cart(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, v.ItemCount)

	kinds := make([]notify.Kind, 0, len(f.sink.got))
	for _, n := range f.sink.got {
		kinds = append(kinds, n.Kind)
	}
	assert.Contains(t, kinds, notify.KindWarning)

	bad := 10000
	_, err = f.svc.UpdateProduct(ctx, "p1", product.Patch{Stock: &bad})
	require.Error(t, err)
	_, err = f.svc.UpdateProduct(ctx, "missing", product.Patch{Stock: &stock})
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestAddProductTier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.AddProductTier(ctx, "p2", product.Tier{Quantity: 5, Rate: decimal.RequireFromString("0.05")})
	require.NoError(t, err)
	assert.Len(t, p.Discounts, 2)

	_, err = f.svc.AddProductTier(ctx, "p2", product.Tier{Quantity: 0, Rate: decimal.RequireFromString("0.05")})
	require.Error(t, err)
	_, err = f.svc.AddProductTier(ctx, "missing", product.Tier{Quantity: 1, Rate: decimal.Zero})
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestDeleteProduct_DropsCartLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, "p1", 2)
	f.add(t, "p2", 1)

	require.NoError(t, f.svc.DeleteProduct(ctx, "p1"))

	v, err := f.svc.Cart(ctx)
	require.NoError(t, err)
	require.Len(t, v.Lines, 1)
	assert.Equal(t, "p2", v.Lines[0].Product.ID)
	assert.Len(t, f.svc.Products(ctx, ""), 2)

	require.ErrorIs(t, f.svc.DeleteProduct(ctx, "p1"), ErrProductNotFound)
}

func TestPersistenceFailureKeepsCatalog(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Products = failingProducts{Repository: o.Products, err: errors.New("db down")}
	})
	ctx := context.Background()

	_, err := f.svc.CreateProduct(ctx, product.Draft{Name: "Product 4", Price: 5000, Stock: 5})
	require.Error(t, err)
	require.Error(t, f.svc.DeleteProduct(ctx, "p1"))

	assert.Len(t, f.svc.Products(ctx, ""), 3)
}

func TestCoupons(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := coupon.Coupon{Code: "SAVE2000", Name: "2000 off", DiscountType: coupon.DiscountAmount, DiscountValue: 2000}
	_, err := f.svc.CreateCoupon(ctx, c)
	require.NoError(t, err)
	assert.Len(t, f.svc.Coupons(ctx), 3)

	_, err = f.svc.CreateCoupon(ctx, c)
	require.ErrorIs(t, err, coupon.ErrDuplicateCode)

	_, err = f.svc.CreateCoupon(ctx, coupon.Coupon{Code: "BIG", DiscountType: coupon.DiscountAmount, DiscountValue: 1})
	require.ErrorIs(t, err, coupon.ErrInvalidCode)

	_, err = f.svc.CreateCoupon(ctx, coupon.Coupon{Code: "HALF150", DiscountType: coupon.DiscountPercentage, DiscountValue: 150})
	var re *coupon.RangeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, int64(100), re.Clamped)
}

func TestDeleteCoupon_ClearsSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, "p1", 1)
	_, err := f.svc.SelectCoupon(ctx, "PERCENT10")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteCoupon(ctx, "PERCENT10"))

	v, err := f.svc.Cart(ctx)
	require.NoError(t, err)
	assert.Nil(t, v.Coupon)
	assert.Len(t, f.svc.Coupons(ctx), 1)

	require.ErrorIs(t, f.svc.DeleteCoupon(ctx, "PERCENT10"), ErrCouponNotFound)
}

func TestDefaultPublisher(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Publisher = nil })
	f.add(t, "p3", 1)

	_, err := f.svc.CompleteOrder(context.Background())
	require.NoError(t, err)
}

var _ order.Publisher = (*mockPublisher)(nil)
