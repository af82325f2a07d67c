// Package storefront is the composition root of the shop. Service owns the
// catalog snapshot, the coupon book and the cart, serializes every operation
// behind one lock, persists admin changes and reports outcomes to a
// notification sink.
package storefront

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/domain/catalog"
	"github.com/xenking/kart-storefront/internal/domain/coupon"
	"github.com/xenking/kart-storefront/internal/domain/notify"
	"github.com/xenking/kart-storefront/internal/domain/order"
	"github.com/xenking/kart-storefront/internal/domain/product"
)

var (
	// ErrProductNotFound is returned for an unknown product id.
	ErrProductNotFound = product.ErrNotFound
	// ErrCouponNotFound is returned for an unknown coupon code.
	ErrCouponNotFound = coupon.ErrNotFound
)

// DefaultPublishTimeout is the publish bound used when Options leaves it unset.
const DefaultPublishTimeout = 5 * time.Second

const instrumentationName = "github.com/xenking/kart-storefront/internal/storefront"

// Options configures a Service. Products and Coupons are required.
type Options struct {
	Products  product.Repository
	Coupons   coupon.Repository
	Publisher order.Publisher
	Sink      notify.Sink

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider

	// PublishTimeout bounds publishing a completed order. Defaults to
	// DefaultPublishTimeout.
	PublishTimeout time.Duration

	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

func (o *Options) setDefaults() {
	if o.Publisher == nil {
		o.Publisher = order.PublisherFunc(func(context.Context, cart.Order) error { return nil })
	}
	if o.Sink == nil {
		o.Sink = notify.LogSink{}
	}
	if o.TracerProvider == nil {
		o.TracerProvider = tracenoop.NewTracerProvider()
	}
	if o.MeterProvider == nil {
		o.MeterProvider = metricnoop.NewMeterProvider()
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = DefaultPublishTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = func() string { return uuid.New().String() }
	}
}

// Service runs storefront operations. It is safe for concurrent use.
type Service struct {
	products  product.Repository
	coupons   coupon.Repository
	publisher order.Publisher
	sink      notify.Sink
	now       func() time.Time
	newID     func() string

	publishTimeout time.Duration

	tracer        trace.Tracer
	notifications metric.Int64Counter
	orders        metric.Int64Counter

	mu      sync.Mutex
	catalog catalog.Snapshot
	book    coupon.Book
	cart    cart.Cart
	loaded  bool
}

// New creates a Service with an empty catalog. Call Load to read the
// repositories.
func New(opts Options) (*Service, error) {
	if opts.Products == nil || opts.Coupons == nil {
		return nil, errors.New("product and coupon repositories are required")
	}
	opts.setDefaults()

	meter := opts.MeterProvider.Meter(instrumentationName)
	notifications, err := meter.Int64Counter("storefront.notifications",
		metric.WithDescription("Notifications emitted, by kind"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create notifications counter")
	}
	orders, err := meter.Int64Counter("storefront.orders.completed",
		metric.WithDescription("Orders completed"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create orders counter")
	}

	return &Service{
		products:      opts.Products,
		coupons:       opts.Coupons,
		publisher:     opts.Publisher,
		sink:          opts.Sink,
		now:           opts.Now,
		newID:         opts.NewID,

		publishTimeout: opts.PublishTimeout,
		tracer:        opts.TracerProvider.Tracer(instrumentationName),
		notifications: notifications,
		orders:        orders,
		catalog:       catalog.New(),
		book:          coupon.NewBook(),
		cart:          cart.New(),
	}, nil
}

// Load replaces the catalog and coupon book with the repository contents
// and empties the cart.
func (s *Service) Load(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "storefront.Load")
	defer span.End()

	products, err := s.products.List(ctx)
	if err != nil {
		return s.fail(span, errors.Wrap(err, "list products"))
	}
	coupons, err := s.coupons.List(ctx)
	if err != nil {
		return s.fail(span, errors.Wrap(err, "list coupons"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = catalog.New(products...)
	s.book = coupon.NewBook(coupons...)
	s.cart = cart.New()
	s.loaded = true

	zctx.From(ctx).Info("Storefront loaded",
		zap.Int("products", len(products)),
		zap.Int("coupons", len(coupons)),
	)
	return nil
}

// Loaded reports whether Load has completed successfully.
func (s *Service) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Products returns the catalog filtered by a search term.
func (s *Service) Products(ctx context.Context, term string) []ProductView {
	_, span := s.tracer.Start(ctx, "storefront.Products",
		trace.WithAttributes(attribute.String("search", term)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.cart.Items()
	filtered := catalog.FilterBySearchTerm(s.catalog.List(), term)
	views := make([]ProductView, len(filtered))
	for i, p := range filtered {
		views[i] = productView(p, items)
	}
	return views
}

// Cart returns the current cart with totals.
func (s *Service) Cart(ctx context.Context) (CartView, error) {
	_, span := s.tracer.Start(ctx, "storefront.Cart")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := cartView(s.cart, s.catalog)
	if err != nil {
		return CartView{}, s.fail(span, err)
	}
	return v, nil
}

// AddToCart adds one unit of a product.
func (s *Service) AddToCart(ctx context.Context, productID string) (CartView, error) {
	ctx, span := s.tracer.Start(ctx, "storefront.AddToCart",
		trace.WithAttributes(attribute.String("product.id", productID)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.catalog.Get(productID)
	if !ok {
		return s.view(span, errors.Wrapf(ErrProductNotFound, "product %s", productID))
	}
	next, err := s.cart.AddToCart(p)
	if err != nil {
		s.notify(ctx, err.Error(), notify.KindWarning)
		return s.view(span, err)
	}

	s.cart = next
	s.notify(ctx, fmt.Sprintf("Added %s to cart", p.Name), notify.KindSuccess)
	return s.view(span, nil)
}

// UpdateQuantity sets the quantity of a cart line. A quantity of zero or
// less removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, productID string, quantity int) (CartView, error) {
	ctx, span := s.tracer.Start(ctx, "storefront.UpdateQuantity",
		trace.WithAttributes(
			attribute.String("product.id", productID),
			attribute.Int("quantity", quantity),
		),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.catalog.Get(productID)
	if !ok {
		return s.view(span, errors.Wrapf(ErrProductNotFound, "product %s", productID))
	}
	next, err := s.cart.UpdateQuantity(p, quantity)
	if err != nil {
		s.notify(ctx, err.Error(), notify.KindWarning)
		return s.view(span, err)
	}

	s.cart = next
	return s.view(span, nil)
}

// RemoveFromCart drops a cart line. Removing an absent line is a no-op.
func (s *Service) RemoveFromCart(ctx context.Context, productID string) (CartView, error) {
	_, span := s.tracer.Start(ctx, "storefront.RemoveFromCart",
		trace.WithAttributes(attribute.String("product.id", productID)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart = s.cart.RemoveFromCart(productID)
	return s.view(span, nil)
}

// SelectCoupon selects the coupon with the given code, replacing any
// previous selection. An empty or unknown code clears the selection; the
// unknown case also returns ErrCouponNotFound.
func (s *Service) SelectCoupon(ctx context.Context, code string) (CartView, error) {
	ctx, span := s.tracer.Start(ctx, "storefront.SelectCoupon",
		trace.WithAttributes(attribute.String("coupon.code", code)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if code == "" {
		s.cart = s.cart.ClearCoupon()
		return s.view(span, nil)
	}
	c, ok := s.book.Find(code)
	if !ok {
		s.cart = s.cart.ClearCoupon()
		s.notify(ctx, fmt.Sprintf("Coupon %s not found", code), notify.KindError)
		return s.view(span, errors.Wrapf(ErrCouponNotFound, "coupon %s", code))
	}

	s.cart = s.cart.ApplyCoupon(c)
	s.notify(ctx, fmt.Sprintf("Coupon %s applied", c.Code), notify.KindSuccess)
	return s.view(span, nil)
}

// ClearCoupon removes the selected coupon.
func (s *Service) ClearCoupon(ctx context.Context) (CartView, error) {
	_, span := s.tracer.Start(ctx, "storefront.ClearCoupon")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart = s.cart.ClearCoupon()
	return s.view(span, nil)
}

// CompleteOrder checks out the cart, publishes the order and clears the
// cart. The cart is kept when publishing fails.
func (s *Service) CompleteOrder(ctx context.Context) (cart.Order, error) {
	ctx, span := s.tracer.Start(ctx, "storefront.CompleteOrder")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	o, next, err := s.cart.Complete(s.catalog, s.now())
	if err != nil {
		if errors.Is(err, cart.ErrEmptyCart) {
			s.notify(ctx, "Cart is empty", notify.KindWarning)
		}
		return cart.Order{}, s.fail(span, err)
	}
	pubCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	if err := s.publisher.PublishCompleted(pubCtx, o); err != nil {
		s.notify(ctx, "Order could not be completed, please try again", notify.KindError)
		return cart.Order{}, s.fail(span, errors.Wrap(err, "publish order"))
	}

	s.cart = next
	span.SetAttributes(
		attribute.String("order.number", o.Number),
		attribute.Int64("order.total", o.Totals.GrandTotal),
	)
	s.orders.Add(ctx, 1)
	s.notify(ctx, fmt.Sprintf("Order completed. Order number: %s", o.Number), notify.KindSuccess)
	return o, nil
}

// CreateProduct validates, persists and adds a new product.
func (s *Service) CreateProduct(ctx context.Context, d product.Draft) (product.Product, error) {
	ctx, span := s.tracer.Start(ctx, "storefront.CreateProduct")
	defer span.End()

	p := d.Build(s.newID())
	if err := product.Validate(p); err != nil {
		s.notify(ctx, err.Error(), notify.KindError)
		return product.Product{}, s.fail(span, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.products.Upsert(ctx, p); err != nil {
		return product.Product{}, s.fail(span, errors.Wrap(err, "save product"))
	}
	s.catalog = s.catalog.Add(p)
	s.notify(ctx, fmt.Sprintf("Product %s added", p.Name), notify.KindSuccess)
	return p.Clone(), nil
}

// UpdateProduct applies a partial update to an existing product.
func (s *Service) UpdateProduct(ctx context.Context, id string, patch product.Patch) (product.Product, error) {
	ctx, span := s.tracer.Start(ctx, "storefront.UpdateProduct",
		trace.WithAttributes(attribute.String("product.id", id)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.catalog.Get(id)
	if !ok {
		return product.Product{}, s.fail(span, errors.Wrapf(ErrProductNotFound, "product %s", id))
	}
	next, ok := s.catalog.Update(id, patch)
	if !ok {
		return product.Product{}, s.fail(span, errors.Wrapf(ErrProductNotFound, "product %s", id))
	}
	return s.replaceProduct(ctx, span, current, next)
}

// AddProductTier appends a quantity discount tier to a product.
func (s *Service) AddProductTier(ctx context.Context, id string, t product.Tier) (product.Product, error) {
	ctx, span := s.tracer.Start(ctx, "storefront.AddProductTier",
		trace.WithAttributes(attribute.String("product.id", id)),
	)
	defer span.End()

	if err := product.ValidateTier(t); err != nil {
		s.notify(ctx, err.Error(), notify.KindError)
		return product.Product{}, s.fail(span, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.catalog.Get(id)
	if !ok {
		return product.Product{}, s.fail(span, errors.Wrapf(ErrProductNotFound, "product %s", id))
	}
	next, _ := s.catalog.AddTier(id, t)
	return s.replaceProduct(ctx, span, current, next)
}

// replaceProduct validates and persists the product id of current as it
// appears in next, then swaps the catalog. The caller must hold s.mu.
func (s *Service) replaceProduct(ctx context.Context, span trace.Span, current product.Product, next catalog.Snapshot) (product.Product, error) {
	updated, _ := next.Get(current.ID)
	if err := product.Validate(updated); err != nil {
		s.notify(ctx, err.Error(), notify.KindError)
		return product.Product{}, s.fail(span, err)
	}
	if err := s.products.Upsert(ctx, updated); err != nil {
		return product.Product{}, s.fail(span, errors.Wrap(err, "save product"))
	}

	s.catalog = next
	if reconciled, changed := s.cart.Reconcile(updated); changed {
		s.cart = reconciled
		s.notify(ctx,
			fmt.Sprintf("Only %d of %s left, cart quantity adjusted", updated.Stock, updated.Name),
			notify.KindWarning,
		)
	}
	s.notify(ctx, fmt.Sprintf("Product %s updated", updated.Name), notify.KindSuccess)
	return updated, nil
}

// DeleteProduct removes a product from the catalog and the cart.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "storefront.DeleteProduct",
		trace.WithAttributes(attribute.String("product.id", id)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.catalog.Get(id)
	if !ok {
		return s.fail(span, errors.Wrapf(ErrProductNotFound, "product %s", id))
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return s.fail(span, errors.Wrap(err, "delete product"))
	}

	s.catalog = s.catalog.Remove(id)
	s.cart = s.cart.RemoveFromCart(id)
	s.notify(ctx, fmt.Sprintf("Product %s deleted", p.Name), notify.KindSuccess)
	return nil
}

// Coupons lists the coupon book.
func (s *Service) Coupons(ctx context.Context) []coupon.Coupon {
	_, span := s.tracer.Start(ctx, "storefront.Coupons")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.List()
}

// CreateCoupon validates, persists and adds a coupon.
func (s *Service) CreateCoupon(ctx context.Context, c coupon.Coupon) (coupon.Coupon, error) {
	ctx, span := s.tracer.Start(ctx, "storefront.CreateCoupon",
		trace.WithAttributes(attribute.String("coupon.code", c.Code)),
	)
	defer span.End()

	if err := coupon.Validate(c); err != nil {
		s.notify(ctx, err.Error(), notify.KindError)
		return coupon.Coupon{}, s.fail(span, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.book.Add(c)
	if err != nil {
		s.notify(ctx, err.Error(), notify.KindError)
		return coupon.Coupon{}, s.fail(span, err)
	}
	if err := s.coupons.Upsert(ctx, c); err != nil {
		return coupon.Coupon{}, s.fail(span, errors.Wrap(err, "save coupon"))
	}

	s.book = next
	s.notify(ctx, fmt.Sprintf("Coupon %s created", c.Code), notify.KindSuccess)
	return c, nil
}

// DeleteCoupon removes a coupon. A selected coupon is deselected.
func (s *Service) DeleteCoupon(ctx context.Context, code string) error {
	ctx, span := s.tracer.Start(ctx, "storefront.DeleteCoupon",
		trace.WithAttributes(attribute.String("coupon.code", code)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.book.Find(code); !ok {
		return s.fail(span, errors.Wrapf(ErrCouponNotFound, "coupon %s", code))
	}
	if err := s.coupons.Delete(ctx, code); err != nil {
		return s.fail(span, errors.Wrap(err, "delete coupon"))
	}

	s.book = s.book.Remove(code)
	if selected, ok := s.cart.Coupon(); ok && selected.Code == code {
		s.cart = s.cart.ClearCoupon()
	}
	s.notify(ctx, fmt.Sprintf("Coupon %s deleted", code), notify.KindSuccess)
	return nil
}

// view builds the cart view after an operation, returning opErr alongside
// it. The caller must hold s.mu.
func (s *Service) view(span trace.Span, opErr error) (CartView, error) {
	v, err := cartView(s.cart, s.catalog)
	if err != nil {
		return CartView{}, s.fail(span, err)
	}
	if opErr != nil {
		return v, s.fail(span, opErr)
	}
	return v, nil
}

func (s *Service) notify(ctx context.Context, message string, kind notify.Kind) {
	s.notifications.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
	trace.SpanFromContext(ctx).AddEvent("notification", trace.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("message", message),
	))
	s.sink.Notify(ctx, message, kind)
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
