package cart

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-storefront/internal/domain/coupon"
	"github.com/xenking/kart-storefront/internal/domain/discount"
	"github.com/xenking/kart-storefront/internal/domain/product"
)

var one = decimal.NewFromInt(1)

// Totals is the order preview derived from a cart. All amounts are
// non-negative.
type Totals struct {
	SubtotalBeforeDiscounts int64
	ItemDiscountTotal       int64
	CouponDiscountTotal     int64
	GrandTotal              int64
}

// Line is a priced cart item.
type Line struct {
	Product  product.Product
	Quantity int
	// Rate is the tiered discount rate applied to this line.
	Rate decimal.Decimal
	// Total is the line total after the tiered discount, before any coupon.
	Total int64
}

// ItemTotal returns price * quantity * (1 - best tier rate), rounded to the
// nearest unit. Coupons are not included.
func ItemTotal(p product.Product, quantity int) int64 {
	rate := discount.BestRate(p.Discounts, quantity)
	return decimal.NewFromInt(p.Price).
		Mul(decimal.NewFromInt(int64(quantity))).
		Mul(one.Sub(rate)).
		Round(0).
		IntPart()
}

// ItemTotal returns the line total of item priced against cat.
func (c Cart) ItemTotal(item Item, cat Catalog) (int64, error) {
	p, ok := cat.Get(item.ProductID)
	if !ok {
		return 0, &ProductNotFoundError{ProductID: item.ProductID}
	}
	return ItemTotal(p, item.Quantity), nil
}

// Lines prices every cart item against cat, in cart order.
func (c Cart) Lines(cat Catalog) ([]Line, error) {
	lines := make([]Line, 0, len(c.items))
	for _, it := range c.items {
		p, ok := cat.Get(it.ProductID)
		if !ok {
			return nil, &ProductNotFoundError{ProductID: it.ProductID}
		}
		lines = append(lines, Line{
			Product:  p,
			Quantity: it.Quantity,
			Rate:     discount.BestRate(p.Discounts, it.Quantity),
			Total:    ItemTotal(p, it.Quantity),
		})
	}
	return lines, nil
}

// Totals computes the order totals against cat. Tiered discounts are
// applied per line first, then the selected coupon on the remainder.
func (c Cart) Totals(cat Catalog) (Totals, error) {
	lines, err := c.Lines(cat)
	if err != nil {
		return Totals{}, err
	}
	return c.totals(lines), nil
}

func (c Cart) totals(lines []Line) Totals {
	var subtotal, afterItems int64
	for _, l := range lines {
		subtotal += l.Product.Price * int64(l.Quantity)
		afterItems += l.Total
	}

	var couponDiscount int64
	if c.coupon != nil {
		couponDiscount = coupon.ApplyDiscount(afterItems, *c.coupon)
	}

	return Totals{
		SubtotalBeforeDiscounts: subtotal,
		ItemDiscountTotal:       subtotal - afterItems,
		CouponDiscountTotal:     couponDiscount,
		GrandTotal:              max(afterItems-couponDiscount, 0),
	}
}

// Order is the completion event of a cart. It is not persisted.
type Order struct {
	Number      string
	Lines       []Line
	Totals      Totals
	CouponCode  string
	CompletedAt time.Time
}

// OrderNumber formats the order number for a completion time as
// ORD-<unix milliseconds>.
func OrderNumber(t time.Time) string {
	return "ORD-" + strconv.FormatInt(t.UnixMilli(), 10)
}

// Complete turns the cart into an Order completed at now and returns the
// cleared cart. An empty cart yields ErrEmptyCart.
func (c Cart) Complete(cat Catalog, now time.Time) (Order, Cart, error) {
	if c.IsEmpty() {
		return Order{}, c, ErrEmptyCart
	}
	lines, err := c.Lines(cat)
	if err != nil {
		return Order{}, c, err
	}

	o := Order{
		Number:      OrderNumber(now),
		Lines:       lines,
		Totals:      c.totals(lines),
		CompletedAt: now,
	}
	if c.coupon != nil {
		o.CouponCode = c.coupon.Code
	}
	return o, c.Clear(), nil
}
