package storefront

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/domain/catalog"
	"github.com/xenking/kart-storefront/internal/domain/coupon"
	"github.com/xenking/kart-storefront/internal/domain/discount"
	"github.com/xenking/kart-storefront/internal/domain/product"
)

// ProductView is a catalog entry as the shop displays it.
type ProductView struct {
	Product   product.Product
	Remaining int
	SoldOut   bool
	// HasDiscount is false when the product has no tiers; MaxRate and
	// MinQuantity are meaningless then.
	HasDiscount bool
	MaxRate     decimal.Decimal
	MinQuantity int
}

// CartLine is a priced cart line with the stock still available for it.
type CartLine struct {
	cart.Line
	Remaining int
}

// CartView is the cart together with its derived totals.
type CartView struct {
	Lines     []CartLine
	Totals    cart.Totals
	Coupon    *coupon.Coupon
	ItemCount int
}

func productView(p product.Product, items []cart.Item) ProductView {
	remaining := catalog.RemainingStock(p, items)
	v := ProductView{
		Product:   p,
		Remaining: remaining,
		SoldOut:   product.IsSoldOut(remaining),
	}
	if rate, ok := discount.MaxRate(p); ok {
		qty, _ := discount.MinQuantity(p)
		v.HasDiscount = true
		v.MaxRate = rate
		v.MinQuantity = qty
	}
	return v
}

func cartView(c cart.Cart, snap catalog.Snapshot) (CartView, error) {
	lines, err := c.Lines(snap)
	if err != nil {
		return CartView{}, err
	}
	totals, err := c.Totals(snap)
	if err != nil {
		return CartView{}, err
	}

	items := c.Items()
	v := CartView{
		Lines:     make([]CartLine, len(lines)),
		Totals:    totals,
		ItemCount: c.ItemCount(),
	}
	for i, l := range lines {
		v.Lines[i] = CartLine{Line: l, Remaining: catalog.RemainingStock(l.Product, items)}
	}
	if cp, ok := c.Coupon(); ok {
		v.Coupon = &cp
	}
	return v, nil
}
