// Package cart implements the shopping cart: stock-bounded line items, at
// most one selected coupon, and order totals derived from a catalog
// snapshot.
//
// Cart is an immutable value. Every operation returns a new Cart; a rejected
// operation returns the receiver unchanged together with an error describing
// why. Rejections are ordinary values, never panics.
package cart

import (
	"fmt"
	"slices"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-storefront/internal/domain/coupon"
	"github.com/xenking/kart-storefront/internal/domain/product"
)

var (
	// ErrInsufficientStock is wrapped by every *StockError.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrEmptyCart is returned when completing an order with no items.
	ErrEmptyCart = errors.New("cart is empty")
)

// StockError is returned when an operation would hold more units of a
// product than it has in stock.
type StockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	if e.Available <= 0 {
		return fmt.Sprintf("%s is out of stock", e.Name)
	}
	return fmt.Sprintf("only %d of %s in stock", e.Available, e.Name)
}

// Unwrap makes errors.Is(err, ErrInsufficientStock) hold.
func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}

// ProductNotFoundError indicates a cart item references a product that is
// missing from the catalog. It is a caller bug, not a user error.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found in catalog", e.ProductID)
}

// Item is a cart line. It references a product by id.
type Item struct {
	ProductID string
	Quantity  int
}

// Catalog resolves product ids to products.
type Catalog interface {
	Get(id string) (product.Product, bool)
}

// Cart holds line items in insertion order and the selected coupon.
type Cart struct {
	items  []Item
	coupon *coupon.Coupon
}

// New returns an empty cart.
func New() Cart {
	return Cart{}
}

// Items returns a copy of the cart lines.
func (c Cart) Items() []Item {
	return slices.Clone(c.items)
}

// Len returns the number of distinct products in the cart.
func (c Cart) Len() int {
	return len(c.items)
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// ItemCount returns the total number of units across all lines.
func (c Cart) ItemCount() int {
	total := 0
	for _, it := range c.items {
		total += it.Quantity
	}
	return total
}

// Quantity returns how many units of the product are in the cart.
func (c Cart) Quantity(productID string) int {
	if i := c.index(productID); i >= 0 {
		return c.items[i].Quantity
	}
	return 0
}

// Coupon returns the selected coupon, if any.
func (c Cart) Coupon() (coupon.Coupon, bool) {
	if c.coupon == nil {
		return coupon.Coupon{}, false
	}
	return *c.coupon, true
}

// AddToCart adds one unit of p. A product already in the cart has its
// quantity incremented; the result may not exceed p.Stock.
func (c Cart) AddToCart(p product.Product) (Cart, error) {
	i := c.index(p.ID)
	if i < 0 {
		if p.Stock < 1 {
			return c, stockError(p, 1)
		}
		next := c.withItems(len(c.items) + 1)
		next.items = append(next.items, Item{ProductID: p.ID, Quantity: 1})
		return next, nil
	}

	qty := c.items[i].Quantity + 1
	if qty > p.Stock {
		return c, stockError(p, qty)
	}
	next := c.withItems(len(c.items))
	next.items[i].Quantity = qty
	return next, nil
}

// UpdateQuantity sets the quantity of p to exactly quantity. A quantity of
// zero or less removes the line. Products not in the cart are left alone.
func (c Cart) UpdateQuantity(p product.Product, quantity int) (Cart, error) {
	if quantity <= 0 {
		return c.RemoveFromCart(p.ID), nil
	}
	i := c.index(p.ID)
	if i < 0 {
		return c, nil
	}
	if quantity > p.Stock {
		return c, stockError(p, quantity)
	}
	next := c.withItems(len(c.items))
	next.items[i].Quantity = quantity
	return next, nil
}

// RemoveFromCart deletes the line for the product. Removing a product that
// is not in the cart is a no-op.
func (c Cart) RemoveFromCart(productID string) Cart {
	i := c.index(productID)
	if i < 0 {
		return c
	}
	next := c.withItems(len(c.items))
	next.items = slices.Delete(next.items, i, i+1)
	return next
}

// Reconcile clamps the line for p to its current stock after a catalog
// change, removing it when no stock is left. changed reports whether the
// cart was modified.
func (c Cart) Reconcile(p product.Product) (next Cart, changed bool) {
	qty := c.Quantity(p.ID)
	if qty == 0 || qty <= p.Stock {
		return c, false
	}
	next, _ = c.UpdateQuantity(p, p.Stock)
	return next, true
}

// Clear empties the cart and drops the selected coupon.
func (c Cart) Clear() Cart {
	return Cart{}
}

// ApplyCoupon selects cp, replacing any previous selection.
func (c Cart) ApplyCoupon(cp coupon.Coupon) Cart {
	c.coupon = &cp
	return c
}

// ClearCoupon drops the selected coupon.
func (c Cart) ClearCoupon() Cart {
	c.coupon = nil
	return c
}

func (c Cart) index(productID string) int {
	return slices.IndexFunc(c.items, func(it Item) bool {
		return it.ProductID == productID
	})
}

// withItems returns a cart with its own copy of the items.
func (c Cart) withItems(capacity int) Cart {
	items := make([]Item, len(c.items), max(capacity, len(c.items)))
	copy(items, c.items)
	return Cart{items: items, coupon: c.coupon}
}

func stockError(p product.Product, requested int) *StockError {
	return &StockError{
		ProductID: p.ID,
		Name:      p.Name,
		Requested: requested,
		Available: p.Stock,
	}
}
