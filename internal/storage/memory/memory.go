// Package memory provides in-process repositories used when no database is
// configured, and in tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-storefront/internal/codec"
	"github.com/xenking/kart-storefront/internal/domain/coupon"
	"github.com/xenking/kart-storefront/internal/domain/product"
)

var (
	_ product.Repository = (*ProductRepository)(nil)
	_ coupon.Repository  = (*CouponRepository)(nil)
)

// ProductRepository keeps products in insertion order.
type ProductRepository struct {
	mu       sync.RWMutex
	products []product.Product
}

// NewProductRepository returns a repository holding a copy of products.
func NewProductRepository(products ...product.Product) *ProductRepository {
	r := &ProductRepository{}
	for _, p := range products {
		r.products = append(r.products, p.Clone())
	}
	return r
}

// List returns all products.
func (r *ProductRepository) List(context.Context) ([]product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]product.Product, len(r.products))
	for i, p := range r.products {
		out[i] = p.Clone()
	}
	return out, nil
}

// Upsert inserts p or replaces the product with the same id in place.
func (r *ProductRepository) Upsert(_ context.Context, p product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.IndexFunc(r.products, func(x product.Product) bool { return x.ID == p.ID })
	if i < 0 {
		r.products = append(r.products, p.Clone())
		return nil
	}
	r.products[i] = p.Clone()
	return nil
}

// Delete removes a product. Unknown ids yield product.ErrNotFound.
func (r *ProductRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.products)
	r.products = slices.DeleteFunc(r.products, func(p product.Product) bool { return p.ID == id })
	if len(r.products) == before {
		return product.ErrNotFound
	}
	return nil
}

// CouponRepository keeps coupons in insertion order.
type CouponRepository struct {
	mu      sync.RWMutex
	coupons []coupon.Coupon
}

// NewCouponRepository returns a repository holding coupons.
func NewCouponRepository(coupons ...coupon.Coupon) *CouponRepository {
	return &CouponRepository{coupons: slices.Clone(coupons)}
}

// List returns all coupons.
func (r *CouponRepository) List(context.Context) ([]coupon.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.coupons), nil
}

// Upsert inserts c or replaces the coupon with the same code.
func (r *CouponRepository) Upsert(_ context.Context, c coupon.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.IndexFunc(r.coupons, func(x coupon.Coupon) bool { return x.Code == c.Code })
	if i < 0 {
		r.coupons = append(r.coupons, c)
		return nil
	}
	r.coupons[i] = c
	return nil
}

// Delete removes a coupon. Unknown codes yield coupon.ErrNotFound.
func (r *CouponRepository) Delete(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.coupons)
	r.coupons = slices.DeleteFunc(r.coupons, func(c coupon.Coupon) bool { return c.Code == code })
	if len(r.coupons) == before {
		return coupon.ErrNotFound
	}
	return nil
}

// Seed decodes a JSON catalog and returns repositories preloaded with it.
func Seed(data []byte) (*ProductRepository, *CouponRepository, error) {
	c, err := codec.DecodeCatalog(data)
	if err != nil {
		return nil, nil, errors.Wrap(err, "seed")
	}
	return NewProductRepository(c.Products...), NewCouponRepository(c.Coupons...), nil
}
