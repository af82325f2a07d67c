// Package catalog holds immutable snapshots of the product catalog.
//
// Every mutation returns a new Snapshot. Holders of an older snapshot never
// observe the change, so cart computations stay reproducible against the
// snapshot they were given.
package catalog

import (
	"slices"
	"strings"

	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/domain/product"
)

// Snapshot is an ordered, read-only set of products.
type Snapshot struct {
	products []product.Product
}

// New creates a snapshot holding copies of products in the given order.
func New(products ...product.Product) Snapshot {
	s := Snapshot{products: make([]product.Product, len(products))}
	for i, p := range products {
		s.products[i] = p.Clone()
	}
	return s
}

// List returns copies of all products in insertion order.
func (s Snapshot) List() []product.Product {
	out := make([]product.Product, len(s.products))
	for i, p := range s.products {
		out[i] = p.Clone()
	}
	return out
}

// Len returns the number of products.
func (s Snapshot) Len() int {
	return len(s.products)
}

// Get returns a copy of the product with the given id.
func (s Snapshot) Get(id string) (product.Product, bool) {
	i := s.index(id)
	if i < 0 {
		return product.Product{}, false
	}
	return s.products[i].Clone(), true
}

// Add returns a snapshot with p appended.
func (s Snapshot) Add(p product.Product) Snapshot {
	next := s.withCap(len(s.products) + 1)
	next.products = append(next.products, p.Clone())
	return next
}

// Update returns a snapshot with the patch applied to the product with the
// given id. The second result is false when no such product exists.
func (s Snapshot) Update(id string, patch product.Patch) (Snapshot, bool) {
	i := s.index(id)
	if i < 0 {
		return s, false
	}
	next := s.withCap(len(s.products))
	next.products[i] = patch.Apply(s.products[i])
	return next, true
}

// AddTier returns a snapshot with t appended to the tiers of the product
// with the given id.
func (s Snapshot) AddTier(id string, t product.Tier) (Snapshot, bool) {
	i := s.index(id)
	if i < 0 {
		return s, false
	}
	tiers := append(slices.Clone(s.products[i].Discounts), t)
	return s.Update(id, product.Patch{Discounts: &tiers})
}

// Remove returns a snapshot without the product with the given id.
// Removing an unknown id returns s unchanged.
func (s Snapshot) Remove(id string) Snapshot {
	i := s.index(id)
	if i < 0 {
		return s
	}
	next := s.withCap(len(s.products))
	next.products = slices.Delete(next.products, i, i+1)
	return next
}

func (s Snapshot) index(id string) int {
	return slices.IndexFunc(s.products, func(p product.Product) bool {
		return p.ID == id
	})
}

// withCap returns a snapshot with its own backing array of the given
// capacity. Product values are shared since they are never mutated in place.
func (s Snapshot) withCap(capacity int) Snapshot {
	products := make([]product.Product, len(s.products), max(capacity, len(s.products)))
	copy(products, s.products)
	return Snapshot{products: products}
}

// RemainingStock returns the stock of p minus the quantity held by cart
// items referencing it.
func RemainingStock(p product.Product, items []cart.Item) int {
	held := 0
	for _, it := range items {
		if it.ProductID == p.ID {
			held += it.Quantity
		}
	}
	return p.Stock - held
}

// FilterBySearchTerm returns products whose name or description contains
// term, ignoring case. An empty term returns products as is.
func FilterBySearchTerm(products []product.Product, term string) []product.Product {
	if term == "" {
		return products
	}
	term = strings.ToLower(term)

	out := make([]product.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), term) ||
			strings.Contains(strings.ToLower(p.Description), term) {
			out = append(out, p)
		}
	}
	return out
}
