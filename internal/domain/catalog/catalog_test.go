package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/domain/product"
)

func seedProducts() []product.Product {
	return []product.Product{
		{
			ID: "p1", Name: "Product 1", Description: "Best seller", Price: 10000, Stock: 20,
			Discounts: []product.Tier{{Quantity: 10, Rate: decimal.RequireFromString("0.1")}},
		},
		{ID: "p2", Name: "Product 2", Description: "Refreshing drink", Price: 20000, Stock: 20},
		{ID: "p3", Name: "Product 3", Price: 30000, Stock: 20},
	}
}

func TestSnapshot_AddDoesNotMutateOld(t *testing.T) {
	s := New(seedProducts()...)

	next := s.Add(product.Product{ID: "p4", Name: "Product 4", Price: 100, Stock: 1})

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 4, next.Len())
	_, ok := s.Get("p4")
	assert.False(t, ok)
}

func TestSnapshot_Update(t *testing.T) {
	s := New(seedProducts()...)
	price := int64(15000)

	next, ok := s.Update("p1", product.Patch{Price: &price})
	require.True(t, ok)

	got, _ := next.Get("p1")
	assert.Equal(t, int64(15000), got.Price)
	old, _ := s.Get("p1")
	assert.Equal(t, int64(10000), old.Price)

	_, ok = s.Update("missing", product.Patch{Price: &price})
	assert.False(t, ok)
}

func TestSnapshot_AddTier(t *testing.T) {
	s := New(seedProducts()...)

	next, ok := s.AddTier("p1", product.Tier{Quantity: 20, Rate: decimal.RequireFromString("0.2")})
	require.True(t, ok)

	got, _ := next.Get("p1")
	assert.Len(t, got.Discounts, 2)
	old, _ := s.Get("p1")
	assert.Len(t, old.Discounts, 1)
}

func TestSnapshot_Remove(t *testing.T) {
	s := New(seedProducts()...)

	next := s.Remove("p2")
	assert.Equal(t, 2, next.Len())
	assert.Equal(t, 3, s.Len())

	ids := make([]string, 0, next.Len())
	for _, p := range next.List() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"p1", "p3"}, ids)

	assert.Equal(t, s.List(), s.Remove("missing").List())
}

func TestSnapshot_GetReturnsCopy(t *testing.T) {
	s := New(seedProducts()...)

	p, ok := s.Get("p1")
	require.True(t, ok)
	p.Discounts[0].Quantity = 1

	again, _ := s.Get("p1")
	assert.Equal(t, 10, again.Discounts[0].Quantity)
}

func TestRemainingStock(t *testing.T) {
	p := seedProducts()[0]
	items := []cart.Item{
		{ProductID: "p1", Quantity: 7},
		{ProductID: "p2", Quantity: 3},
	}

	assert.Equal(t, 13, RemainingStock(p, items))
	assert.Equal(t, 20, RemainingStock(p, nil))
}

func TestFilterBySearchTerm(t *testing.T) {
	products := seedProducts()

	tests := []struct {
		name    string
		term    string
		wantIDs []string
	}{
		{name: "empty term returns everything in order", term: "", wantIDs: []string{"p1", "p2", "p3"}},
		{name: "matches name case-insensitively", term: "PRODUCT 3", wantIDs: []string{"p3"}},
		{name: "matches description", term: "drink", wantIDs: []string{"p2"}},
		{name: "matches several", term: "product", wantIDs: []string{"p1", "p2", "p3"}},
		{name: "no match", term: "laptop", wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterBySearchTerm(products, tt.term)

			ids := make([]string, 0, len(got))
			for _, p := range got {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestFilterBySearchTerm_DoesNotMutateInput(t *testing.T) {
	products := seedProducts()
	before := New(products...).List()

	_ = FilterBySearchTerm(products, "product 2")

	assert.Equal(t, before, products)
}
