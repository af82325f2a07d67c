package product

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProduct() Product {
	return Product{
		ID:    "p1",
		Name:  "Widget",
		Price: 10000,
		Stock: 20,
		Discounts: []Tier{
			{Quantity: 10, Rate: decimal.RequireFromString("0.1")},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(p *Product)
		wantField string
	}{
		{name: "valid product", mutate: func(*Product) {}},
		{name: "empty name", mutate: func(p *Product) { p.Name = "" }, wantField: "name"},
		{name: "zero price", mutate: func(p *Product) { p.Price = 0 }, wantField: "price"},
		{name: "negative price", mutate: func(p *Product) { p.Price = -5 }, wantField: "price"},
		{name: "negative stock", mutate: func(p *Product) { p.Stock = -1 }, wantField: "stock"},
		{name: "zero stock allowed", mutate: func(p *Product) { p.Stock = 0 }},
		{name: "max stock allowed", mutate: func(p *Product) { p.Stock = MaxStock }},
		{name: "stock over max", mutate: func(p *Product) { p.Stock = MaxStock + 1 }, wantField: "stock"},
		{
			name:      "tier with zero quantity",
			mutate:    func(p *Product) { p.Discounts[0].Quantity = 0 },
			wantField: "discounts[0].quantity",
		},
		{
			name:      "tier with full rate",
			mutate:    func(p *Product) { p.Discounts[0].Rate = decimal.NewFromInt(1) },
			wantField: "discounts[0].rate",
		},
		{
			name:      "tier rate too precise",
			mutate:    func(p *Product) { p.Discounts[0].Rate = decimal.RequireFromString("0.12345") },
			wantField: "discounts[0].rate",
		},
		{
			name:   "tier rate with trailing zeros",
			mutate: func(p *Product) { p.Discounts[0].Rate = decimal.RequireFromString("0.12500") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProduct()
			tt.mutate(&p)

			err := Validate(p)
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}

			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.wantField, fe.Field)
		})
	}
}

func TestPatchApply(t *testing.T) {
	p := validProduct()
	name := "Gadget"
	stock := 3

	got := Patch{Name: &name, Stock: &stock}.Apply(p)

	assert.Equal(t, "Gadget", got.Name)
	assert.Equal(t, 3, got.Stock)
	assert.Equal(t, p.Price, got.Price)
	assert.Equal(t, "Widget", p.Name, "original must stay untouched")

	got.Discounts[0].Quantity = 99
	assert.Equal(t, 10, p.Discounts[0].Quantity, "tiers must not be aliased")
}

func TestIsSoldOut(t *testing.T) {
	assert.True(t, IsSoldOut(0))
	assert.True(t, IsSoldOut(-1))
	assert.False(t, IsSoldOut(1))
}
