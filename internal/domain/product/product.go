package product

import (
	"context"
	"fmt"
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// MaxStock is the largest stock value the admin panel accepts.
const MaxStock = 9999

// MaxRateScale is the number of decimal places a tier rate may carry.
const MaxRateScale = 4

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID          string
	Name        string
	Description string
	// Price is the unit price in whole currency units.
	Price int64
	// Stock caps how many units may be sold.
	Stock int
	// Discounts are quantity tiers in producer order; they need not be sorted.
	Discounts     []Tier
	IsRecommended bool
}

// Tier is a quantity discount: once Quantity units are purchased, Rate is
// taken off the unit price.
type Tier struct {
	Quantity int
	Rate     decimal.Decimal
}

// Clone returns a copy of p that shares no memory with it.
func (p Product) Clone() Product {
	p.Discounts = slices.Clone(p.Discounts)
	return p
}

// Draft holds the fields of a product that has not been created yet.
type Draft struct {
	Name          string
	Description   string
	Price         int64
	Stock         int
	Discounts     []Tier
	IsRecommended bool
}

// Build turns the draft into a Product with the given identifier.
func (d Draft) Build(id string) Product {
	return Product{
		ID:            id,
		Name:          d.Name,
		Description:   d.Description,
		Price:         d.Price,
		Stock:         d.Stock,
		Discounts:     slices.Clone(d.Discounts),
		IsRecommended: d.IsRecommended,
	}
}

// Patch is a partial product update. Nil fields are left unchanged.
type Patch struct {
	Name          *string
	Description   *string
	Price         *int64
	Stock         *int
	Discounts     *[]Tier
	IsRecommended *bool
}

// Apply returns p with the non-nil patch fields applied.
func (pt Patch) Apply(p Product) Product {
	p = p.Clone()
	if pt.Name != nil {
		p.Name = *pt.Name
	}
	if pt.Description != nil {
		p.Description = *pt.Description
	}
	if pt.Price != nil {
		p.Price = *pt.Price
	}
	if pt.Stock != nil {
		p.Stock = *pt.Stock
	}
	if pt.Discounts != nil {
		p.Discounts = slices.Clone(*pt.Discounts)
	}
	if pt.IsRecommended != nil {
		p.IsRecommended = *pt.IsRecommended
	}
	return p
}

// FieldError reports a product field that failed validation.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the fields the admin form enforces before a product is
// created or updated.
func Validate(p Product) error {
	if p.Name == "" {
		return &FieldError{Field: "name", Reason: "must not be empty"}
	}
	if p.Price <= 0 {
		return &FieldError{Field: "price", Reason: "must be greater than 0"}
	}
	if p.Stock < 0 {
		return &FieldError{Field: "stock", Reason: "must not be negative"}
	}
	if p.Stock > MaxStock {
		return &FieldError{Field: "stock", Reason: fmt.Sprintf("must not exceed %d", MaxStock)}
	}
	for i, t := range p.Discounts {
		if err := ValidateTier(t); err != nil {
			var fe *FieldError
			if errors.As(err, &fe) {
				fe.Field = fmt.Sprintf("discounts[%d].%s", i, fe.Field)
			}
			return err
		}
	}
	return nil
}

// ValidateTier checks a single discount tier.
func ValidateTier(t Tier) error {
	if t.Quantity < 1 {
		return &FieldError{Field: "quantity", Reason: "must be at least 1"}
	}
	if t.Rate.IsNegative() || t.Rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return &FieldError{Field: "rate", Reason: "must be in [0, 1)"}
	}
	if !t.Rate.Equal(t.Rate.Truncate(MaxRateScale)) {
		return &FieldError{Field: "rate", Reason: fmt.Sprintf("must have at most %d decimal places", MaxRateScale)}
	}
	return nil
}

// IsSoldOut reports whether no units are left to add to a cart.
func IsSoldOut(remaining int) bool {
	return remaining <= 0
}

// Repository persists the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	Upsert(ctx context.Context, p Product) error
	Delete(ctx context.Context, id string) error
}
