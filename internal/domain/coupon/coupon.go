package coupon

import (
	"context"
	"slices"

	"github.com/go-faster/errors"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountAmount subtracts a flat amount, capped at the order amount.
	DiscountAmount DiscountType = "amount"
	// DiscountPercentage subtracts a percentage (0-100) of the order amount.
	DiscountPercentage DiscountType = "percentage"
)

// Value bounds accepted when a coupon is created.
const (
	MaxAmount     int64 = 100_000
	MaxPercentage int64 = 100
)

var (
	// ErrInvalidCode is returned when a coupon code does not match the
	// required shape.
	ErrInvalidCode = errors.New("coupon code must be 4-12 uppercase letters or digits")
	// ErrInvalidType is returned for an unknown discount type.
	ErrInvalidType = errors.New("invalid discount type")
	// ErrDuplicateCode is returned when a coupon with the same code exists.
	ErrDuplicateCode = errors.New("coupon code already exists")
	// ErrNotFound is returned when a coupon code is unknown.
	ErrNotFound = errors.New("coupon not found")
)

// Coupon is an order-level discount, applied after all tiered discounts.
type Coupon struct {
	Code          string
	Name          string
	DiscountType  DiscountType
	DiscountValue int64
}

// Book is an immutable, ordered set of coupons keyed by code.
type Book struct {
	coupons []Coupon
}

// NewBook creates a book holding coupons in the given order.
func NewBook(coupons ...Coupon) Book {
	return Book{coupons: slices.Clone(coupons)}
}

// List returns all coupons in insertion order.
func (b Book) List() []Coupon {
	return slices.Clone(b.coupons)
}

// Find returns the coupon with the given code.
func (b Book) Find(code string) (Coupon, bool) {
	i := b.index(code)
	if i < 0 {
		return Coupon{}, false
	}
	return b.coupons[i], true
}

// Add returns a book with c appended. It returns ErrDuplicateCode and the
// unchanged book when the code is taken.
func (b Book) Add(c Coupon) (Book, error) {
	if b.index(c.Code) >= 0 {
		return b, ErrDuplicateCode
	}
	coupons := make([]Coupon, len(b.coupons), len(b.coupons)+1)
	copy(coupons, b.coupons)
	return Book{coupons: append(coupons, c)}, nil
}

// Remove returns a book without the coupon with the given code.
func (b Book) Remove(code string) Book {
	i := b.index(code)
	if i < 0 {
		return b
	}
	coupons := slices.Clone(b.coupons)
	return Book{coupons: slices.Delete(coupons, i, i+1)}
}

func (b Book) index(code string) int {
	return slices.IndexFunc(b.coupons, func(c Coupon) bool {
		return c.Code == code
	})
}

// Repository persists coupons.
type Repository interface {
	List(ctx context.Context) ([]Coupon, error)
	Upsert(ctx context.Context, c Coupon) error
	Delete(ctx context.Context, code string) error
}
