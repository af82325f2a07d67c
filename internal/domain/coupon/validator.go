package coupon

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{4,12}$`)

var hundred = decimal.NewFromInt(100)

// RangeError reports a discount value outside the range of its type.
// Clamped holds the nearest accepted value.
type RangeError struct {
	Type    DiscountType
	Value   int64
	Min     int64
	Max     int64
	Clamped int64
}

func (e *RangeError) Error() string {
	if e.Type == DiscountPercentage {
		return fmt.Sprintf("discount rate must be between %d%% and %d%%, got %d%%", e.Min, e.Max, e.Value)
	}
	return fmt.Sprintf("discount amount must be between %d and %d, got %d", e.Min, e.Max, e.Value)
}

// ValidateCode checks that code matches ^[A-Z0-9]{4,12}$.
func ValidateCode(code string) error {
	if !codePattern.MatchString(code) {
		return ErrInvalidCode
	}
	return nil
}

// Bounds returns the inclusive value range for a discount type.
func Bounds(t DiscountType) (lo, hi int64, err error) {
	switch t {
	case DiscountAmount:
		return 0, MaxAmount, nil
	case DiscountPercentage:
		return 0, MaxPercentage, nil
	default:
		return 0, 0, ErrInvalidType
	}
}

// Clamp returns c with its discount value forced into the range of its type.
// Coupons with an unknown type are returned unchanged.
func Clamp(c Coupon) Coupon {
	lo, hi, err := Bounds(c.DiscountType)
	if err != nil {
		return c
	}
	c.DiscountValue = min(max(c.DiscountValue, lo), hi)
	return c
}

// Validate checks a coupon before it is created: code shape, discount type
// and value range. A value out of range yields a *RangeError.
func Validate(c Coupon) error {
	if err := ValidateCode(c.Code); err != nil {
		return err
	}
	lo, hi, err := Bounds(c.DiscountType)
	if err != nil {
		return err
	}
	if c.DiscountValue < lo || c.DiscountValue > hi {
		return &RangeError{
			Type:    c.DiscountType,
			Value:   c.DiscountValue,
			Min:     lo,
			Max:     hi,
			Clamped: Clamp(c).DiscountValue,
		}
	}
	return nil
}

// ApplyDiscount returns the amount c takes off amountBeforeCoupon. Flat
// amounts are capped at amountBeforeCoupon; percentages are rounded to the
// nearest unit.
func ApplyDiscount(amountBeforeCoupon int64, c Coupon) int64 {
	switch c.DiscountType {
	case DiscountAmount:
		return max(min(c.DiscountValue, amountBeforeCoupon), 0)
	case DiscountPercentage:
		amount := decimal.NewFromInt(amountBeforeCoupon).
			Mul(decimal.NewFromInt(c.DiscountValue)).
			Div(hundred).
			Round(0)
		return max(amount.IntPart(), 0)
	default:
		return 0
	}
}
