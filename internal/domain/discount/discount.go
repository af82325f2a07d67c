// Package discount computes tiered quantity discount rates.
package discount

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-storefront/internal/domain/product"
)

// BestRate returns the highest rate among tiers whose quantity threshold is
// met by quantity. Tier order does not matter. It returns zero when no tier
// qualifies.
func BestRate(tiers []product.Tier, quantity int) decimal.Decimal {
	best := decimal.Zero
	for _, t := range tiers {
		if quantity >= t.Quantity && t.Rate.GreaterThan(best) {
			best = t.Rate
		}
	}
	return best
}

// MaxRate returns the largest rate across all tiers of p, for display.
// ok is false when p has no tiers.
func MaxRate(p product.Product) (rate decimal.Decimal, ok bool) {
	if len(p.Discounts) == 0 {
		return decimal.Zero, false
	}
	rate = p.Discounts[0].Rate
	for _, t := range p.Discounts[1:] {
		rate = decimal.Max(rate, t.Rate)
	}
	return rate, true
}

// MinQuantity returns the smallest quantity threshold across all tiers of p.
// ok is false when p has no tiers.
func MinQuantity(p product.Product) (quantity int, ok bool) {
	if len(p.Discounts) == 0 {
		return 0, false
	}
	quantity = p.Discounts[0].Quantity
	for _, t := range p.Discounts[1:] {
		quantity = min(quantity, t.Quantity)
	}
	return quantity, true
}
