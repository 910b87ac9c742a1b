package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// FindPriceInTiers picks the unit price for quantity from tiers.
//
// Tiers are matched by inclusive range after sorting by MinQuantity, scanning
// from the highest tier down. Quantities below the first tier and quantities
// falling into a gap between bounded tiers get basePrice. Quantities above a
// bounded top tier keep the top tier's price.
func FindPriceInTiers(tiers []PricingTier, quantity int64, basePrice decimal.Decimal) decimal.Decimal {
	if len(tiers) == 0 {
		return basePrice
	}

	sorted := SortTiers(tiers)
	for i := len(sorted) - 1; i >= 0; i-- {
		t := sorted[i]
		if quantity >= t.MinQuantity && (t.MaxQuantity == nil || quantity <= *t.MaxQuantity) {
			return t.Price
		}
	}

	if quantity < sorted[0].MinQuantity {
		return basePrice
	}

	top := sorted[len(sorted)-1]
	if top.MaxQuantity != nil && quantity > *top.MaxQuantity {
		return top.Price
	}

	return basePrice
}

// SortTiers returns a copy of tiers ordered by MinQuantity.
func SortTiers(tiers []PricingTier) []PricingTier {
	sorted := make([]PricingTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinQuantity < sorted[j].MinQuantity
	})
	return sorted
}
