// Package pricing resolves the unit price and display label for a catalog
// item under a buyer tier. Resolution happens once, when a line is added to
// a cart; the result is snapshotted and never re-resolved in that session.
package pricing

import (
	"fmt"

	"github.com/atayatoko/pos-core/internal/model"
)

// Tier is the closed retail/wholesale enumeration selected per session.
type Tier string

const (
	TierRetail    Tier = "retail"
	TierWholesale Tier = "wholesale"
)

// RetailUnitLabel is the display label for single-unit retail sales.
const RetailUnitLabel = "unit"

func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierRetail, TierWholesale:
		return Tier(s), nil
	default:
		return "", fmt.Errorf("unknown buyer tier %q", s)
	}
}

// Resolve returns the unit price and unit label for the item under the
// given tier. Pure function, no side effects.
func Resolve(item *model.CatalogItem, tier Tier) (int64, string) {
	if tier == TierWholesale {
		return item.WholesalePrice, item.WholesaleUnitLabel
	}
	return item.RetailPrice, RetailUnitLabel
}
