package domain

import "github.com/shopspring/decimal"

// Tour is the typed view of a CMS tour record.
type Tour struct {
	DocumentID string           `json:"documentId"`
	Slug       string           `json:"slug,omitempty"`
	Title      string           `json:"title"`
	Tiers      *PricingTiers    `json:"tiers,omitempty"`
	FlatPrice  *decimal.Decimal `json:"flatPrice,omitempty"`
}

// PricingTiers holds per-person prices by traveler-count bracket. A nil field means the CMS left it blank.
type PricingTiers struct {
	Solo       *decimal.Decimal `json:"tier_1,omitempty"`
	SmallGroup *decimal.Decimal `json:"tier_2_3,omitempty"`
	Group      *decimal.Decimal `json:"tier_4_10,omitempty"`
	LargeGroup *decimal.Decimal `json:"tier_11_plus,omitempty"`
}
