// Package pricing turns a tour's tier table into per-person and line prices.
package pricing

import (
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type Tier string

const (
	TierSolo       Tier = "solo"
	TierSmallGroup Tier = "small group"
	TierGroup      Tier = "group"
	TierLargeGroup Tier = "large group"
	TierFlat       Tier = "flat"
	TierOnRequest  Tier = "on request"
)

// Quote is the price of one cart line. OnRequest quotes carry zero amounts and must not be summed.
type Quote struct {
	Tier      Tier            `json:"tier"`
	PerPerson decimal.Decimal `json:"perPerson"`
	Total     decimal.Decimal `json:"total"`
	Travelers int             `json:"travelers"`
	OnRequest bool            `json:"priceOnRequest"`
}

// BracketFor maps a traveler count to its tier. Counts below 1 are treated as 1.
func BracketFor(travelers int) Tier {
	switch {
	case travelers <= 1:
		return TierSolo
	case travelers <= 3:
		return TierSmallGroup
	case travelers <= 10:
		return TierGroup
	default:
		return TierLargeGroup
	}
}

func tierPrice(t *domain.PricingTiers, tier Tier) *decimal.Decimal {
	switch tier {
	case TierSolo:
		return t.Solo
	case TierSmallGroup:
		return t.SmallGroup
	case TierGroup:
		return t.Group
	case TierLargeGroup:
		return t.LargeGroup
	}
	return nil
}

func positive(d *decimal.Decimal) bool { return d != nil && d.IsPositive() }

// Price applies the bracket of travelers to table, falling back to flat when the
// table is absent or has no price for that bracket.
func Price(table *domain.PricingTiers, flat *decimal.Decimal, travelers int) Quote {
	if travelers < 1 {
		travelers = 1
	}
	q := Quote{Travelers: travelers}
	n := decimal.NewFromInt(int64(travelers))

	if table != nil {
		tier := BracketFor(travelers)
		if p := tierPrice(table, tier); positive(p) {
			q.Tier, q.PerPerson, q.Total = tier, *p, p.Mul(n)
			return q
		}
	}
	if positive(flat) {
		q.Tier, q.PerPerson, q.Total = TierFlat, *flat, flat.Mul(n)
		return q
	}
	q.Tier, q.OnRequest = TierOnRequest, true
	q.PerPerson, q.Total = decimal.Zero, decimal.Zero
	return q
}

// PriceTour is Price for a normalised CMS tour.
func PriceTour(t domain.Tour, travelers int) Quote {
	return Price(t.Tiers, t.FlatPrice, travelers)
}

// Line pairs an item reference with its quote for summing.
type Line struct {
	ItemRef string
	Quote   Quote
}

type Summary struct {
	Total       decimal.Decimal `json:"total"`
	ManualQuote []string        `json:"manualQuote"`
}

// Summarize adds numeric line totals; on-request lines are listed for manual quoting instead.
func Summarize(lines []Line) Summary {
	s := Summary{Total: decimal.Zero, ManualQuote: []string{}}
	for _, l := range lines {
		if l.Quote.OnRequest {
			s.ManualQuote = append(s.ManualQuote, l.ItemRef)
			continue
		}
		s.Total = s.Total.Add(l.Quote.Total)
	}
	return s
}

// StartingPrice is the lowest positive per-person price a tour advertises, if any.
func StartingPrice(table *domain.PricingTiers, flat *decimal.Decimal) *decimal.Decimal {
	var cands []*decimal.Decimal
	if table != nil {
		cands = append(cands, table.Solo, table.SmallGroup, table.Group, table.LargeGroup)
	}
	cands = append(cands, flat)

	var lowest *decimal.Decimal
	for _, c := range cands {
		if positive(c) && (lowest == nil || c.LessThan(*lowest)) {
			v := *c
			lowest = &v
		}
	}
	return lowest
}
