package app

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

/********** alias registries (single source of truth) **********/

var tourAliases = map[string][]string{
	"documentId": {"documentId", "document_id", "id"},
	"slug":       {"slug"},
	"title":      {"title", "name"},
	"flat":       {"price", "Price_Starting_At", "starting_price"},
	"tier_1":     {"pricing_tiers.tier_1", "tier_1", "pricing.tier_1"},
	"tier_2_3":   {"pricing_tiers.tier_2_3", "tier_2_3", "pricing.tier_2_3"},
	"tier_4_10":  {"pricing_tiers.tier_4_10", "tier_4_10", "pricing.tier_4_10"},
	"tier_11":    {"pricing_tiers.tier_11_plus", "tier_11_plus", "pricing.tier_11_plus"},
}

var contactAliases = map[string][]string{
	"domain":  {"domain.name", "domain", "site"},
	"phone":   {"phone", "phone_number"},
	"email":   {"email"},
	"address": {"office_address", "address"},
	"maps":    {"maps_link", "map_link"},
}

/********** tiny helpers **********/

// unwrap peels Strapi envelopes: {data: ...}, {attributes: ...} and single-element lists.
func unwrap(v any) any {
	for {
		switch t := v.(type) {
		case []any:
			if len(t) == 0 {
				return nil
			}
			v = t[0]
		case map[string]any:
			if inner, ok := getCI(t, "data"); ok && inner != nil && len(t) <= 2 {
				v = inner
				continue
			}
			attrs, _ := getCI(t, "attributes")
			if inner, ok := attrs.(map[string]any); ok {
				merged := make(map[string]any, len(t)+len(inner))
				for k, x := range t {
					merged[k] = x
				}
				for k, x := range inner {
					merged[k] = x
				}
				delete(merged, "attributes")
				return merged
			}
			return t
		default:
			return v
		}
	}
}

// getCI is a case-insensitive key lookup; an exact match wins.
func getCI(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// lookupAny: nested, case-insensitive lookup with dot paths, unwrapping envelopes at each step.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := unwrap(cur).(map[string]any)
		if !ok {
			return nil
		}
		v, ok := getCI(obj, part)
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "". Rich-text blocks are flattened to plain text.
func lookupStr(m map[string]any, path string) string {
	switch v := lookupAny(m, path).(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		return blocksText(v)
	}
	return ""
}

func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

// decimalFlexible: amount from a number or numeric string ("1,200" and "$90" included).
func decimalFlexible(m map[string]any, paths ...string) *decimal.Decimal {
	for _, k := range paths {
		var d decimal.Decimal
		switch v := lookupAny(m, k).(type) {
		case float64:
			d = decimal.NewFromFloat(v)
		case int:
			d = decimal.NewFromInt(int64(v))
		case int64:
			d = decimal.NewFromInt(v)
		case string:
			s := strings.NewReplacer(",", "", "$", "", " ", "").Replace(v)
			if s == "" {
				continue
			}
			var err error
			if d, err = decimal.NewFromString(s); err != nil {
				continue
			}
		default:
			continue
		}
		if d.IsPositive() {
			return &d
		}
	}
	return nil
}

// blocksText flattens Strapi rich-text blocks [{children:[{text}]}] into lines.
func blocksText(blocks []any) string {
	var lines []string
	for _, b := range blocks {
		obj, ok := b.(map[string]any)
		if !ok {
			continue
		}
		children, _ := obj["children"].([]any)
		var sb strings.Builder
		for _, c := range children {
			if cm, ok := c.(map[string]any); ok {
				if t, ok := cm["text"].(string); ok {
					sb.WriteString(t)
				}
			}
		}
		if t := strings.TrimSpace(sb.String()); t != "" {
			lines = append(lines, t)
		}
	}
	return strings.Join(lines, "\n")
}

/********** tour mapper **********/

func mapTour(raw map[string]any) domain.Tour {
	rec, _ := unwrap(raw).(map[string]any)
	if rec == nil {
		return domain.Tour{}
	}
	t := domain.Tour{
		DocumentID: firstNonEmptyAlias(rec, tourAliases, "documentId"),
		Slug:       firstNonEmptyAlias(rec, tourAliases, "slug"),
		Title:      firstNonEmptyAlias(rec, tourAliases, "title"),
		FlatPrice:  decimalFlexible(rec, tourAliases["flat"]...),
	}
	tiers := domain.PricingTiers{
		Solo:       decimalFlexible(rec, tourAliases["tier_1"]...),
		SmallGroup: decimalFlexible(rec, tourAliases["tier_2_3"]...),
		Group:      decimalFlexible(rec, tourAliases["tier_4_10"]...),
		LargeGroup: decimalFlexible(rec, tourAliases["tier_11"]...),
	}
	if tiers.Solo != nil || tiers.SmallGroup != nil || tiers.Group != nil || tiers.LargeGroup != nil {
		t.Tiers = &tiers
	}
	if t.Title == "" {
		t.Title = "Adventure Tour"
	}
	return t
}

func mapTours(in []map[string]any) []domain.Tour {
	out := make([]domain.Tour, 0, len(in))
	for _, r := range in {
		if t := mapTour(r); t.DocumentID != "" {
			out = append(out, t)
		}
	}
	return out
}

/********** contact mapper **********/

var nonDigits = regexp.MustCompile(`\D`)

func contactDomain(rec map[string]any) string {
	return strings.ToLower(firstNonEmptyAlias(rec, contactAliases, "domain"))
}

func mapContact(rec map[string]any) domain.Contact {
	c := domain.Contact{
		Phone:    firstNonEmptyAlias(rec, contactAliases, "phone"),
		Email:    firstNonEmptyAlias(rec, contactAliases, "email"),
		Address:  firstNonEmptyAlias(rec, contactAliases, "address"),
		MapsLink: firstNonEmptyAlias(rec, contactAliases, "maps"),
	}
	if digits := nonDigits.ReplaceAllString(c.Phone, ""); digits != "" {
		c.WhatsApp = "https://wa.me/" + digits
	}
	return c
}

// FallbackContact is served when the CMS has no usable contact record for a brand.
func FallbackContact(b domain.Brand) domain.Contact {
	return domain.Contact{
		Phone:    "+251 928714272",
		WhatsApp: "https://wa.me/251928714272",
		Email:    b.ContactEmail,
		Address:  "Hawzen, Tigray, Ethiopia",
	}
}
