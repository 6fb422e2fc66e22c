// Package tenant decides which storefront brand owns a request and carries that
// decision through the request context.
package tenant

import "storefront/internal/domain"

// DefaultHost is the brand every unknown host falls back to.
const DefaultHost = "gheraltatours.com"

var standardNav = []domain.NavItem{
	{Label: "TOURS", Href: "/tours"},
	{Label: "OUR STORY", Href: "/about-us"},
	{Label: "OUR THINKING", Href: "/blog"},
	{Label: "CONTACT", Href: "/contact"},
}

// Brands is the fixed storefront table, keyed by normalized hostname.
var Brands = map[string]domain.Brand{
	"gheraltatours.com": {
		ID:            "tours",
		Host:          "gheraltatours.com",
		DisplayName:   "Gheralta Tours",
		Description:   "Expert-led cultural and historical journeys.",
		AccentToken:   "text-[#c2410c]",
		BgAccentToken: "bg-[#c2410c]",
		PrimaryColor:  "#c2410c",
		HoverColor:    "#9a3412",
		ContactEmail:  "info@gheraltatours.com",
		DocID:         "zvmy0su5bbhsy9li5uipyzv9",
		NavItems:      standardNav,
	},
	"gheraltaadventures.com": {
		ID:            "adventures",
		Host:          "gheraltaadventures.com",
		DisplayName:   "Gheralta Adventures",
		Description:   "High-octane rock climbing and trekking.",
		AccentToken:   "text-[#c2410c]",
		BgAccentToken: "bg-[#c2410c]",
		PrimaryColor:  "#c2410c",
		HoverColor:    "#9a3412",
		ContactEmail:  "bookings@gheraltaadventures.com",
		DocID:         "gas2cz781h3wylgc5s4sqm4w",
		NavItems:      standardNav,
	},
	"abuneyemata.com": {
		ID:            "abuneyemata",
		Host:          "abuneyemata.com",
		DisplayName:   "Abune Yemata",
		Description:   "Pilgrimages and spiritual journeys.",
		AccentToken:   "text-slate-900",
		BgAccentToken: "bg-slate-900",
		PrimaryColor:  "#0f172a",
		HoverColor:    "#1e293b",
		ContactEmail:  "hello@abuneyemata.com",
		DocID:         "j39unsf7fqpb8q1o0eh7w9lp",
		NavItems:      standardNav,
	},
}

// Registry is a read-only brand catalog with a guaranteed default entry.
type Registry struct {
	byHost      map[string]domain.Brand
	byID        map[string]domain.Brand
	defaultHost string
}

// NewRegistry copies brands and panics if defaultHost is not one of them;
// a registry without a default could hand out an unbranded page.
func NewRegistry(brands map[string]domain.Brand, defaultHost string) *Registry {
	r := &Registry{
		byHost:      make(map[string]domain.Brand, len(brands)),
		byID:        make(map[string]domain.Brand, len(brands)),
		defaultHost: Normalize(defaultHost),
	}
	for host, b := range brands {
		h := Normalize(host)
		if b.Host == "" {
			b.Host = h
		}
		r.byHost[h] = b
		r.byID[b.ID] = b
	}
	if _, ok := r.byHost[r.defaultHost]; !ok {
		panic("tenant: default host " + defaultHost + " is not a registered brand")
	}
	return r
}

// DefaultRegistry serves the production brand table.
func DefaultRegistry() *Registry { return NewRegistry(Brands, DefaultHost) }

// Lookup matches a hostname (normalized here) and reports whether it was a direct hit.
func (r *Registry) Lookup(host string) (domain.Brand, bool) {
	if b, ok := r.byHost[Normalize(host)]; ok {
		return b, true
	}
	return r.Default(), false
}

func (r *Registry) ByID(id string) (domain.Brand, bool) {
	b, ok := r.byID[id]
	if !ok {
		return r.Default(), false
	}
	return b, true
}

func (r *Registry) Default() domain.Brand { return r.byHost[r.defaultHost] }

// Hosts lists every registered hostname; used for CORS origins.
func (r *Registry) Hosts() []string {
	out := make([]string, 0, len(r.byHost))
	for h := range r.byHost {
		out = append(out, h)
	}
	return out
}
