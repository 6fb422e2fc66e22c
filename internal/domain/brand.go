package domain

type NavItem struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

// Brand is one storefront identity. Values come from a fixed table and never change at runtime.
type Brand struct {
	ID            string    `json:"id"`
	Host          string    `json:"host"`
	DisplayName   string    `json:"displayName"`
	Description   string    `json:"description"`
	AccentToken   string    `json:"accentToken"`
	BgAccentToken string    `json:"bgAccentToken"`
	PrimaryColor  string    `json:"primaryColor"`
	HoverColor    string    `json:"hoverColor"`
	ContactEmail  string    `json:"contactEmail"`
	DocID         string    `json:"docId"` // CMS document of the brand's domain record
	NavItems      []NavItem `json:"navItems"`
}

type Contact struct {
	Phone    string `json:"phone"`
	WhatsApp string `json:"whatsapp"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	MapsLink string `json:"mapsLink,omitempty"`
}
