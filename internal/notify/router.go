// Package notify decides where transactional messages go and what they say.
// Delivery itself belongs to a domain.Mailer.
package notify

import (
	"fmt"
	"strings"

	"github.com/osteele/liquid"

	"storefront/internal/domain"
)

type route struct {
	recipient  string
	sender     string
	senderName string
}

var routes = map[string]route{
	"tours":       {"info@gheraltatours.com", "notifications@gheraltatours.com", "Gheralta Tours"},
	"adventures":  {"bookings@gheraltaadventures.com", "notifications@gheraltaadventures.com", "Gheralta Adventures"},
	"abuneyemata": {"hello@abuneyemata.com", "notifications@abuneyemata.com", "Abune Yemata"},
}

const fallbackTenant = "tours"

type Message struct {
	Subject string
	Body    string
}

type Router struct {
	bodies map[domain.MessageType]*liquid.Template
}

func NewRouter() (*Router, error) {
	engine := liquid.NewEngine()
	r := &Router{bodies: map[domain.MessageType]*liquid.Template{}}
	for typ, src := range bodyTemplates {
		tpl, err := engine.ParseString(src)
		if err != nil {
			return nil, fmt.Errorf("notify: parse %s template: %w", typ, err)
		}
		r.bodies[typ] = tpl
	}
	return r, nil
}

// Route is a pure table lookup; both message types of a tenant share one inbox today.
// Unknown tenants go to the default inbox.
func (r *Router) Route(tenantID string, _ domain.MessageType) domain.NotificationRoute {
	rt, ok := routes[tenantID]
	if !ok {
		tenantID = fallbackTenant
		rt = routes[fallbackTenant]
	}
	return domain.NotificationRoute{
		TenantID:   tenantID,
		Recipient:  rt.recipient,
		Sender:     rt.sender,
		SenderName: rt.senderName,
	}
}

// Format renders the subject line and plain-text body for a payload.
func (r *Router) Format(typ domain.MessageType, p domain.NotificationPayload) (Message, error) {
	tpl, ok := r.bodies[typ]
	if !ok {
		return Message{}, fmt.Errorf("notify: unknown message type %q", typ)
	}
	data := p.Data
	if data == nil {
		data = map[string]any{}
	}
	body, err := tpl.RenderString(liquid.Bindings{"siteName": p.SiteName, "data": data})
	if err != nil {
		return Message{}, fmt.Errorf("notify: render %s: %w", typ, err)
	}

	label := ""
	if t, _ := data["tourTitle"].(string); strings.TrimSpace(t) != "" {
		label = ": " + strings.TrimSpace(t)
	}
	prefix := "NEW INQUIRY"
	if typ == domain.MessageBooking {
		prefix = "PAID BOOKING"
	}
	return Message{
		Subject: fmt.Sprintf("%s%s (%s)", prefix, label, p.SiteName),
		Body:    strings.TrimSpace(body) + "\n",
	}, nil
}
