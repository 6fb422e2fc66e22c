package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"storefront/internal/adapters/observability"
	"storefront/internal/domain"
)

type Notifier struct {
	router *Router
	mailer domain.Mailer
}

func NewNotifier(r *Router, m domain.Mailer) *Notifier { return &Notifier{router: r, mailer: m} }

func (n *Notifier) Router() *Router { return n.router }

// Notify routes, formats and hands one message to the mailer. The route is returned
// even on failure so callers can report where the message was meant to go.
func (n *Notifier) Notify(ctx context.Context, tenantID string, p domain.NotificationPayload, replyTo string) (domain.NotificationRoute, error) {
	rt := n.router.Route(tenantID, p.Type)
	msg, err := n.router.Format(p.Type, p)
	if err != nil {
		observability.ObserveNotification(string(p.Type), "format_error")
		return rt, err
	}
	id, err := n.mailer.Send(ctx, domain.Email{
		FromName:  rt.SenderName,
		FromEmail: rt.Sender,
		To:        rt.Recipient,
		ReplyTo:   replyTo,
		Subject:   msg.Subject,
		Text:      msg.Body,
	})
	if err != nil {
		observability.ObserveNotification(string(p.Type), "error")
		return rt, fmt.Errorf("notify: send %s to %s: %w", p.Type, rt.Recipient, err)
	}
	observability.ObserveNotification(string(p.Type), "sent")
	log.Info().Str("type", string(p.Type)).Str("tenant", rt.TenantID).Str("message_id", id).Msg("notification sent")
	return rt, nil
}

// BookingPayload builds the BOOKING message data for a persisted booking.
func BookingPayload(b domain.Booking) domain.NotificationPayload {
	tours := make([]string, 0, len(b.Lines))
	var manual []string
	for _, l := range b.Lines {
		tours = append(tours, fmt.Sprintf("%s (%s, %d travelers)", l.Title, l.Date, l.Travelers))
		if l.PriceOnRequest {
			manual = append(manual, l.Title)
		}
	}
	return domain.NotificationPayload{
		Type:     domain.MessageBooking,
		SiteName: b.Site,
		Data: map[string]any{
			"tours":          strings.Join(tours, ", "),
			"customerName":   b.Lead.FullName,
			"customerEmail":  b.Lead.Email,
			"customerPhone":  b.Lead.Phone,
			"amount":         b.TotalPaid.StringFixed(2),
			"confirmationId": b.PaymentConfirmationID,
			"manualQuote":    strings.Join(manual, ", "),
		},
	}
}

func InquiryPayload(in domain.Inquiry, site string) domain.NotificationPayload {
	travelers := in.Travelers
	if strings.TrimSpace(travelers) == "" {
		travelers = "1"
	}
	return domain.NotificationPayload{
		Type:     domain.MessageInquiry,
		SiteName: site,
		Data: map[string]any{
			"tourTitle":     in.TourTitle,
			"fullName":      in.FullName,
			"email":         in.Email,
			"phone":         in.Phone,
			"travelers":     travelers,
			"arrivalDate":   in.ArrivalDate,
			"departureDate": in.DepartureDate,
			"message":       in.Message,
		},
	}
}
