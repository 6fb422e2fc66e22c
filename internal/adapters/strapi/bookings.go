package strapi

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"storefront/internal/domain"
)

type bookingDetail struct {
	Title     string `json:"title"`
	Date      string `json:"date"`
	Travelers int    `json:"travelers"`
	Total     string `json:"total"`
}

type bookingData struct {
	FullName      string          `json:"fullName"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	TotalPaid     string          `json:"totalPaid"`
	BookingStatus string          `json:"bookingStatus"`
	SiteSource    string          `json:"site_source"`
	Details       []bookingDetail `json:"details"`
	PaypalOrderID string          `json:"paypalOrderId"`
}

func bookingPayload(b domain.Booking) map[string]any {
	d := bookingData{
		FullName:      b.Lead.FullName,
		Email:         b.Lead.Email,
		Phone:         b.Lead.Phone,
		TotalPaid:     b.TotalPaid.StringFixed(2),
		BookingStatus: string(b.Status),
		SiteSource:    b.Site,
		Details:       make([]bookingDetail, 0, len(b.Lines)),
		PaypalOrderID: b.PaymentConfirmationID,
	}
	for _, l := range b.Lines {
		d.Details = append(d.Details, bookingDetail{
			Title:     l.Title,
			Date:      l.Date,
			Travelers: l.Travelers,
			Total:     l.Total.StringFixed(2),
		})
	}
	return map[string]any{"data": d}
}

// BookingSink stores bookings in the CMS bookings collection. Save checks for an
// existing record with the same payment id first, so replays do not duplicate.
type BookingSink struct{ c *Client }

func NewBookingSink(c *Client) *BookingSink { return &BookingSink{c: c} }

func (s *BookingSink) Save(ctx context.Context, b domain.Booking) error {
	exists, err := s.c.FindBookingByPaymentID(ctx, b.PaymentConfirmationID)
	if err != nil {
		return fmt.Errorf("strapi: lookup booking %s: %w", b.PaymentConfirmationID, err)
	}
	if exists {
		log.Info().Str("confirmation_id", b.PaymentConfirmationID).Msg("booking already recorded in CMS")
		return nil
	}
	if err := s.c.CreateBooking(ctx, bookingPayload(b)); err != nil {
		return fmt.Errorf("strapi: create booking %s: %w", b.PaymentConfirmationID, err)
	}
	return nil
}
