package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/notify"
)

type captureMailer struct {
	sent []domain.Email
	err  error
}

func (m *captureMailer) Send(_ context.Context, e domain.Email) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, e)
	return "msg-1", nil
}

func newRouter(t *testing.T) *notify.Router {
	t.Helper()
	r, err := notify.NewRouter()
	require.NoError(t, err)
	return r
}

func TestRoute_Table(t *testing.T) {
	r := newRouter(t)
	cases := []struct {
		tenant, recipient, sender string
	}{
		{"tours", "info@gheraltatours.com", "notifications@gheraltatours.com"},
		{"adventures", "bookings@gheraltaadventures.com", "notifications@gheraltaadventures.com"},
		{"abuneyemata", "hello@abuneyemata.com", "notifications@abuneyemata.com"},
	}
	for _, tc := range cases {
		for _, typ := range []domain.MessageType{domain.MessageInquiry, domain.MessageBooking} {
			rt := r.Route(tc.tenant, typ)
			assert.Equal(t, tc.recipient, rt.Recipient, tc.tenant)
			assert.Equal(t, tc.sender, rt.Sender, tc.tenant)
		}
	}
}

func TestRoute_UnknownTenantUsesDefault(t *testing.T) {
	rt := newRouter(t).Route("nope", domain.MessageInquiry)
	assert.Equal(t, "tours", rt.TenantID)
	assert.Equal(t, "info@gheraltatours.com", rt.Recipient)
}

func TestFormat_Subjects(t *testing.T) {
	r := newRouter(t)

	msg, err := r.Format(domain.MessageBooking, domain.NotificationPayload{
		Type: domain.MessageBooking, SiteName: "gheraltatours.com",
		Data: map[string]any{"tourTitle": "Danakil Trek", "amount": "400.00"},
	})
	require.NoError(t, err)
	assert.Equal(t, "PAID BOOKING: Danakil Trek (gheraltatours.com)", msg.Subject)
	assert.Contains(t, msg.Body, "Amount: $400.00")

	msg, err = r.Format(domain.MessageInquiry, domain.NotificationPayload{
		Type: domain.MessageInquiry, SiteName: "abuneyemata.com",
		Data: map[string]any{"fullName": "Ana", "message": "Is March good?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "NEW INQUIRY (abuneyemata.com)", msg.Subject)
	assert.Contains(t, msg.Body, "Tour: General Inquiry")
	assert.Contains(t, msg.Body, "Is March good?")
	assert.Contains(t, msg.Body, "Sent from: abuneyemata.com")
}

func TestFormat_UnknownType(t *testing.T) {
	_, err := newRouter(t).Format("FAX", domain.NotificationPayload{})
	assert.Error(t, err)
}

func TestNotifier_SendsWithReplyTo(t *testing.T) {
	m := &captureMailer{}
	n := notify.NewNotifier(newRouter(t), m)

	b := domain.Booking{
		Site:      "gheraltaadventures.com",
		Lead:      domain.LeadContact{FullName: "Ana", Email: "ana@example.com"},
		TotalPaid: decimal.NewFromInt(920),
		Lines: []domain.BookingLine{
			{Title: "Erta Ale", Date: "2026-11-02", Travelers: 2},
			{Title: "Custom Trip", Date: "2026-11-05", Travelers: 1, PriceOnRequest: true},
		},
		PaymentConfirmationID: "ORDER-1",
	}
	rt, err := n.Notify(context.Background(), "adventures", notify.BookingPayload(b), b.Lead.Email)
	require.NoError(t, err)
	assert.Equal(t, "bookings@gheraltaadventures.com", rt.Recipient)

	require.Len(t, m.sent, 1)
	e := m.sent[0]
	assert.Equal(t, "ana@example.com", e.ReplyTo)
	assert.Equal(t, "notifications@gheraltaadventures.com", e.FromEmail)
	assert.Equal(t, "PAID BOOKING (gheraltaadventures.com)", e.Subject)
	assert.Contains(t, e.Text, "Erta Ale (2026-11-02, 2 travelers)")
	assert.Contains(t, e.Text, "Amount: $920.00")
	assert.Contains(t, e.Text, "Needs manual quote: Custom Trip")
}

func TestNotifier_MailerFailure(t *testing.T) {
	n := notify.NewNotifier(newRouter(t), &captureMailer{err: errors.New("smtp down")})
	rt, err := n.Notify(context.Background(), "tours", notify.InquiryPayload(domain.Inquiry{FullName: "x"}, "gheraltatours.com"), "")
	require.Error(t, err)
	assert.Equal(t, "info@gheraltatours.com", rt.Recipient)
}
