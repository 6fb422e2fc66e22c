// Package checkout drives a cart through trip details, payment and the
// post-payment commit of booking, notification and cart clear.
package checkout

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/cart"
	"storefront/internal/domain"
	"storefront/internal/pricing"
)

type State string

const (
	StateLoading     State = "loading"
	StateEmpty       State = "empty"
	StateReady       State = "ready"
	StateUnavailable State = "unavailable"
	StateCompleted   State = "completed"
)

// DefaultTravelers is the traveler count a line starts with.
const DefaultTravelers = 2

var ErrUnknownLine = errors.New("checkout: item is not in this checkout")

// Line is one cart item with its trip details and current quote.
type Line struct {
	domain.CartLineSelection
	Title string        `json:"title"`
	Slug  string        `json:"slug,omitempty"`
	Quote pricing.Quote `json:"quote"`

	tour domain.Tour
}

func (l *Line) reprice() { l.Quote = pricing.PriceTour(l.tour, l.TravelerCount) }

// DraftInput is what a client sends back from the checkout form.
type DraftInput struct {
	Lines         []domain.CartLineSelection `json:"lines"`
	Lead          domain.LeadContact         `json:"lead"`
	TermsAccepted bool                       `json:"termsAccepted"`
}

// Session is one checkout in progress. It is not safe for concurrent use;
// the HTTP layer builds a fresh session per request.
type Session struct {
	Brand domain.Brand
	Site  string
	State State

	lead  domain.LeadContact
	terms bool
	lines []*Line
	cart  *cart.Store
}

func (s *Session) line(ref string) (*Line, error) {
	for _, l := range s.lines {
		if l.ItemRef == ref {
			return l, nil
		}
	}
	return nil, ErrUnknownLine
}

func (s *Session) SetStartDate(ref, date string) error {
	l, err := s.line(ref)
	if err != nil {
		return err
	}
	l.StartDate = strings.TrimSpace(date)
	return nil
}

// SetTravelers updates the party size of a line; counts below 1 become 1.
func (s *Session) SetTravelers(ref string, n int) error {
	l, err := s.line(ref)
	if err != nil {
		return err
	}
	if n < 1 {
		n = 1
	}
	l.TravelerCount = n
	l.reprice()
	return nil
}

func (s *Session) SetLead(c domain.LeadContact) {
	s.lead = domain.LeadContact{
		FullName: strings.TrimSpace(c.FullName),
		Email:    strings.TrimSpace(c.Email),
		Phone:    strings.TrimSpace(c.Phone),
	}
}

func (s *Session) AcceptTerms(v bool) { s.terms = v }

// Remove drops a line and the matching cart item. Removing the last line empties the checkout.
func (s *Session) Remove(ctx context.Context, ref string) error {
	idx := -1
	for i, l := range s.lines {
		if l.ItemRef == ref {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrUnknownLine
	}
	if err := s.cart.Remove(ctx, ref); err != nil {
		return err
	}
	s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	if len(s.lines) == 0 {
		s.State = StateEmpty
	}
	return nil
}

// Apply copies form input onto the session. Lines for items not in the
// checkout are ignored; a zero traveler count keeps the current one.
func (s *Session) Apply(in DraftInput) {
	for _, sel := range in.Lines {
		l, err := s.line(sel.ItemRef)
		if err != nil {
			continue
		}
		l.StartDate = strings.TrimSpace(sel.StartDate)
		if sel.TravelerCount != 0 {
			_ = s.SetTravelers(sel.ItemRef, sel.TravelerCount)
		}
	}
	s.SetLead(in.Lead)
	s.AcceptTerms(in.TermsAccepted)
}

// Lines returns a copy of the current lines in cart order.
func (s *Session) Lines() []Line {
	out := make([]Line, 0, len(s.lines))
	for _, l := range s.lines {
		out = append(out, *l)
	}
	return out
}

func (s *Session) Summary() pricing.Summary {
	pl := make([]pricing.Line, 0, len(s.lines))
	for _, l := range s.lines {
		pl = append(pl, pricing.Line{ItemRef: l.ItemRef, Quote: l.Quote})
	}
	return pricing.Summarize(pl)
}

// Draft is the order as the visitor has filled it in so far.
func (s *Session) Draft() domain.OrderDraft {
	sel := make([]domain.CartLineSelection, 0, len(s.lines))
	for _, l := range s.lines {
		sel = append(sel, l.CartLineSelection)
	}
	return domain.OrderDraft{
		Lead:          s.lead,
		Lines:         sel,
		TotalComputed: s.Summary().Total,
		TermsAccepted: s.terms,
	}
}

// PaymentEnabled reports whether the payment control may be shown.
func (s *Session) PaymentEnabled() bool { return len(s.Validate()) == 0 }

func (s *Session) titles() []string {
	out := make([]string, 0, len(s.lines))
	for _, l := range s.lines {
		out = append(out, l.Title)
	}
	return out
}
