package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"storefront/internal/adapters/observability"
	"storefront/internal/cart"
	"storefront/internal/domain"
	"storefront/internal/notify"
)

const (
	maxDescription = 127
	lockTTL        = 2 * time.Minute
)

var (
	ErrNothingToCharge = errors.New("checkout: nothing to charge, every tour is priced on request")
	ErrAmountMismatch  = errors.New("checkout: captured amount differs from order total")
)

// bookingNamespace seeds the name-based UUIDs derived from payment confirmation ids.
var bookingNamespace = uuid.MustParse("6f1c7c2e-3f0a-4d5e-9b8a-2a4c1e7d9f30")

// BookingID is the deterministic booking id for a payment confirmation.
func BookingID(confirmationID string) string {
	return uuid.NewSHA1(bookingNamespace, []byte(confirmationID)).String()
}

// CommitError means money was captured but a later commit step failed.
// The cart is left intact and the booking needs reconciling.
type CommitError struct {
	Stage          domain.ReconcileStage
	ConfirmationID string
	BookingID      string
	Err            error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("checkout: %s failed after payment %s captured: %v", e.Stage, e.ConfirmationID, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

type Deps struct {
	Tours    domain.TourSource
	Payments domain.PaymentGateway
	Bookings domain.BookingRepository
	Notifier *notify.Notifier
	Journal  domain.ReconciliationJournal // optional
	Locker   domain.Locker                // optional
	Currency string
	Now      func() time.Time
}

type Orchestrator struct {
	tours    domain.TourSource
	payments domain.PaymentGateway
	bookings domain.BookingRepository
	notifier *notify.Notifier
	journal  domain.ReconciliationJournal
	locker   domain.Locker
	currency string
	now      func() time.Time
}

func New(d Deps) *Orchestrator {
	o := &Orchestrator{
		tours:    d.Tours,
		payments: d.Payments,
		bookings: d.Bookings,
		notifier: d.Notifier,
		journal:  d.Journal,
		locker:   d.Locker,
		currency: d.Currency,
		now:      d.Now,
	}
	if o.currency == "" {
		o.currency = "USD"
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// Load builds a session from the cart. A content failure yields an unavailable
// session rather than an error; tours the CMS no longer returns are left out.
func (o *Orchestrator) Load(ctx context.Context, brand domain.Brand, site string, c *cart.Store) *Session {
	s := &Session{Brand: brand, Site: site, State: StateLoading, cart: c}
	refs := c.List(ctx)
	if len(refs) == 0 {
		s.State = StateEmpty
		return s
	}

	tours, err := o.tours.GetTours(ctx, refs)
	if err != nil {
		log.Warn().Err(err).Str("brand", brand.ID).Int("items", len(refs)).Msg("checkout content unavailable")
		s.State = StateUnavailable
		return s
	}
	byID := make(map[string]domain.Tour, len(tours))
	for _, t := range tours {
		byID[t.DocumentID] = t
	}
	for _, ref := range refs {
		t, ok := byID[ref]
		if !ok {
			continue
		}
		l := &Line{
			CartLineSelection: domain.CartLineSelection{ItemRef: ref, TravelerCount: DefaultTravelers},
			Title:             t.Title,
			Slug:              t.Slug,
			tour:              t,
		}
		l.reprice()
		s.lines = append(s.lines, l)
	}
	if len(s.lines) == 0 {
		s.State = StateEmpty
		return s
	}
	s.State = StateReady
	return s
}

// CreatePayment opens a payment order for the priced total of a valid draft.
func (o *Orchestrator) CreatePayment(ctx context.Context, s *Session) (domain.PaymentOrder, error) {
	if errs := s.Validate(); len(errs) > 0 {
		return domain.PaymentOrder{}, &ValidationError{Fields: errs}
	}
	total := s.Summary().Total
	if !total.IsPositive() {
		return domain.PaymentOrder{}, ErrNothingToCharge
	}
	desc := truncate(s.Site+" - "+strings.Join(s.titles(), ", "), maxDescription)
	order, err := o.payments.CreateOrder(ctx, o.currency, total, desc)
	if err != nil {
		return domain.PaymentOrder{}, fmt.Errorf("checkout: create payment: %w", err)
	}
	log.Info().Str("brand", s.Brand.ID).Str("order_id", order.ID).Str("amount", total.String()).Msg("payment order created")
	return order, nil
}

// Commit runs the post-approval sequence: capture, persist, notify, clear cart.
// Each step runs only after the previous one succeeded. A capture failure changes
// nothing; a later failure returns *CommitError and leaves the cart untouched.
func (o *Orchestrator) Commit(ctx context.Context, s *Session, orderID string) (domain.Booking, error) {
	if errs := s.Validate(); len(errs) > 0 {
		return domain.Booking{}, &ValidationError{Fields: errs}
	}
	if o.locker != nil {
		release, err := o.locker.Acquire(ctx, "checkout:"+orderID, lockTTL)
		if err != nil {
			observability.ObserveCommit(s.Brand.ID, "locked")
			return domain.Booking{}, fmt.Errorf("checkout: order %s: %w", orderID, err)
		}
		defer release()
	}

	capture, err := o.payments.CaptureOrder(ctx, orderID)
	if err == nil && capture.ConfirmationID == "" {
		err = errors.New("empty confirmation id")
	}
	if err != nil {
		observability.ObserveCommit(s.Brand.ID, "payment_failed")
		log.Warn().Err(err).Str("brand", s.Brand.ID).Str("order_id", orderID).Msg("payment capture failed")
		if errors.Is(err, domain.ErrPaymentFailed) || errors.Is(err, domain.ErrPaymentCancelled) {
			return domain.Booking{}, err
		}
		return domain.Booking{}, fmt.Errorf("%w: %w", domain.ErrPaymentFailed, err)
	}

	b := o.snapshot(s, capture)
	if computed := s.Summary().Total; !b.TotalPaid.Equal(computed) {
		err := fmt.Errorf("%w: captured %s, computed %s", ErrAmountMismatch, b.TotalPaid, computed)
		return b, o.reconcile(ctx, s, b, domain.StageReview, err)
	}

	if err := o.bookings.Save(ctx, b); err != nil {
		return b, o.reconcile(ctx, s, b, domain.StagePersist, err)
	}
	if _, err := o.notifier.Notify(ctx, s.Brand.ID, notify.BookingPayload(b), b.Lead.Email); err != nil {
		return b, o.reconcile(ctx, s, b, domain.StageNotify, err)
	}

	// the booking is committed; a client disconnect must not leave the cart behind
	if err := s.cart.Clear(context.WithoutCancel(ctx)); err != nil {
		log.Warn().Err(err).Str("booking_id", b.ID).Msg("cart clear failed after booking")
	}
	s.lines = nil
	s.State = StateCompleted
	observability.ObserveCommit(s.Brand.ID, "completed")
	log.Info().Str("brand", s.Brand.ID).Str("booking_id", b.ID).Str("confirmation_id", b.PaymentConfirmationID).Msg("booking completed")
	return b, nil
}

func (o *Orchestrator) snapshot(s *Session, c domain.PaymentCapture) domain.Booking {
	lines := make([]domain.BookingLine, 0, len(s.lines))
	for _, l := range s.lines {
		lines = append(lines, domain.BookingLine{
			ItemRef:        l.ItemRef,
			Title:          l.Title,
			Date:           l.StartDate,
			Travelers:      l.TravelerCount,
			PerPerson:      l.Quote.PerPerson,
			Total:          l.Quote.Total,
			PriceOnRequest: l.Quote.OnRequest,
		})
	}
	return domain.Booking{
		ID:                    BookingID(c.ConfirmationID),
		Site:                  s.Site,
		BrandID:               s.Brand.ID,
		Lead:                  s.lead,
		Lines:                 lines,
		TotalPaid:             paid(c, s.Summary().Total),
		Currency:              o.currency,
		PaymentConfirmationID: c.ConfirmationID,
		CaptureID:             c.CaptureID,
		Status:                domain.BookingPaid,
		CreatedAt:             o.now().UTC(),
	}
}

// paid is what the provider reports as captured, falling back to the computed
// total for gateways that do not echo the amount.
func paid(c domain.PaymentCapture, computed decimal.Decimal) decimal.Decimal {
	if c.Amount.IsZero() {
		return computed
	}
	return c.Amount
}

func (o *Orchestrator) reconcile(ctx context.Context, s *Session, b domain.Booking, stage domain.ReconcileStage, cause error) error {
	observability.ObserveCommit(s.Brand.ID, string(stage)+"_failed")
	log.Error().Err(cause).
		Str("stage", string(stage)).
		Str("brand", s.Brand.ID).
		Str("booking_id", b.ID).
		Str("confirmation_id", b.PaymentConfirmationID).
		Str("email", observability.RedactEmail(b.Lead.Email)).
		Str("amount", b.TotalPaid.String()).
		Msg("reconciliation required")

	if o.journal != nil {
		e := domain.ReconciliationEntry{
			ID:         b.ID,
			Stage:      stage,
			BrandID:    s.Brand.ID,
			Booking:    b,
			Error:      cause.Error(),
			RecordedAt: o.now().UTC(),
		}
		// the request may already be cancelled; the journal write must still happen
		if err := o.journal.Record(context.WithoutCancel(ctx), e); err != nil {
			log.Error().Err(err).Str("confirmation_id", b.PaymentConfirmationID).Msg("reconciliation journal write failed")
		}
	}
	return &CommitError{Stage: stage, ConfirmationID: b.PaymentConfirmationID, BookingID: b.ID, Err: cause}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
