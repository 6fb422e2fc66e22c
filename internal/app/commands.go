package app

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/adapters/observability"
	"storefront/internal/domain"
	"storefront/internal/notify"
)

// ErrNeedsReview marks entries that only an operator can settle.
var ErrNeedsReview = errors.New("needs manual review")

// ReconcileService replays the post-payment steps of bookings that were
// captured but not fully committed. Replays are safe because booking
// persistence is idempotent on the payment confirmation id.
type ReconcileService struct {
	bookings domain.BookingRepository
	notifier *notify.Notifier
	journal  domain.ReconciliationJournal
}

func NewReconcileService(b domain.BookingRepository, n *notify.Notifier, j domain.ReconciliationJournal) *ReconcileService {
	return &ReconcileService{bookings: b, notifier: n, journal: j}
}

func (s *ReconcileService) Pending(ctx context.Context, limit int) ([]domain.ReconciliationEntry, error) {
	return s.journal.Pending(ctx, limit)
}

// Retry resumes an entry from its failed stage. A persist entry whose
// notification then fails is re-journaled under the same id as a notify entry.
func (s *ReconcileService) Retry(ctx context.Context, e domain.ReconciliationEntry) error {
	switch e.Stage {
	case domain.StagePersist:
		if err := s.bookings.Save(ctx, e.Booking); err != nil {
			observability.ObserveReconcile(string(e.Stage), "error")
			return fmt.Errorf("reconcile %s: persist: %w", e.Booking.PaymentConfirmationID, err)
		}
		if err := s.notify(ctx, e); err != nil {
			next := e
			next.Stage = domain.StageNotify
			next.Error = err.Error()
			if jerr := s.journal.Record(ctx, next); jerr != nil {
				return fmt.Errorf("reconcile %s: re-journal: %w", e.Booking.PaymentConfirmationID, jerr)
			}
			observability.ObserveReconcile(string(e.Stage), "partial")
			return err
		}
	case domain.StageNotify:
		if err := s.notify(ctx, e); err != nil {
			observability.ObserveReconcile(string(e.Stage), "error")
			return err
		}
	case domain.StageReview:
		observability.ObserveReconcile(string(e.Stage), "skipped")
		return fmt.Errorf("reconcile %s: %w: %s", e.Booking.PaymentConfirmationID, ErrNeedsReview, e.Error)
	default:
		return fmt.Errorf("reconcile %s: unknown stage %q", e.ID, e.Stage)
	}

	if err := s.journal.Resolve(ctx, e); err != nil {
		return fmt.Errorf("reconcile %s: resolve: %w", e.Booking.PaymentConfirmationID, err)
	}
	observability.ObserveReconcile(string(e.Stage), "resolved")
	return nil
}

func (s *ReconcileService) notify(ctx context.Context, e domain.ReconciliationEntry) error {
	_, err := s.notifier.Notify(ctx, e.BrandID, notify.BookingPayload(e.Booking), e.Booking.Lead.Email)
	if err != nil {
		return fmt.Errorf("reconcile %s: notify: %w", e.Booking.PaymentConfirmationID, err)
	}
	return nil
}
