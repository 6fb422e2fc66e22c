package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// KVStore is the client-side storage the cart lives in (cookie, Redis session, memory).
type KVStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type ContentClient interface {
	FetchTours(ctx context.Context, ids []string) ([]map[string]any, error)
	FetchContactInfos(ctx context.Context) ([]map[string]any, error)
}

// TourSource is what checkout needs from the content side, already normalised.
type TourSource interface {
	GetTours(ctx context.Context, ids []string) ([]Tour, error)
}

type PaymentGateway interface {
	CreateOrder(ctx context.Context, currency string, amount decimal.Decimal, description string) (PaymentOrder, error)
	CaptureOrder(ctx context.Context, orderID string) (PaymentCapture, error)
}

// BookingRepository must treat Save as idempotent on Booking.PaymentConfirmationID.
type BookingRepository interface {
	Save(ctx context.Context, b Booking) error
}

type Mailer interface {
	Send(ctx context.Context, e Email) (string, error)
}

type ReconciliationJournal interface {
	Record(ctx context.Context, e ReconciliationEntry) error
	Pending(ctx context.Context, limit int) ([]ReconciliationEntry, error)
	Resolve(ctx context.Context, e ReconciliationEntry) error
}

type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
