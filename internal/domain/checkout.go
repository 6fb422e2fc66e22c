package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type LeadContact struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// CartLineSelection is the per-item trip detail collected during checkout.
type CartLineSelection struct {
	ItemRef       string `json:"itemRef"`
	TravelerCount int    `json:"travelers"`
	StartDate     string `json:"startDate"` // YYYY-MM-DD, empty until chosen
}

type OrderDraft struct {
	Lead          LeadContact         `json:"lead"`
	Lines         []CartLineSelection `json:"lines"`
	TotalComputed decimal.Decimal     `json:"total"`
	TermsAccepted bool                `json:"termsAccepted"`
}

type BookingStatus string

const (
	BookingPending BookingStatus = "pending"
	BookingPaid    BookingStatus = "paid"
)

type BookingLine struct {
	ItemRef        string          `json:"itemRef"`
	Title          string          `json:"title"`
	Date           string          `json:"date"`
	Travelers      int             `json:"travelers"`
	PerPerson      decimal.Decimal `json:"perPerson"`
	Total          decimal.Decimal `json:"total"`
	PriceOnRequest bool            `json:"priceOnRequest,omitempty"`
}

// Booking is the append-only record written after a successful capture.
// ID is derived from PaymentConfirmationID so repeated writes of the same payment collapse.
type Booking struct {
	ID                    string          `json:"id"`
	Site                  string          `json:"site"`
	BrandID               string          `json:"brandId"`
	Lead                  LeadContact     `json:"lead"`
	Lines                 []BookingLine   `json:"lines"`
	TotalPaid             decimal.Decimal `json:"totalPaid"`
	Currency              string          `json:"currency"`
	PaymentConfirmationID string          `json:"paymentConfirmationId"`
	CaptureID             string          `json:"captureId,omitempty"`
	Status                BookingStatus   `json:"status"`
	CreatedAt             time.Time       `json:"createdAt"`
}

// PaymentOrder is a created, not yet approved, payment at the payment provider.
type PaymentOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type PaymentCapture struct {
	ConfirmationID string
	CaptureID      string
	Status         string
	Amount         decimal.Decimal
}

type ReconcileStage string

const (
	StagePersist ReconcileStage = "persist"
	StageNotify  ReconcileStage = "notify"
	// StageReview holds captures whose amount disagrees with the booked lines.
	// They are never replayed automatically.
	StageReview ReconcileStage = "review"
)

// ReconciliationEntry records a payment that was captured but not fully committed.
type ReconciliationEntry struct {
	ID         string         `json:"id"`
	Stage      ReconcileStage `json:"stage"`
	BrandID    string         `json:"brandId"`
	Booking    Booking        `json:"booking"`
	Error      string         `json:"error"`
	RecordedAt time.Time      `json:"recordedAt"`
}
