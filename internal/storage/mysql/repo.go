package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// Save inserts the booking; a booking with the same payment confirmation id already stored wins.
func (r *Repo) Save(ctx context.Context, b domain.Booking) error {
	lines, err := json.Marshal(b.Lines)
	if err != nil {
		return fmt.Errorf("mysql: encode lines: %w", err)
	}
	created := b.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err = r.db.ExecContext(ctx, insertBookingSQL,
		b.ID,
		b.Site,
		b.BrandID,
		b.Lead.FullName,
		b.Lead.Email,
		b.Lead.Phone,
		string(lines),
		b.TotalPaid.StringFixed(2),
		b.Currency,
		b.PaymentConfirmationID,
		valStr(b.CaptureID),
		string(b.Status),
		created,
	)
	if err != nil {
		return fmt.Errorf("mysql: save booking %s: %w", b.PaymentConfirmationID, err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (domain.Booking, error) {
	return r.getOne(ctx, getBookingSQL, id)
}

func (r *Repo) GetByConfirmation(ctx context.Context, confirmationID string) (domain.Booking, error) {
	return r.getOne(ctx, getBookingByConfirmationSQL, confirmationID)
}

func (r *Repo) getOne(ctx context.Context, q, arg string) (domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBooking(s scanner) (domain.Booking, error) {
	var (
		b       domain.Booking
		lines   []byte
		capture sql.NullString
		status  string
	)
	err := s.Scan(
		&b.ID, &b.Site, &b.BrandID,
		&b.Lead.FullName, &b.Lead.Email, &b.Lead.Phone,
		&lines, &b.TotalPaid, &b.Currency,
		&b.PaymentConfirmationID, &capture, &status, &b.CreatedAt,
	)
	if err != nil {
		return domain.Booking{}, err
	}
	if len(lines) > 0 {
		if err := json.Unmarshal(lines, &b.Lines); err != nil {
			return domain.Booking{}, fmt.Errorf("mysql: decode lines of %s: %w", b.ID, err)
		}
	}
	b.CaptureID = capture.String
	b.Status = domain.BookingStatus(status)
	return b, nil
}
