package mysql_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	mysqlrepo "storefront/internal/storage/mysql"
)

var cols = []string{
	"id", "site", "brand_id", "lead_name", "lead_email", "lead_phone", "line_items",
	"total_paid", "currency", "payment_confirmation_id", "capture_id", "status", "created_at",
}

func sampleBooking() domain.Booking {
	return domain.Booking{
		ID:                    "b-1",
		Site:                  "gheraltatours.com",
		BrandID:               "tours",
		Lead:                  domain.LeadContact{FullName: "Ana", Email: "ana@example.com", Phone: "+251"},
		Lines:                 []domain.BookingLine{{ItemRef: "t1", Title: "Danakil", Date: "2026-10-03", Travelers: 5}},
		TotalPaid:             decimal.NewFromInt(400),
		Currency:              "USD",
		PaymentConfirmationID: "PAY123",
		Status:                domain.BookingPaid,
		CreatedAt:             time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSave_InsertsIdempotently(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	b := sampleBooking()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WithArgs("b-1", "gheraltatours.com", "tours", "Ana", "ana@example.com", "+251",
			sqlmock.AnyArg(), "400.00", "USD", "PAY123", nil, "paid", b.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// duplicate payment: ON DUPLICATE KEY UPDATE id = id affects no rows
	mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE id = id")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := mysqlrepo.New(db)
	require.NoError(t, repo.Save(context.Background(), b))
	require.NoError(t, repo.Save(context.Background(), b))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO bookings").WillReturnError(errors.New("conn reset"))
	err = mysqlrepo.New(db).Save(context.Background(), sampleBooking())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAY123")
}

func TestGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ?")).WithArgs("b-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"b-1", "gheraltatours.com", "tours", "Ana", "ana@example.com", "+251",
			[]byte(`[{"itemRef":"t1","title":"Danakil","date":"2026-10-03","travelers":5,"perPerson":"80","total":"400"}]`),
			"400.00", "USD", "PAY123", nil, "paid", created,
		))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE payment_confirmation_id = ?")).WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(cols))

	repo := mysqlrepo.New(db)
	b, err := repo.Get(context.Background(), "b-1")
	require.NoError(t, err)
	assert.Equal(t, "PAY123", b.PaymentConfirmationID)
	assert.Equal(t, domain.BookingPaid, b.Status)
	assert.True(t, b.TotalPaid.Equal(decimal.NewFromInt(400)))
	require.Len(t, b.Lines, 1)
	assert.Equal(t, 5, b.Lines[0].Travelers)
	assert.Empty(t, b.CaptureID)

	_, err = repo.GetByConfirmation(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
