package mysql

// Bookings are append-only. A second insert for the same payment is a no-op,
// which makes Save safe to replay.
const insertBookingSQL = `
INSERT INTO bookings
  (id, site, brand_id, lead_name, lead_email, lead_phone, line_items,
   total_paid, currency, payment_confirmation_id, capture_id, status, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE id = id
`

const selectBookingCols = `
SELECT id, site, brand_id, lead_name, lead_email, lead_phone, line_items,
       total_paid, currency, payment_confirmation_id, capture_id, status, created_at
FROM bookings
`

const getBookingSQL = selectBookingCols + `WHERE id = ?`

const getBookingByConfirmationSQL = selectBookingCols + `WHERE payment_confirmation_id = ?`
