package repository

import (
	"context"
	"database/sql"

	"github.com/escolta-mx/booking-api/internal/model"
)

// PaymentRepo records funds holds against bookings.  Capture state is
// owned by the payment processor and observed via webhook; only the
// stub preauthorization path writes here.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// CreatePreauth inserts a preauthorized payment row for a booking.
func (r *PaymentRepo) CreatePreauth(ctx context.Context, bookingID, provider string, amount int64) error {
	const q = `INSERT INTO payments (booking_id, provider, amount_preauth, status) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, bookingID, provider, amount, model.PaymentPreauthorized)
	return err
}
