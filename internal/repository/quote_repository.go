package repository

import (
	"context"
	"database/sql"

	"github.com/escolta-mx/booking-api/internal/model"
)

// QuoteRepo persists quote snapshots.  A quote is 1:1 with its booking
// and upserted by booking id: re-quoting a booking replaces the
// snapshot, and settlement later reconciles against whatever snapshot
// was current when the charge was created.
type QuoteRepo struct {
	db *sql.DB
}

// NewQuoteRepo returns a new QuoteRepo bound to the given database.
func NewQuoteRepo(db *sql.DB) *QuoteRepo { return &QuoteRepo{db: db} }

// Upsert writes the snapshot for a booking, replacing any previous
// one.
func (r *QuoteRepo) Upsert(ctx context.Context, q *model.Quote) error {
	const stmt = `INSERT INTO quotes
			(booking_id, quote_amount, preauth_amount, currency, min_hours, surge_mult)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			quote_amount = VALUES(quote_amount),
			preauth_amount = VALUES(preauth_amount),
			currency = VALUES(currency),
			min_hours = VALUES(min_hours),
			surge_mult = VALUES(surge_mult)`
	_, err := r.db.ExecContext(ctx, stmt,
		q.BookingID, q.QuoteAmount, q.PreauthAmount, q.Currency, q.MinHours, q.SurgeMult)
	return err
}

// GetByBookingID returns the snapshot for a booking or ErrNotFound.
func (r *QuoteRepo) GetByBookingID(ctx context.Context, bookingID string) (*model.Quote, error) {
	const stmt = `SELECT booking_id, quote_amount, preauth_amount, currency, min_hours, surge_mult, created_at
				  FROM quotes WHERE booking_id = ?`
	var q model.Quote
	err := r.db.QueryRowContext(ctx, stmt, bookingID).Scan(
		&q.BookingID, &q.QuoteAmount, &q.PreauthAmount, &q.Currency, &q.MinHours, &q.SurgeMult, &q.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}
