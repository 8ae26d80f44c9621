package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/escolta-mx/booking-api/internal/model"
)

// BookingRepo is the only component that mutates booking rows.  Every
// status change is a compare-and-swap against the expected current
// status; there is no blind overwrite path.  Bookings are never
// deleted; cancelled and completed rows stay for reconciliation.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// spanning multiple repositories.
func (r *BookingRepo) DB() *sql.DB { return r.db }

// Create inserts a new booking in status quoted and fills in the
// generated id.  All optional fields may be nil.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.Status = model.BookingQuoted
	const q = `INSERT INTO bookings
		(id, client_id, city, tier, armed_required, vehicle_required, vehicle_type,
		 start_ts, end_ts, origin_lat, origin_lng, dest_lat, dest_lng,
		 pickup_address, notes, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		b.ID, b.ClientID, b.City, b.Tier, b.ArmedRequired, b.VehicleRequired, b.VehicleType,
		b.StartTS.UTC(), b.EndTS.UTC(), b.OriginLat, b.OriginLng, b.DestLat, b.DestLng,
		b.PickupAddress, b.Notes, b.Status,
	)
	return err
}

// GetByID loads one booking.  It returns ErrNotFound when no row
// exists.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	const q = `SELECT id, client_id, city, tier, armed_required, vehicle_required, vehicle_type,
					  start_ts, end_ts, origin_lat, origin_lng, dest_lat, dest_lng,
					  pickup_address, notes, status, created_at, updated_at
			   FROM bookings WHERE id = ?`
	var b model.Booking
	var clientID, vehicleType, pickup, notes sql.NullString
	var oLat, oLng, dLat, dLng sql.NullFloat64
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&b.ID, &clientID, &b.City, &b.Tier, &b.ArmedRequired, &b.VehicleRequired, &vehicleType,
		&b.StartTS, &b.EndTS, &oLat, &oLng, &dLat, &dLng,
		&pickup, &notes, &b.Status, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	b.ClientID = nullStr(clientID)
	b.VehicleType = nullStr(vehicleType)
	b.PickupAddress = nullStr(pickup)
	b.Notes = nullStr(notes)
	b.OriginLat = nullF64(oLat)
	b.OriginLng = nullF64(oLng)
	b.DestLat = nullF64(dLat)
	b.DestLng = nullF64(dLng)
	return &b, nil
}

// UpdateStatus advances a booking from one status to another.  The
// update is conditional on the current status, so a concurrent writer
// that got there first makes this a no-op.  It returns true when the
// row was transitioned.  Transition legality is validated against the
// model's table before touching the database.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id, from, to string) (bool, error) {
	if !model.BookingCanTransition(from, to) {
		return false, ErrInvalidTransition
	}
	const q = `UPDATE bookings SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, to, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateStatusTx is UpdateStatus within an existing transaction.  Used
// when the booking transition must commit atomically with an
// assignment transition (first acceptance).
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id, from, to string) (bool, error) {
	if !model.BookingCanTransition(from, to) {
		return false, ErrInvalidTransition
	}
	const q = `UPDATE bookings SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, to, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AssignTx moves a booking to assigned from any live pre-assignment
// status (quoted, matching or preauthorized), within an existing
// transaction.  Acceptance uses this instead of a single-status CAS
// because preauthorization may run before matching does.  It returns
// false when the booking is already assigned, terminal or absent.
func (r *BookingRepo) AssignTx(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	const q = `UPDATE bookings SET status = ?, updated_at = UTC_TIMESTAMP()
			   WHERE id = ? AND status IN (?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, model.BookingAssigned, id,
		model.BookingQuoted, model.BookingMatching, model.BookingPreauthorized)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Cancel moves a booking to cancelled from whatever non-terminal state
// it is in.  It returns false when the booking is already terminal or
// absent.
func (r *BookingRepo) Cancel(ctx context.Context, id string) (bool, error) {
	const q = `UPDATE bookings SET status = ?, updated_at = UTC_TIMESTAMP()
			   WHERE id = ? AND status NOT IN (?, ?)`
	res, err := r.db.ExecContext(ctx, q, model.BookingCancelled, id, model.BookingCompleted, model.BookingCancelled)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullF64(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
