package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/escolta-mx/booking-api/internal/model"
)

// AssignmentRepo provides data access to the assignments table.  The
// acceptance path is the concurrency-sensitive one: it is a
// compare-and-swap on offered -> accepted so that of N concurrent
// accepts for one booking exactly one wins.
type AssignmentRepo struct {
	db *sql.DB
}

// NewAssignmentRepo returns a new AssignmentRepo bound to the given
// database.
func NewAssignmentRepo(db *sql.DB) *AssignmentRepo { return &AssignmentRepo{db: db} }

// CreateOffer inserts one offered assignment for a guard and fills in
// the generated id.
func (r *AssignmentRepo) CreateOffer(ctx context.Context, bookingID, guardID string) (string, error) {
	id := uuid.NewString()
	const q = `INSERT INTO assignments (id, booking_id, guard_id, status) VALUES (?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, id, bookingID, guardID, model.AssignmentOffered); err != nil {
		return "", err
	}
	return id, nil
}

// GetByID loads one assignment.  It returns ErrNotFound when no row
// exists.
func (r *AssignmentRepo) GetByID(ctx context.Context, id string) (*model.Assignment, error) {
	const q = `SELECT id, booking_id, guard_id, status,
					  check_in_ts, on_site_ts, in_progress_ts, check_out_ts,
					  created_at, updated_at
			   FROM assignments WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

// getByIDTx is GetByID inside a transaction.
func (r *AssignmentRepo) getByIDTx(ctx context.Context, tx *sql.Tx, id string) (*model.Assignment, error) {
	const q = `SELECT id, booking_id, guard_id, status,
					  check_in_ts, on_site_ts, in_progress_ts, check_out_ts,
					  created_at, updated_at
			   FROM assignments WHERE id = ?`
	return r.scanOne(tx.QueryRowContext(ctx, q, id))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *AssignmentRepo) scanOne(row rowScanner) (*model.Assignment, error) {
	var a model.Assignment
	var checkIn, onSite, inProgress, checkOut sql.NullTime
	err := row.Scan(
		&a.ID, &a.BookingID, &a.GuardID, &a.Status,
		&checkIn, &onSite, &inProgress, &checkOut,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.CheckInTS = nullTime(checkIn)
	a.OnSiteTS = nullTime(onSite)
	a.InProgressTS = nullTime(inProgress)
	a.CheckOutTS = nullTime(checkOut)
	return &a, nil
}

// AcceptResult reports the outcome of an acceptance attempt.  When
// Accepted is false the assignment was not in offered (already taken,
// rejected or progressed) and Status carries its unchanged value;
// the operation is an idempotent no-op, not an error.
type AcceptResult struct {
	Accepted  bool
	Status    string
	BookingID string
}

// Accept performs first-accept-wins in one transaction: CAS the
// assignment offered -> accepted, and on success move the parent
// booking to assigned.  This is the only automatic cross-entity
// transition in the lifecycle.
//
// The booking side runs from any live pre-assignment status (quoted,
// matching, preauthorized), because preauthorization may happen before
// matching runs.  It may still match no row when a prior accept
// already assigned the booking; that does not fail the acceptance.
func (r *AssignmentRepo) Accept(ctx context.Context, bookings *BookingRepo, id string) (*AcceptResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const upd = `UPDATE assignments SET status = ?, updated_at = UTC_TIMESTAMP()
				 WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, upd, model.AssignmentAccepted, id, model.AssignmentOffered)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	a, err := r.getByIDTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if n == 0 {
		// Lost the race or retried: report the unchanged row.
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		committed = true
		return &AcceptResult{Accepted: false, Status: a.Status, BookingID: a.BookingID}, nil
	}

	if _, err := bookings.AssignTx(ctx, tx, a.BookingID); err != nil {
		return nil, fmt.Errorf("assign booking %s: %w", a.BookingID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return &AcceptResult{Accepted: true, Status: model.AssignmentAccepted, BookingID: a.BookingID}, nil
}

// UpdateStatus applies a free-form allow-listed status and stamps the
// phase timestamp column for that status.  COALESCE keeps an already
// written timestamp: phase stamps are append-only, re-applying a
// status does not move them.  Phase ordering is intentionally not
// enforced here.
func (r *AssignmentRepo) UpdateStatus(ctx context.Context, id, status string) error {
	if !model.ValidAssignmentStatus(status) {
		return ErrInvalidTransition
	}
	q := `UPDATE assignments SET status = ?, updated_at = UTC_TIMESTAMP()`
	if col := model.AssignmentPhaseColumn(status); col != "" {
		q += `, ` + col + ` = COALESCE(` + col + `, UTC_TIMESTAMP())`
	}
	q += ` WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL reports zero affected rows both for absent ids and for
		// no-change updates; distinguish by checking existence.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// JobItem is one row of a guard's job feed: the assignment flattened
// together with the booking fields the guard needs to act on it.
type JobItem struct {
	AssignmentID string   `json:"assignment_id"`
	Status       string   `json:"status"`
	BookingID    string   `json:"booking_id"`
	GuardID      string   `json:"guard_id"`
	City         string   `json:"city"`
	Tier         string   `json:"tier"`
	StartTS      string   `json:"start_ts"`
	EndTS        string   `json:"end_ts"`
	OriginLat    *float64 `json:"origin_lat,omitempty"`
	OriginLng    *float64 `json:"origin_lng,omitempty"`
}

// ListActiveByGuard returns the guard's assignments in active statuses
// (offered through in_progress), newest first, joined with their
// booking details.
func (r *AssignmentRepo) ListActiveByGuard(ctx context.Context, guardID string) ([]JobItem, error) {
	const q = `SELECT a.id, a.status, a.booking_id, a.guard_id,
					  b.city, b.tier, b.start_ts, b.end_ts, b.origin_lat, b.origin_lng
			   FROM assignments a
			   JOIN bookings b ON b.id = a.booking_id
			   WHERE a.guard_id = ?
				 AND a.status IN (?, ?, ?, ?, ?)
			   ORDER BY a.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, guardID,
		model.AssignmentOffered, model.AssignmentAccepted, model.AssignmentCheckIn,
		model.AssignmentOnSite, model.AssignmentInProgress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]JobItem, 0)
	for rows.Next() {
		var it JobItem
		var start, end sql.NullTime
		var oLat, oLng sql.NullFloat64
		if err := rows.Scan(&it.AssignmentID, &it.Status, &it.BookingID, &it.GuardID,
			&it.City, &it.Tier, &start, &end, &oLat, &oLng); err != nil {
			return nil, err
		}
		if start.Valid {
			it.StartTS = start.Time.UTC().Format(time.RFC3339)
		}
		if end.Valid {
			it.EndTS = end.Time.UTC().Format(time.RFC3339)
		}
		it.OriginLat = nullF64(oLat)
		it.OriginLng = nullF64(oLng)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
