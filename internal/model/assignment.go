package model

import "time"

// Assignment statuses.  An assignment is created as an offer and walked
// through the job lifecycle by the guard holding it.
const (
	AssignmentOffered    = "offered"
	AssignmentAccepted   = "accepted"
	AssignmentCheckIn    = "check_in"
	AssignmentOnSite     = "on_site"
	AssignmentInProgress = "in_progress"
	AssignmentCheckOut   = "check_out"
	AssignmentCompleted  = "completed"
	AssignmentRejected   = "rejected"
)

// assignmentStatuses is the allow-list accepted by the free-form status
// update operation.  The operation deliberately does not enforce phase
// ordering; acceptance is the only transition with CAS semantics.
var assignmentStatuses = map[string]bool{
	AssignmentOffered:    true,
	AssignmentAccepted:   true,
	AssignmentCheckIn:    true,
	AssignmentOnSite:     true,
	AssignmentInProgress: true,
	AssignmentCheckOut:   true,
	AssignmentCompleted:  true,
}

// ValidAssignmentStatus reports whether s is on the allow-list for the
// status update operation.  Rejection is excluded: offers are rejected
// through their own path, not the free-form update.
func ValidAssignmentStatus(s string) bool {
	return assignmentStatuses[s]
}

// AssignmentPhaseColumn maps a status to the timestamp column stamped
// when that phase is first reached.  Statuses without a dedicated
// column (offered, accepted, completed) return "".
func AssignmentPhaseColumn(status string) string {
	switch status {
	case AssignmentCheckIn:
		return "check_in_ts"
	case AssignmentOnSite:
		return "on_site_ts"
	case AssignmentInProgress:
		return "in_progress_ts"
	case AssignmentCheckOut:
		return "check_out_ts"
	}
	return ""
}

// Assignment is one offer of a booking to one guard.  At most one
// assignment per booking ever advances beyond offered; acceptance is a
// compare-and-swap on offered -> accepted.
//
// Phase timestamps are written once, when the corresponding status is
// first applied, and are append-only thereafter.
type Assignment struct {
	ID           string     // assignments.id
	BookingID    string     // assignments.booking_id
	GuardID      string     // assignments.guard_id
	Status       string     // assignments.status
	CheckInTS    *time.Time // assignments.check_in_ts (nullable)
	OnSiteTS     *time.Time // assignments.on_site_ts (nullable)
	InProgressTS *time.Time // assignments.in_progress_ts (nullable)
	CheckOutTS   *time.Time // assignments.check_out_ts (nullable)
	CreatedAt    time.Time  // assignments.created_at
	UpdatedAt    time.Time  // assignments.updated_at
}
