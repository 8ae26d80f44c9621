// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingAssignedEvent is published when a guard wins an offer and the
// parent booking moves to assigned.  It carries enough context for
// downstream consumers to log, notify, or trigger analytics without
// querying the primary database.
type BookingAssignedEvent struct {
	BookingID    string `json:"booking_id"`
	AssignmentID string `json:"assignment_id"`
	GuardID      string `json:"guard_id"`
	City         string `json:"city"`
	Tier         string `json:"tier"`
	StartTS      string `json:"start_ts"`
	EndTS        string `json:"end_ts"`
	AssignedAt   string `json:"assigned_at"`
}
