// Package repository provides data access for bookings, assignments,
// guards, rate cards, quotes and payments.  Sentinel errors defined
// here let handlers distinguish failure scenarios: ErrNotFound maps to
// HTTP 404, ErrInvalidTransition to 409.  Row absence inside queries is
// reported as sql.ErrNoRows and translated by each repository.
package repository

import "errors"

// ErrNotFound is returned when a referenced booking, assignment or
// pricing rule does not exist.  Handlers should translate this into an
// HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is returned when a conditional status update
// matches no row: either the entity is gone or its current status is
// not the expected source state.  Callers that need "success with
// no-op" semantics (assignment acceptance) must check the current row
// instead of surfacing this as an error.
var ErrInvalidTransition = errors.New("invalid status transition")
