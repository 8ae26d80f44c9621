package model

import "time"

// Booking statuses.  A booking is created in StatusQuoted and only ever
// advances through the transition table below; it is never physically
// deleted because settled payments reconcile against it.
const (
	BookingQuoted        = "quoted"
	BookingMatching      = "matching"
	BookingAssigned      = "assigned"
	BookingPreauthorized = "preauthorized"
	BookingCompleted     = "completed"
	BookingCancelled     = "cancelled"
)

// Service tiers select the rate card used when pricing a booking.
const (
	TierDirect    = "direct"
	TierElite     = "elite"
	TierCorporate = "corporate"
)

// ValidTier reports whether t names a known service tier.
func ValidTier(t string) bool {
	switch t {
	case TierDirect, TierElite, TierCorporate:
		return true
	}
	return false
}

// bookingTransitions enumerates the legal forward transitions of a
// booking.  Preauthorization may occur before or after matching, which
// is why both quoted and matching/assigned can reach preauthorized.
var bookingTransitions = map[string][]string{
	BookingQuoted:        {BookingMatching, BookingPreauthorized, BookingCancelled},
	BookingMatching:      {BookingAssigned, BookingPreauthorized, BookingCancelled},
	BookingAssigned:      {BookingPreauthorized, BookingCompleted, BookingCancelled},
	BookingPreauthorized: {BookingMatching, BookingAssigned, BookingCompleted, BookingCancelled},
}

// BookingCanTransition reports whether a booking may move from one
// status to another.  Terminal states (completed, cancelled) admit no
// further transitions.
func BookingCanTransition(from, to string) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// BookingTerminal reports whether a booking status admits no further
// transitions.
func BookingTerminal(status string) bool {
	return status == BookingCompleted || status == BookingCancelled
}

// BookingAssignable reports whether acceptance may land a booking in
// assigned from the given status.  Acceptance is a dedicated operation
// rather than a free transition: a booking may be preauthorized before
// matching runs, or still quoted when matching ran without an explicit
// confirm, and a won offer must assign it from any of those states.
func BookingAssignable(status string) bool {
	switch status {
	case BookingQuoted, BookingMatching, BookingPreauthorized:
		return true
	}
	return false
}

// Booking is one protection request: a client (possibly anonymous)
// asking for coverage over a time window in a city.
//
// Fields:
//  ID              – primary key (uuid).
//  ClientID        – requesting client; nil for anonymous leads.
//  City            – canonical city code (e.g. CDMX, GDL, MTY).
//  Tier            – service tier selecting the rate card.
//  ArmedRequired   – whether an armed guard is required.
//  VehicleRequired – whether a vehicle is part of the engagement.
//  VehicleType     – requested vehicle type (nullable).
//  StartTS/EndTS   – engagement window; EndTS is strictly after StartTS.
//  OriginLat/Lng   – pickup coordinates (nullable).
//  DestLat/Lng     – destination coordinates (nullable).
//  PickupAddress   – free-text pickup address (nullable).
//  Notes           – free-text notes (nullable).
//  Status          – see the booking status constants.
type Booking struct {
	ID              string     // bookings.id
	ClientID        *string    // bookings.client_id (nullable)
	City            string     // bookings.city
	Tier            string     // bookings.tier
	ArmedRequired   bool       // bookings.armed_required
	VehicleRequired bool       // bookings.vehicle_required
	VehicleType     *string    // bookings.vehicle_type (nullable)
	StartTS         time.Time  // bookings.start_ts
	EndTS           time.Time  // bookings.end_ts
	OriginLat       *float64   // bookings.origin_lat (nullable)
	OriginLng       *float64   // bookings.origin_lng (nullable)
	DestLat         *float64   // bookings.dest_lat (nullable)
	DestLng         *float64   // bookings.dest_lng (nullable)
	PickupAddress   *string    // bookings.pickup_address (nullable)
	Notes           *string    // bookings.notes (nullable)
	Status          string     // bookings.status
	CreatedAt       time.Time  // bookings.created_at
	UpdatedAt       time.Time  // bookings.updated_at
}
