package model

import "time"

// PricingRule is one row of the rate card, keyed uniquely by
// (city, tier).  Rates are in the smallest currency unit per hour.
// Pricing fails closed when no rule exists for the pair: there is no
// default or guessed rate in production paths.
type PricingRule struct {
	ID                 uint64    // pricing_rules.id
	City               string    // pricing_rules.city
	Tier               string    // pricing_rules.tier
	BaseRateGuard      int64     // pricing_rules.base_rate_guard
	ArmedMultiplier    float64   // pricing_rules.armed_multiplier
	VehicleRateSUV     int64     // pricing_rules.vehicle_rate_suv
	VehicleRateArmored int64     // pricing_rules.vehicle_rate_armored
	MinHours           int64     // pricing_rules.min_hours
	Currency           string    // pricing_rules.currency
	CreatedAt          time.Time // pricing_rules.created_at
}

// Quote is the persisted snapshot of one pricing computation, tied 1:1
// to a booking (upsert by booking id).  Settlement reconciles against
// this snapshot rather than re-deriving the price at payment time.
type Quote struct {
	BookingID     string    // quotes.booking_id (unique)
	QuoteAmount   int64     // quotes.quote_amount
	PreauthAmount int64     // quotes.preauth_amount
	Currency      string    // quotes.currency
	MinHours      int64     // quotes.min_hours
	SurgeMult     float64   // quotes.surge_mult
	CreatedAt     time.Time // quotes.created_at
}
