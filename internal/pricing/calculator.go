// Package pricing computes quotes for protection bookings.  The
// calculator is a pure function over a rate-card snapshot: identical
// inputs always produce identical output and nothing is persisted here.
package pricing

import (
	"errors"
	"math"
	"time"

	"github.com/escolta-mx/booking-api/internal/model"
)

// Sentinel errors returned by Quote.  Handlers translate
// ErrInvalidTimeRange to 400 and ErrRuleNotFound to 404; neither is
// retryable without changing the request.
var (
	ErrInvalidTimeRange = errors.New("end must be after start")
	ErrRuleNotFound     = errors.New("pricing rule not found for city/tier")
)

// The preauthorization hold is sized 10% above the quote to cover
// overage during the engagement.
const preauthBufferMult = 1.10

// Request carries the booking parameters that influence price.  City
// and Tier select the rate card; the rest shape the amount.
type Request struct {
	City            string
	Tier            string
	ArmedRequired   bool
	VehicleRequired bool
	VehicleType     string
	StartTS         time.Time
	EndTS           time.Time
	SurgeMult       float64 // 0 means the default of 1.0
}

// Result is the quote produced for a request.  Amounts are integers in
// the smallest unit of Currency.
type Result struct {
	QuoteAmount   int64   `json:"quote_amount"`
	Currency      string  `json:"currency"`
	MinHours      int64   `json:"min_hours"`
	SurgeMult     float64 `json:"surge_mult"`
	PreauthAmount int64   `json:"preauth_amount"`
}

// BillableHours rounds the window up to whole hours and clamps it to
// the rule's minimum.  Whole-hour ceiling is the billing policy: a
// 2h01m window bills 3 hours, and any window shorter than minHours
// bills exactly minHours.
func BillableHours(start, end time.Time, minHours int64) int64 {
	raw := int64(math.Ceil(end.Sub(start).Hours()))
	if raw < minHours {
		return minHours
	}
	return raw
}

// Quote prices a request against the given rate card.  It validates
// the time window, derives billable hours, applies the armed multiplier
// to the guard rate, adds the vehicle rate when requested and scales by
// the surge multiplier.  The preauth amount adds the fixed overage
// buffer on top of the quote.
func Quote(req Request, rule *model.PricingRule) (Result, error) {
	if !req.EndTS.After(req.StartTS) {
		return Result{}, ErrInvalidTimeRange
	}
	if rule == nil {
		return Result{}, ErrRuleNotFound
	}

	surge := req.SurgeMult
	if surge <= 0 {
		surge = 1.0
	}

	hours := BillableHours(req.StartTS, req.EndTS, rule.MinHours)

	guardHourly := float64(rule.BaseRateGuard)
	if req.ArmedRequired {
		guardHourly = math.Round(guardHourly * rule.ArmedMultiplier)
	}
	guardCost := guardHourly * float64(hours)

	var vehicleCost float64
	if req.VehicleRequired {
		rate := rule.VehicleRateSUV
		if req.VehicleType == "armored_suv" {
			rate = rule.VehicleRateArmored
		}
		vehicleCost = float64(rate) * float64(hours)
	}

	quote := int64(math.Round((guardCost + vehicleCost) * surge))
	preauth := int64(math.Round(float64(quote) * preauthBufferMult))

	return Result{
		QuoteAmount:   quote,
		Currency:      rule.Currency,
		MinHours:      rule.MinHours,
		SurgeMult:     surge,
		PreauthAmount: preauth,
	}, nil
}
