package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/escolta-mx/booking-api/internal/model"
)

// PricingRuleRepo reads the rate card.  Rules are keyed uniquely by
// (city, tier); lookups are case-insensitive because city codes arrive
// from both geofence derivation (upper case) and free-text input.
type PricingRuleRepo struct {
	db *sql.DB
}

// NewPricingRuleRepo returns a new PricingRuleRepo bound to the given
// database.
func NewPricingRuleRepo(db *sql.DB) *PricingRuleRepo { return &PricingRuleRepo{db: db} }

// GetByCityTier returns the rule for the pair or ErrNotFound.  Absence
// is a hard failure for pricing: there is no fallback rate.
func (r *PricingRuleRepo) GetByCityTier(ctx context.Context, city, tier string) (*model.PricingRule, error) {
	const q = `SELECT id, city, tier, base_rate_guard, armed_multiplier,
					  vehicle_rate_suv, vehicle_rate_armored, min_hours, currency, created_at
			   FROM pricing_rules
			   WHERE LOWER(city) = LOWER(?) AND LOWER(tier) = LOWER(?)
			   LIMIT 1`
	var rule model.PricingRule
	err := r.db.QueryRowContext(ctx, q, city, tier).Scan(
		&rule.ID, &rule.City, &rule.Tier, &rule.BaseRateGuard, &rule.ArmedMultiplier,
		&rule.VehicleRateSUV, &rule.VehicleRateArmored, &rule.MinHours, &rule.Currency, &rule.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}
