package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/escolta-mx/booking-api/internal/audit"
	"github.com/escolta-mx/booking-api/internal/geo"
	mw "github.com/escolta-mx/booking-api/internal/middleware"
	"github.com/escolta-mx/booking-api/internal/model"
	"github.com/escolta-mx/booking-api/internal/pricing"
	"github.com/escolta-mx/booking-api/internal/repository"
)

// PricingHandler serves quote computation and quote snapshot
// persistence.  Quoting never writes: the calculator is pure and the
// rate card is the only input besides the request.  Snapshots are
// persisted separately so settlement can reconcile against the price
// the client actually saw.
type PricingHandler struct {
	Rules    *repository.PricingRuleRepo // rate card lookups
	Quotes   *repository.QuoteRepo       // quote snapshot upserts
	Bookings *repository.BookingRepo     // existence checks for snapshots
	Audit    *audit.Logger               // best-effort audit trail
}

// NewPricingHandler constructs a PricingHandler with the provided
// dependencies.  Rules must be non-nil.
func NewPricingHandler(rules *repository.PricingRuleRepo, quotes *repository.QuoteRepo, bookings *repository.BookingRepo, auditLog *audit.Logger) *PricingHandler {
	if rules == nil {
		panic("nil rule repository passed to NewPricingHandler")
	}
	return &PricingHandler{Rules: rules, Quotes: quotes, Bookings: bookings, Audit: auditLog}
}

// pricingRequest is the wire form of a quote computation.  City may be
// omitted when origin coordinates fall inside a known service area.
type pricingRequest struct {
	City            string   `json:"city"`
	Tier            string   `json:"tier"`
	ArmedRequired   bool     `json:"armed_required"`
	VehicleRequired bool     `json:"vehicle_required"`
	VehicleType     string   `json:"vehicle_type"`
	StartTS         string   `json:"start_ts"`
	EndTS           string   `json:"end_ts"`
	OriginLat       *float64 `json:"origin_lat"`
	OriginLng       *float64 `json:"origin_lng"`
	SurgeMult       float64  `json:"surge_mult"`
}

// Price handles POST /v1/pricing.  It resolves the service city from
// the explicit field or the origin coordinates, loads the rate card for
// (city, tier) and returns the computed quote.  Nothing is persisted.
// Returns 400 for malformed input or an inverted time window, 404 when
// no rate card covers the city/tier pair.
func (h *PricingHandler) Price(c echo.Context) error {
	var body pricingRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if !model.ValidTier(body.Tier) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tier"})
	}
	start, err := time.Parse(time.RFC3339, body.StartTS)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_ts must be RFC3339"})
	}
	end, err := time.Parse(time.RFC3339, body.EndTS)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_ts must be RFC3339"})
	}

	city := geo.ResolveCity(body.City, body.OriginLat, body.OriginLng)
	if city == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "city is required or coordinates must fall in a service area"})
	}

	ctx := c.Request().Context()
	rule, err := h.Rules.GetByCityTier(ctx, city, body.Tier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no pricing rule for city/tier"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	res, err := pricing.Quote(pricing.Request{
		City:            city,
		Tier:            body.Tier,
		ArmedRequired:   body.ArmedRequired,
		VehicleRequired: body.VehicleRequired,
		VehicleType:     body.VehicleType,
		StartTS:         start,
		EndTS:           end,
		SurgeMult:       body.SurgeMult,
	}, rule)
	if err != nil {
		if errors.Is(err, pricing.ErrInvalidTimeRange) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_ts must be after start_ts"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "pricing failed"})
	}

	h.Audit.Log(ctx, "pricing", mw.Actor(c), "quote_computed", map[string]any{
		"city": city, "tier": body.Tier, "quote_amount": res.QuoteAmount,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"city":           city,
		"quote_amount":   res.QuoteAmount,
		"currency":       res.Currency,
		"min_hours":      res.MinHours,
		"surge_mult":     res.SurgeMult,
		"preauth_amount": res.PreauthAmount,
	})
}

// SaveQuote handles POST /v1/quotes.  It persists the quote snapshot
// for a booking, replacing any previous snapshot for the same booking
// id.  The booking must exist.
func (h *PricingHandler) SaveQuote(c echo.Context) error {
	var body struct {
		BookingID     string  `json:"booking_id"`
		QuoteAmount   int64   `json:"quote_amount"`
		PreauthAmount int64   `json:"preauth_amount"`
		Currency      string  `json:"currency"`
		MinHours      int64   `json:"min_hours"`
		SurgeMult     float64 `json:"surge_mult"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.BookingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_id is required"})
	}
	if body.QuoteAmount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quote_amount must be positive"})
	}

	ctx := c.Request().Context()
	if _, err := h.Bookings.GetByID(ctx, body.BookingID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	currency := body.Currency
	if currency == "" {
		currency = "MXN"
	}
	q := &model.Quote{
		BookingID:     body.BookingID,
		QuoteAmount:   body.QuoteAmount,
		PreauthAmount: body.PreauthAmount,
		Currency:      currency,
		MinHours:      body.MinHours,
		SurgeMult:     body.SurgeMult,
	}
	if err := h.Quotes.Upsert(ctx, q); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save quote"})
	}

	h.Audit.Log(ctx, "quotes", mw.Actor(c), "quote_saved", map[string]any{
		"booking_id": body.BookingID, "quote_amount": body.QuoteAmount,
	})

	return c.JSON(http.StatusOK, echo.Map{"ok": true, "booking_id": body.BookingID})
}
