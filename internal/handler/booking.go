package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/escolta-mx/booking-api/internal/audit"
	"github.com/escolta-mx/booking-api/internal/geo"
	"github.com/escolta-mx/booking-api/internal/metrics"
	mw "github.com/escolta-mx/booking-api/internal/middleware"
	"github.com/escolta-mx/booking-api/internal/model"
	"github.com/escolta-mx/booking-api/internal/repository"
)

// BookingHandler owns the client-facing booking lifecycle: creation in
// status quoted, confirmation into matching, retrieval and
// cancellation.  Later transitions belong to the matching and payment
// handlers.
type BookingHandler struct {
	Bookings *repository.BookingRepo
	Audit    *audit.Logger
}

// NewBookingHandler constructs a BookingHandler.  Bookings must be
// non-nil.
func NewBookingHandler(bookings *repository.BookingRepo, auditLog *audit.Logger) *BookingHandler {
	if bookings == nil {
		panic("nil booking repository passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: bookings, Audit: auditLog}
}

// Create handles POST /v1/bookings.  It validates the request, derives
// the service city from origin coordinates when they fall inside a
// geofence and inserts the booking in status quoted.  The response is
// {"ok": true, "booking_id": "..."} with 201 Created.
func (h *BookingHandler) Create(c echo.Context) error {
	var body struct {
		City            string   `json:"city"`
		Tier            string   `json:"tier"`
		ArmedRequired   bool     `json:"armed_required"`
		VehicleRequired bool     `json:"vehicle_required"`
		VehicleType     *string  `json:"vehicle_type"`
		StartTS         string   `json:"start_ts"`
		EndTS           string   `json:"end_ts"`
		OriginLat       *float64 `json:"origin_lat"`
		OriginLng       *float64 `json:"origin_lng"`
		DestLat         *float64 `json:"dest_lat"`
		DestLng         *float64 `json:"dest_lng"`
		PickupAddress   *string  `json:"pickup_address"`
		Notes           *string  `json:"notes"`
	}
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
	if !end.After(start) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_ts must be after start_ts"})
	}

	city := geo.ResolveCity(body.City, body.OriginLat, body.OriginLng)
	if city == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "city is required or coordinates must fall in a service area"})
	}

	b := &model.Booking{
		City:            city,
		Tier:            body.Tier,
		ArmedRequired:   body.ArmedRequired,
		VehicleRequired: body.VehicleRequired,
		VehicleType:     body.VehicleType,
		StartTS:         start,
		EndTS:           end,
		OriginLat:       body.OriginLat,
		OriginLng:       body.OriginLng,
		DestLat:         body.DestLat,
		DestLng:         body.DestLng,
		PickupAddress:   body.PickupAddress,
		Notes:           body.Notes,
	}
	if uid := mw.UserID(c); uid != "" {
		b.ClientID = &uid
	}

	ctx := c.Request().Context()
	if err := h.Bookings.Create(ctx, b); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create booking"})
	}

	metrics.BookingsCreatedTotal.Inc()
	h.Audit.Log(ctx, "bookings", mw.Actor(c), "booking_created", map[string]any{
		"booking_id": b.ID, "city": city, "tier": b.Tier,
	})

	return c.JSON(http.StatusCreated, echo.Map{"ok": true, "booking_id": b.ID})
}

// Get handles GET /v1/bookings/:id and returns the full booking row.
func (h *BookingHandler) Get(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking id is required"})
	}
	b, err := h.Bookings.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":               b.ID,
		"client_id":        b.ClientID,
		"city":             b.City,
		"tier":             b.Tier,
		"armed_required":   b.ArmedRequired,
		"vehicle_required": b.VehicleRequired,
		"vehicle_type":     b.VehicleType,
		"start_ts":         b.StartTS.UTC().Format(time.RFC3339),
		"end_ts":           b.EndTS.UTC().Format(time.RFC3339),
		"origin_lat":       b.OriginLat,
		"origin_lng":       b.OriginLng,
		"dest_lat":         b.DestLat,
		"dest_lng":         b.DestLng,
		"pickup_address":   b.PickupAddress,
		"notes":            b.Notes,
		"status":           b.Status,
		"created_at":       b.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":       b.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

// Confirm handles POST /v1/bookings/confirm.  It moves a booking from
// quoted to matching with a conditional update, so a retried confirm
// or a concurrent writer cannot double-advance the row.  Confirming a
// booking that already left quoted is reported with its current
// status; terminal bookings return 409.
func (h *BookingHandler) Confirm(c echo.Context) error {
	var body struct {
		BookingID string `json:"booking_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.BookingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_id is required"})
	}

	ctx := c.Request().Context()
	moved, err := h.Bookings.UpdateStatus(ctx, body.BookingID, model.BookingQuoted, model.BookingMatching)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	status := model.BookingMatching
	if !moved {
		b, err := h.Bookings.GetByID(ctx, body.BookingID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		if model.BookingTerminal(b.Status) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking is " + b.Status})
		}
		// Already confirmed earlier; retries are a no-op.
		status = b.Status
	}

	h.Audit.Log(ctx, "bookings", mw.Actor(c), "booking_confirmed", map[string]any{
		"booking_id": body.BookingID, "status": status,
	})

	return c.JSON(http.StatusOK, echo.Map{"ok": true, "booking_id": body.BookingID, "status": status})
}

// Cancel handles POST /v1/bookings/cancel.  Any non-terminal booking
// may be cancelled; cancelling a terminal booking returns 409.
func (h *BookingHandler) Cancel(c echo.Context) error {
	var body struct {
		BookingID string `json:"booking_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.BookingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_id is required"})
	}

	ctx := c.Request().Context()
	cancelled, err := h.Bookings.Cancel(ctx, body.BookingID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !cancelled {
		b, err := h.Bookings.GetByID(ctx, body.BookingID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking is " + b.Status})
	}

	h.Audit.Log(ctx, "bookings", mw.Actor(c), "booking_cancelled", map[string]any{
		"booking_id": body.BookingID,
	})

	return c.JSON(http.StatusOK, echo.Map{"ok": true, "booking_id": body.BookingID, "status": model.BookingCancelled})
}
