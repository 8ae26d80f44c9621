package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/escolta-mx/booking-api/internal/audit"
	"github.com/escolta-mx/booking-api/internal/metrics"
	mw "github.com/escolta-mx/booking-api/internal/middleware"
	"github.com/escolta-mx/booking-api/internal/model"
	"github.com/escolta-mx/booking-api/internal/repository"
)

// offerBatchSize caps how many guards receive an offer per matching
// run.  Widening happens by running matching again, not by a bigger
// first wave.
const offerBatchSize = 5

// MatchingHandler runs candidate selection for a confirmed booking and
// fans offers out to eligible guards.
type MatchingHandler struct {
	Bookings    *repository.BookingRepo
	Guards      *repository.GuardRepo
	Assignments *repository.AssignmentRepo
	Audit       *audit.Logger
}

// NewMatchingHandler constructs a MatchingHandler.  All repositories
// must be non-nil.
func NewMatchingHandler(bookings *repository.BookingRepo, guards *repository.GuardRepo, assignments *repository.AssignmentRepo, auditLog *audit.Logger) *MatchingHandler {
	if bookings == nil || guards == nil || assignments == nil {
		panic("nil repository passed to NewMatchingHandler")
	}
	return &MatchingHandler{Bookings: bookings, Guards: guards, Assignments: assignments, Audit: auditLog}
}

// Run handles POST /v1/matching.  It loads the booking, selects online
// guards in the booking's city (filtered to armed-capable guards when
// the booking requires it), takes the first batch in deterministic
// order and creates one offered assignment per guard.  A failed insert
// for one guard does not abort the run; the response lists only the
// offers that were actually created.
func (h *MatchingHandler) Run(c echo.Context) error {
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

	guards, err := h.Guards.ListOnlineByCity(ctx, b.City)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	candidates := make([]model.Guard, 0, offerBatchSize)
	for _, g := range guards {
		if b.ArmedRequired && !g.Armed() {
			continue
		}
		candidates = append(candidates, g)
		if len(candidates) == offerBatchSize {
			break
		}
	}

	offered := make([]echo.Map, 0, len(candidates))
	for _, g := range candidates {
		id, err := h.Assignments.CreateOffer(ctx, b.ID, g.ID)
		if err != nil {
			// Keep fanning out; a duplicate or transient failure for
			// one guard should not starve the rest of the batch.
			log.Printf("matching: offer to guard %s for booking %s failed: %v", g.ID, b.ID, err)
			continue
		}
		metrics.OffersCreatedTotal.Inc()
		offered = append(offered, echo.Map{"assignment_id": id, "guard_id": g.ID})
	}

	h.Audit.Log(ctx, "matching", mw.Actor(c), "offers_created", map[string]any{
		"booking_id": b.ID, "city": b.City, "offered": len(offered), "candidates": len(guards),
	})

	return c.JSON(http.StatusOK, echo.Map{
		"ok":         true,
		"booking_id": b.ID,
		"offers":     offered,
	})
}
