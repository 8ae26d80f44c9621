package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/escolta-mx/booking-api/internal/audit"
	"github.com/escolta-mx/booking-api/internal/metrics"
	mw "github.com/escolta-mx/booking-api/internal/middleware"
	"github.com/escolta-mx/booking-api/internal/queue"
	"github.com/escolta-mx/booking-api/internal/repository"
	queue_publisher "github.com/escolta-mx/booking-api/internal/service"
)

// JobsHandler serves the guard-side surface: the active job feed,
// offer acceptance and in-engagement status updates.
type JobsHandler struct {
	Assignments *repository.AssignmentRepo
	Bookings    *repository.BookingRepo
	Audit       *audit.Logger
}

// NewJobsHandler constructs a JobsHandler.  Repositories must be
// non-nil.
func NewJobsHandler(assignments *repository.AssignmentRepo, bookings *repository.BookingRepo, auditLog *audit.Logger) *JobsHandler {
	if assignments == nil || bookings == nil {
		panic("nil repository passed to NewJobsHandler")
	}
	return &JobsHandler{Assignments: assignments, Bookings: bookings, Audit: auditLog}
}

// List handles GET /v1/jobs/list.  It returns the guard's active
// assignments joined with booking details, newest first.  The guard id
// comes from the authenticated caller, with an explicit guard_id query
// parameter as an override for operator tooling.
func (h *JobsHandler) List(c echo.Context) error {
	guardID := c.QueryParam("guard_id")
	if guardID == "" {
		guardID = mw.UserID(c)
	}
	if guardID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "guard_id is required"})
	}
	items, err := h.Assignments.ListActiveByGuard(c.Request().Context(), guardID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"jobs": items})
}

// Accept handles POST /v1/jobs/accept.  The first guard to accept an
// offered assignment wins it: the assignment moves to accepted and the
// parent booking to assigned in the same transaction.  A retried
// accept, or an accept that lost the race, returns the row's current
// status without error so guard apps can treat the call as idempotent.
func (h *JobsHandler) Accept(c echo.Context) error {
	var body struct {
		AssignmentID string `json:"assignment_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.AssignmentID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "assignment_id is required"})
	}

	ctx := c.Request().Context()
	res, err := h.Assignments.Accept(ctx, h.Bookings, body.AssignmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "assignment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	if res.Accepted {
		metrics.AssignmentsAcceptedTotal.Inc()
		h.publishAssigned(ctx, body.AssignmentID, res.BookingID)
	}

	h.Audit.Log(ctx, "jobs", mw.Actor(c), "offer_accepted", map[string]any{
		"assignment_id": body.AssignmentID, "booking_id": res.BookingID,
		"accepted": res.Accepted, "status": res.Status,
	})

	return c.JSON(http.StatusOK, echo.Map{"ok": true, "status": res.Status})
}

// publishAssigned emits the booking.assigned broker event for a won
// offer.  Publishing is fire-and-forget on its own deadline: the
// acceptance already committed and must not be failed or delayed by
// broker trouble.
func (h *JobsHandler) publishAssigned(ctx context.Context, assignmentID, bookingID string) {
	a, err := h.Assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return
	}
	b, err := h.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return
	}
	ev := queue.BookingAssignedEvent{
		BookingID:    b.ID,
		AssignmentID: a.ID,
		GuardID:      a.GuardID,
		City:         b.City,
		Tier:         b.Tier,
		StartTS:      b.StartTS.UTC().Format(time.RFC3339),
		EndTS:        b.EndTS.UTC().Format(time.RFC3339),
		AssignedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		pctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = queue_publisher.PublishBookingAssigned(pctx, ev)
	}()
}

// UpdateStatus handles POST /v1/jobs/status.  It applies one of the
// allow-listed engagement statuses (check_in, on_site, in_progress,
// check_out, completed) and stamps the matching phase timestamp.
// Unknown statuses return 400; phase order between the allow-listed
// values is not enforced.
func (h *JobsHandler) UpdateStatus(c echo.Context) error {
	var body struct {
		AssignmentID string `json:"assignment_id"`
		Status       string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.AssignmentID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "assignment_id is required"})
	}

	ctx := c.Request().Context()
	err := h.Assignments.UpdateStatus(ctx, body.AssignmentID, body.Status)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidTransition):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "assignment not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}

	h.Audit.Log(ctx, "jobs", mw.Actor(c), "status_updated", map[string]any{
		"assignment_id": body.AssignmentID, "status": body.Status,
	})

	return c.JSON(http.StatusOK, echo.Map{"ok": true, "status": body.Status})
}
