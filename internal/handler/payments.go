package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/escolta-mx/booking-api/internal/audit"
	"github.com/escolta-mx/booking-api/internal/config"
	"github.com/escolta-mx/booking-api/internal/metrics"
	mw "github.com/escolta-mx/booking-api/internal/middleware"
	"github.com/escolta-mx/booking-api/internal/model"
	"github.com/escolta-mx/booking-api/internal/repository"
	"github.com/escolta-mx/booking-api/internal/settlement"
	"github.com/escolta-mx/booking-api/internal/stripe"
)

// PaymentsHandler owns the money paths: preauthorization records,
// payment intent creation and the capture webhook that triggers the
// settlement split.
type PaymentsHandler struct {
	Bookings *repository.BookingRepo
	Payments *repository.PaymentRepo
	Quotes   *repository.QuoteRepo
	Splitter *settlement.Splitter
	Stripe   *stripe.Client
	Cfg      config.PaymentsConfig
	Audit    *audit.Logger
}

// NewPaymentsHandler constructs a PaymentsHandler.  Repositories and
// the splitter must be non-nil; the processor client may carry an
// empty secret in dev, in which case intent creation degrades.
func NewPaymentsHandler(bookings *repository.BookingRepo, payments *repository.PaymentRepo, quotes *repository.QuoteRepo, splitter *settlement.Splitter, client *stripe.Client, cfg config.PaymentsConfig, auditLog *audit.Logger) *PaymentsHandler {
	if bookings == nil || payments == nil || quotes == nil || splitter == nil {
		panic("nil dependency passed to NewPaymentsHandler")
	}
	return &PaymentsHandler{
		Bookings: bookings,
		Payments: payments,
		Quotes:   quotes,
		Splitter: splitter,
		Stripe:   client,
		Cfg:      cfg,
		Audit:    auditLog,
	}
}

// Preauth handles POST /v1/payments/preauth.  It records a payment row
// in status preauthorized and moves the booking from assigned to
// preauthorized.  The amount defaults to the booking's quote snapshot
// when the request omits it.  A booking already preauthorized is
// reported as ok so retries are harmless.
func (h *PaymentsHandler) Preauth(c echo.Context) error {
	var body struct {
		BookingID string `json:"booking_id"`
		Amount    int64  `json:"amount"`
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

	amount := body.Amount
	if amount <= 0 {
		q, err := h.Quotes.GetByBookingID(ctx, body.BookingID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount is required when no quote snapshot exists"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		amount = q.PreauthAmount
	}

	if b.Status == model.BookingPreauthorized {
		return c.JSON(http.StatusOK, echo.Map{"ok": true, "booking_id": b.ID, "status": b.Status})
	}

	// Preauthorization is legal from any live pre-payment status, so the
	// CAS runs from the status we just observed.
	moved, err := h.Bookings.UpdateStatus(ctx, b.ID, b.Status, model.BookingPreauthorized)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking is " + b.Status})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !moved {
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking status changed, retry"})
	}

	if err := h.Payments.CreatePreauth(ctx, b.ID, "stripe", amount); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record preauthorization"})
	}

	h.Audit.Log(ctx, "payments", mw.Actor(c), "preauthorized", map[string]any{
		"booking_id": b.ID, "amount": amount,
	})

	return c.JSON(http.StatusOK, echo.Map{"ok": true, "booking_id": b.ID, "status": model.BookingPreauthorized, "amount": amount})
}

// CreateIntent handles POST /v1/payments/intent.  It creates a
// processor payment intent for the booking's preauth amount, grouped
// under the booking id and carrying the split-ratio snapshot in
// metadata.  Without processor credentials the endpoint returns a 501
// demo response instead of failing, so the rest of the flow stays
// exercisable in dev.
func (h *PaymentsHandler) CreateIntent(c echo.Context) error {
	var body struct {
		BookingID     string `json:"booking_id"`
		Amount        int64  `json:"amount"`
		Currency      string `json:"currency"`
		CustomerEmail string `json:"customer_email"`
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

	amount := body.Amount
	currency := body.Currency
	if amount <= 0 {
		q, err := h.Quotes.GetByBookingID(ctx, b.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount is required when no quote snapshot exists"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		amount = q.PreauthAmount
		if currency == "" {
			currency = q.Currency
		}
	}
	if currency == "" {
		currency = "MXN"
	}

	if h.Cfg.SecretKey == "" || h.Stripe == nil {
		return c.JSON(http.StatusNotImplemented, echo.Map{
			"ok":    false,
			"demo":  true,
			"error": "payment processor not configured",
		})
	}

	splitsJSON, err := json.Marshal(h.Cfg.DefaultSplits)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to encode splits"})
	}

	in, err := h.Stripe.CreateIntent(ctx, stripe.CreateIntentRequest{
		Amount:        amount,
		Currency:      currency,
		BookingID:     b.ID,
		City:          b.City,
		Tier:          b.Tier,
		ReceiptEmail:  body.CustomerEmail,
		SplitsBpsJSON: string(splitsJSON),
	})
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment processor rejected the intent"})
	}

	h.Audit.Log(ctx, "payments", mw.Actor(c), "intent_created", map[string]any{
		"booking_id": b.ID, "amount": amount, "intent_id": in.ID,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"ok":              true,
		"intent_id":       in.ID,
		"client_secret":   in.ClientSecret,
		"publishable_key": h.Cfg.PublishableKey,
	})
}

// Webhook handles POST /v1/payments/webhook, the processor's capture
// notification.  The raw body is read before any parsing because the
// signature covers the exact bytes delivered.  Invalid signatures get
// 400 and no processing; non-capture events are acknowledged and
// ignored; a partial settlement still responds 200 so the processor
// redelivers and the idempotency keys settle the remaining buckets.
func (h *PaymentsHandler) Webhook(c echo.Context) error {
	rawBody, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}

	started := time.Now()
	res, err := h.Splitter.HandleWebhook(c.Request().Context(), rawBody, c.Request().Header.Get("Stripe-Signature"))
	metrics.SettlementDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		if errors.Is(err, stripe.ErrBadSignature) {
			metrics.WebhookEventsTotal.WithLabelValues("bad_signature").Inc()
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
		}
		metrics.WebhookEventsTotal.WithLabelValues("error").Inc()
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "settlement failed"})
	}

	if res.Ignored != "" {
		metrics.WebhookEventsTotal.WithLabelValues("ignored").Inc()
		return c.JSON(http.StatusOK, echo.Map{"ok": true, "ignored": res.Ignored})
	}

	for _, tr := range res.Transfers {
		metrics.TransfersIssuedTotal.WithLabelValues(tr.Label).Inc()
	}

	h.Audit.Log(c.Request().Context(), "payments", "stripe", "capture_settled", map[string]any{
		"booking_id": res.BookingID, "transfers": len(res.Transfers), "partial": res.Partial,
	})

	if res.Partial {
		metrics.WebhookEventsTotal.WithLabelValues("partial").Inc()
		return c.JSON(http.StatusOK, echo.Map{
			"ok":                false,
			"booking_id":        res.BookingID,
			"partial_transfers": res.Transfers,
		})
	}

	metrics.WebhookEventsTotal.WithLabelValues("settled").Inc()
	return c.JSON(http.StatusOK, echo.Map{
		"ok":         true,
		"booking_id": res.BookingID,
		"transfers":  res.Transfers,
	})
}
