package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/escolta-mx/booking-api/internal/audit"
	"github.com/escolta-mx/booking-api/internal/config"
	"github.com/escolta-mx/booking-api/internal/repository"
	"github.com/escolta-mx/booking-api/internal/settlement"
	"github.com/escolta-mx/booking-api/internal/stripe"
)

const webhookSecret = "whsec_test"

// fakeTransfers satisfies settlement.TransfersClient without any
// network.
type fakeTransfers struct {
	created []stripe.TransferRequest
}

func (f *fakeTransfers) CreateTransfer(_ context.Context, req stripe.TransferRequest) (*stripe.Transfer, error) {
	f.created = append(f.created, req)
	return &stripe.Transfer{ID: fmt.Sprintf("tr_%d", len(f.created)), Amount: req.Amount}, nil
}

func (f *fakeTransfers) ExpandEvent(context.Context, string) (*stripe.PaymentIntent, error) {
	return nil, fmt.Errorf("not expected in this test")
}

func newWebhookHandler(client settlement.TransfersClient) *PaymentsHandler {
	splitter := &settlement.Splitter{
		WebhookSecret: webhookSecret,
		Defaults:      settlement.SplitBps{TaxBps: 1600, FeeBps: 1000, FreelancerBps: 6000, CompanyBps: 1400},
		Dest: settlement.Destinations{
			Taxes: "acct_tax", Fees: "acct_fees", Freelancers: "acct_free", Companies: "acct_co",
		},
		Client: client,
	}
	return NewPaymentsHandler(
		repository.NewBookingRepo(nil),
		repository.NewPaymentRepo(nil),
		repository.NewQuoteRepo(nil),
		splitter,
		nil,
		config.PaymentsConfig{WebhookSecret: webhookSecret},
		audit.NewLogger(nil),
	)
}

func postWebhook(t *testing.T, h *PaymentsHandler, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/webhook", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	if err := h.Webhook(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Webhook returned error: %v", err)
	}
	return rec
}

func signedCapture(t *testing.T, eventType string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":   "evt_1",
		"type": eventType,
		"data": map[string]any{
			"object": map[string]any{
				"id":              "pi_1",
				"object":          "payment_intent",
				"amount":          10000,
				"amount_received": 10000,
				"currency":        "mxn",
				"metadata":        map[string]string{"booking_id": "bk_1"},
				"transfer_group":  "bk_1",
			},
		},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return body
}

func sign(body []byte) string {
	ts := "1767200000"
	return "t=" + ts + ",v1=" + stripe.SignPayload(webhookSecret, ts, body)
}

func TestWebhookSettlesCapture(t *testing.T) {
	t.Parallel()

	client := &fakeTransfers{}
	h := newWebhookHandler(client)
	body := signedCapture(t, stripe.EventCaptureSucceeded)

	rec := postWebhook(t, h, body, sign(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	var out struct {
		OK        bool   `json:"ok"`
		BookingID string `json:"booking_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !out.OK || out.BookingID != "bk_1" {
		t.Fatalf("response = %s", rec.Body)
	}
	if len(client.created) != 4 {
		t.Fatalf("issued %d transfers, want 4", len(client.created))
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	t.Parallel()

	client := &fakeTransfers{}
	h := newWebhookHandler(client)
	body := signedCapture(t, stripe.EventCaptureSucceeded)

	for _, sig := range []string{"", "t=1,v1=deadbeef", "garbage"} {
		rec := postWebhook(t, h, body, sig)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("signature %q: status = %d, want 400", sig, rec.Code)
		}
	}
	if len(client.created) != 0 {
		t.Fatal("transfers issued for unauthenticated deliveries")
	}
}

func TestWebhookAcknowledgesIgnoredEvents(t *testing.T) {
	t.Parallel()

	client := &fakeTransfers{}
	h := newWebhookHandler(client)
	body := signedCapture(t, "charge.refunded")

	rec := postWebhook(t, h, body, sign(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out struct {
		OK      bool   `json:"ok"`
		Ignored string `json:"ignored"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !out.OK || out.Ignored != "charge.refunded" {
		t.Fatalf("response = %s", rec.Body)
	}
	if len(client.created) != 0 {
		t.Fatal("transfers issued for an ignored event")
	}
}
