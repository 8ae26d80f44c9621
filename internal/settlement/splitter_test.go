package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/escolta-mx/booking-api/internal/stripe"
)

const testSecret = "whsec_test"

// fakeProcessor records transfers in order and deduplicates on the
// idempotency key, mimicking the processor's replay behavior.
type fakeProcessor struct {
	transfers []stripe.TransferRequest
	byKey     map[string]*stripe.Transfer
	failAfter int // fail the Nth transfer (1-based); 0 disables
	expanded  *stripe.PaymentIntent
	expandErr error
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{byKey: map[string]*stripe.Transfer{}}
}

func (f *fakeProcessor) CreateTransfer(_ context.Context, req stripe.TransferRequest) (*stripe.Transfer, error) {
	if prev, ok := f.byKey[req.IdempotencyKey]; ok {
		return prev, nil
	}
	if f.failAfter > 0 && len(f.transfers)+1 >= f.failAfter {
		return nil, errors.New("processor unavailable")
	}
	f.transfers = append(f.transfers, req)
	tr := &stripe.Transfer{ID: fmt.Sprintf("tr_%d", len(f.transfers)), Amount: req.Amount}
	f.byKey[req.IdempotencyKey] = tr
	return tr, nil
}

func (f *fakeProcessor) ExpandEvent(context.Context, string) (*stripe.PaymentIntent, error) {
	if f.expandErr != nil {
		return nil, f.expandErr
	}
	return f.expanded, nil
}

func newSplitter(client TransfersClient) *Splitter {
	return &Splitter{
		WebhookSecret: testSecret,
		Defaults:      defaultBps(),
		Dest: Destinations{
			Taxes:       "acct_tax",
			Fees:        "acct_fees",
			Freelancers: "acct_free",
			Companies:   "acct_co",
		},
		Client: client,
	}
}

// signedEvent builds a snapshot capture event body and its signature
// header.
func signedEvent(t *testing.T, eventType string, pi map[string]any) ([]byte, string) {
	t.Helper()
	object, err := json.Marshal(pi)
	if err != nil {
		t.Fatalf("marshal intent: %v", err)
	}
	body, err := json.Marshal(map[string]any{
		"id":   "evt_1",
		"type": eventType,
		"data": map[string]any{"object": json.RawMessage(object)},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	ts := "1767200000"
	sig := stripe.SignPayload(testSecret, ts, body)
	return body, "t=" + ts + ",v1=" + sig
}

func capturedIntent(amount int64) map[string]any {
	return map[string]any{
		"id":              "pi_1",
		"object":          "payment_intent",
		"amount":          amount,
		"amount_received": amount,
		"currency":        "mxn",
		"metadata":        map[string]string{"booking_id": "bk_1"},
		"transfer_group":  "bk_1",
	}
}

func TestHandleWebhookSplitsCapture(t *testing.T) {
	t.Parallel()

	proc := newFakeProcessor()
	s := newSplitter(proc)
	body, header := signedEvent(t, stripe.EventCaptureSucceeded, capturedIntent(10_000))

	res, err := s.HandleWebhook(context.Background(), body, header)
	if err != nil {
		t.Fatalf("HandleWebhook returned error: %v", err)
	}
	if res.BookingID != "bk_1" {
		t.Fatalf("BookingID = %q, want bk_1", res.BookingID)
	}
	if res.Partial || res.Ignored != "" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(proc.transfers) != 4 {
		t.Fatalf("issued %d transfers, want 4", len(proc.transfers))
	}

	wantKeys := []string{"bk_1:taxes", "bk_1:fees", "bk_1:freelancers", "bk_1:companies"}
	wantAmounts := []int64{1600, 1000, 6000, 1400}
	for i, tr := range proc.transfers {
		if tr.IdempotencyKey != wantKeys[i] {
			t.Fatalf("transfer %d key = %q, want %q", i, tr.IdempotencyKey, wantKeys[i])
		}
		if tr.Amount != wantAmounts[i] {
			t.Fatalf("transfer %d amount = %d, want %d", i, tr.Amount, wantAmounts[i])
		}
		if tr.TransferGroup != "bk_1" {
			t.Fatalf("transfer %d group = %q, want bk_1", i, tr.TransferGroup)
		}
	}
}

func TestHandleWebhookReplayIsDeduplicated(t *testing.T) {
	t.Parallel()

	proc := newFakeProcessor()
	s := newSplitter(proc)
	body, header := signedEvent(t, stripe.EventCaptureSucceeded, capturedIntent(10_000))

	for i := 0; i < 3; i++ {
		if _, err := s.HandleWebhook(context.Background(), body, header); err != nil {
			t.Fatalf("delivery %d returned error: %v", i, err)
		}
	}
	// The fake deduplicates on idempotency keys exactly like the
	// processor: three deliveries still move money only once per bucket.
	if len(proc.transfers) != 4 {
		t.Fatalf("issued %d transfers across replays, want 4", len(proc.transfers))
	}
}

func TestHandleWebhookRejectsTamperedBody(t *testing.T) {
	t.Parallel()

	proc := newFakeProcessor()
	s := newSplitter(proc)
	body, header := signedEvent(t, stripe.EventCaptureSucceeded, capturedIntent(10_000))

	tampered := append([]byte{}, body...)
	tampered[len(tampered)-2] ^= 0xff

	_, err := s.HandleWebhook(context.Background(), tampered, header)
	if !errors.Is(err, stripe.ErrBadSignature) {
		t.Fatalf("error = %v, want ErrBadSignature", err)
	}
	if len(proc.transfers) != 0 {
		t.Fatal("transfers issued for a tampered payload")
	}
}

func TestHandleWebhookIgnoresOtherEvents(t *testing.T) {
	t.Parallel()

	proc := newFakeProcessor()
	s := newSplitter(proc)
	body, header := signedEvent(t, "payment_intent.created", capturedIntent(10_000))

	res, err := s.HandleWebhook(context.Background(), body, header)
	if err != nil {
		t.Fatalf("HandleWebhook returned error: %v", err)
	}
	if res.Ignored != "payment_intent.created" {
		t.Fatalf("Ignored = %q", res.Ignored)
	}
	if len(proc.transfers) != 0 {
		t.Fatal("transfers issued for an ignored event")
	}
}

func TestHandleWebhookPartialFailure(t *testing.T) {
	t.Parallel()

	proc := newFakeProcessor()
	proc.failAfter = 3 // taxes and fees succeed, freelancers fails
	s := newSplitter(proc)
	body, header := signedEvent(t, stripe.EventCaptureSucceeded, capturedIntent(10_000))

	res, err := s.HandleWebhook(context.Background(), body, header)
	if err != nil {
		t.Fatalf("HandleWebhook returned error: %v", err)
	}
	if !res.Partial {
		t.Fatal("expected a partial result")
	}
	if len(res.Transfers) != 2 {
		t.Fatalf("partial result lists %d transfers, want 2", len(res.Transfers))
	}
	if res.Transfers[0].Label != BucketTaxes || res.Transfers[1].Label != BucketFees {
		t.Fatalf("unexpected completed buckets: %+v", res.Transfers)
	}
	if res.Err == nil {
		t.Fatal("partial result carries no error")
	}
}

func TestHandleWebhookSnapshotOverridesDefaults(t *testing.T) {
	t.Parallel()

	proc := newFakeProcessor()
	s := newSplitter(proc)
	pi := capturedIntent(10_000)
	pi["metadata"] = map[string]string{
		"booking_id":      "bk_1",
		"splits_bps_json": `{"tax_bps":0,"fee_bps":0,"freelancer_bps":10000,"company_bps":0}`,
	}
	body, header := signedEvent(t, stripe.EventCaptureSucceeded, pi)

	res, err := s.HandleWebhook(context.Background(), body, header)
	if err != nil {
		t.Fatalf("HandleWebhook returned error: %v", err)
	}
	// Zero-amount buckets are skipped entirely.
	if len(res.Transfers) != 1 {
		t.Fatalf("issued %d transfers, want 1: %+v", len(res.Transfers), res.Transfers)
	}
	if res.Transfers[0].Label != BucketFreelancers || res.Transfers[0].Amount != 10_000 {
		t.Fatalf("unexpected transfer: %+v", res.Transfers[0])
	}
}

func TestHandleWebhookBadSnapshotFallsBack(t *testing.T) {
	t.Parallel()

	proc := newFakeProcessor()
	s := newSplitter(proc)
	pi := capturedIntent(10_000)
	pi["metadata"] = map[string]string{
		"booking_id":      "bk_1",
		"splits_bps_json": `{"tax_bps":9999}`,
	}
	body, header := signedEvent(t, stripe.EventCaptureSucceeded, pi)

	res, err := s.HandleWebhook(context.Background(), body, header)
	if err != nil {
		t.Fatalf("HandleWebhook returned error: %v", err)
	}
	if len(res.Transfers) != 4 {
		t.Fatalf("issued %d transfers, want 4 from defaults", len(res.Transfers))
	}
}

func TestHandleWebhookThinPayloadExpands(t *testing.T) {
	t.Parallel()

	proc := newFakeProcessor()
	proc.expanded = &stripe.PaymentIntent{
		ID:             "pi_9",
		Object:         "payment_intent",
		AmountReceived: 5000,
		Currency:       "mxn",
		TransferGroup:  "bk_9",
	}
	s := newSplitter(proc)

	body, err := json.Marshal(map[string]any{"id": "evt_9", "type": stripe.EventCaptureSucceeded})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	ts := "1767200000"
	header := "t=" + ts + ",v1=" + stripe.SignPayload(testSecret, ts, body)

	res, err := s.HandleWebhook(context.Background(), body, header)
	if err != nil {
		t.Fatalf("HandleWebhook returned error: %v", err)
	}
	// No metadata on the expanded intent, so the transfer group names the
	// booking.
	if res.BookingID != "bk_9" {
		t.Fatalf("BookingID = %q, want bk_9", res.BookingID)
	}
	var sum int64
	for _, tr := range res.Transfers {
		sum += tr.Amount
	}
	if sum != 5000 {
		t.Fatalf("transfers sum to %d, want 5000", sum)
	}
}

func TestHandleWebhookThinPayloadExpansionFails(t *testing.T) {
	t.Parallel()

	proc := newFakeProcessor()
	proc.expandErr = errors.New("no api key")
	s := newSplitter(proc)

	body, err := json.Marshal(map[string]any{"id": "evt_9", "type": stripe.EventCaptureSucceeded})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	ts := "1767200000"
	header := "t=" + ts + ",v1=" + stripe.SignPayload(testSecret, ts, body)

	if _, err := s.HandleWebhook(context.Background(), body, header); err == nil {
		t.Fatal("expected a hard failure when expansion is impossible")
	}
	if len(proc.transfers) != 0 {
		t.Fatal("transfers issued without a trusted amount")
	}
}
