package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/escolta-mx/booking-api/internal/stripe"
)

// TransfersClient is the outbound surface the splitter needs from the
// payment processor.  The concrete implementation is *stripe.Client;
// tests substitute a fake.
type TransfersClient interface {
	CreateTransfer(ctx context.Context, req stripe.TransferRequest) (*stripe.Transfer, error)
	ExpandEvent(ctx context.Context, eventID string) (*stripe.PaymentIntent, error)
}

// Destinations maps each bucket to its processor account.  Buckets
// without a configured destination are skipped rather than failed: a
// platform may launch before every connect account exists.
type Destinations struct {
	Taxes       string
	Fees        string
	Freelancers string
	Companies   string
}

func (d Destinations) forBucket(label string) string {
	switch label {
	case BucketTaxes:
		return d.Taxes
	case BucketFees:
		return d.Fees
	case BucketFreelancers:
		return d.Freelancers
	case BucketCompanies:
		return d.Companies
	}
	return ""
}

// BucketTransfer records one issued transfer for the settlement
// response.
type BucketTransfer struct {
	Label  string `json:"label"`
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
}

// Result is the outcome of handling one webhook delivery.  Ignored is
// set (and nothing else) for event types settlement does not act on.
// Partial is true when a transfer failed midway; Transfers then lists
// only the movements that succeeded, and the processor's redelivery
// plus the idempotency keys settle the remainder.
type Result struct {
	BookingID string
	Ignored   string
	Transfers []BucketTransfer
	Partial   bool
	Err       error
}

// Splitter verifies capture webhooks and fans the captured amount out
// to the destination accounts.
type Splitter struct {
	WebhookSecret string
	Defaults      SplitBps
	Dest          Destinations
	Client        TransfersClient
}

// HandleWebhook runs the settlement protocol over one raw delivery.
// The signature is verified against the raw body before the body is
// parsed; a stripe.ErrBadSignature error means the caller must respond
// 400 and do nothing else.
func (s *Splitter) HandleWebhook(ctx context.Context, rawBody []byte, signatureHeader string) (*Result, error) {
	header, err := stripe.ParseSignatureHeader(signatureHeader)
	if err != nil {
		return nil, err
	}
	if err := stripe.VerifySignature(s.WebhookSecret, header, rawBody); err != nil {
		return nil, err
	}

	var ev stripe.Event
	if err := json.Unmarshal(rawBody, &ev); err != nil {
		return nil, fmt.Errorf("invalid event payload: %w", err)
	}
	if ev.Type != stripe.EventCaptureSucceeded {
		return &Result{Ignored: ev.Type}, nil
	}

	pi, err := stripe.IntentFromEvent(&ev)
	if err != nil {
		return nil, fmt.Errorf("invalid payment intent payload: %w", err)
	}
	if pi == nil {
		// Thin payload: expand through the API or fail loudly.  Amounts
		// are never guessed.
		pi, err = s.Client.ExpandEvent(ctx, ev.ID)
		if err != nil {
			return nil, fmt.Errorf("expand event %s: %w", ev.ID, err)
		}
	}

	bookingID := pi.Metadata["booking_id"]
	if bookingID == "" {
		bookingID = pi.TransferGroup
	}
	if bookingID == "" {
		bookingID = pi.ID
	}

	bps := s.Defaults
	if raw := pi.Metadata["splits_bps_json"]; raw != "" {
		if snap, err := ParseSplitBps(raw); err == nil {
			bps = snap
		} else {
			log.Printf("settlement: ignoring bad splits snapshot for %s: %v", bookingID, err)
		}
	}

	amount := pi.CapturedAmount()
	currency := pi.Currency
	if currency == "" {
		currency = "mxn"
	}
	parts := ComputeSplit(amount, bps)

	res := &Result{BookingID: bookingID, Transfers: []BucketTransfer{}}
	for _, label := range bucketOrder {
		amt := parts[label]
		dest := s.Dest.forBucket(label)
		if amt <= 0 || dest == "" {
			continue
		}
		tr, err := s.Client.CreateTransfer(ctx, stripe.TransferRequest{
			Amount:        amt,
			Currency:      currency,
			Destination:   dest,
			Description:   bookingID + " / " + label,
			TransferGroup: bookingID,
			// Stable across redeliveries: the processor deduplicates on
			// this key, so a replayed webhook never double-pays a bucket.
			IdempotencyKey: bookingID + ":" + label,
		})
		if err != nil {
			res.Partial = true
			res.Err = fmt.Errorf("transfer %s: %w", label, err)
			return res, nil
		}
		res.Transfers = append(res.Transfers, BucketTransfer{Label: label, ID: tr.ID, Amount: tr.Amount})
	}
	return res, nil
}
