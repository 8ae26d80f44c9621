package stripe

import "encoding/json"

// EventCaptureSucceeded is the only event type settlement acts on.
// Everything else is acknowledged so the processor stops redelivering.
const EventCaptureSucceeded = "payment_intent.succeeded"

// Event is the webhook envelope.  Data.Object is left raw because thin
// payloads omit it entirely and snapshot payloads embed the full
// payment intent.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// PaymentIntent is the captured-payment object settlement splits.
// Amounts are integers in the smallest unit of Currency.
type PaymentIntent struct {
	ID             string            `json:"id"`
	Object         string            `json:"object"`
	Amount         int64             `json:"amount"`
	AmountReceived int64             `json:"amount_received"`
	Currency       string            `json:"currency"`
	Metadata       map[string]string `json:"metadata"`
	TransferGroup  string            `json:"transfer_group"`
}

// CapturedAmount prefers amount_received over amount; a capture may be
// partial.
func (pi *PaymentIntent) CapturedAmount() int64 {
	if pi.AmountReceived > 0 {
		return pi.AmountReceived
	}
	return pi.Amount
}

// IntentFromEvent decodes the embedded payment intent from a snapshot
// payload.  It returns nil (and no error) for thin payloads so the
// caller knows to expand the event through the API.
func IntentFromEvent(ev *Event) (*PaymentIntent, error) {
	if len(ev.Data.Object) == 0 {
		return nil, nil
	}
	var pi PaymentIntent
	if err := json.Unmarshal(ev.Data.Object, &pi); err != nil {
		return nil, err
	}
	if pi.Object != "payment_intent" {
		return nil, nil
	}
	return &pi, nil
}

// Transfer is the processor's record of one outbound split movement.
type Transfer struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
}
