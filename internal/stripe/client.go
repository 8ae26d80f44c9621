package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNoSecret is returned when an API call is attempted without a
// configured secret key.  Settlement treats this as a hard failure: a
// thin payload without credentials to expand it must never be guessed
// at.
var ErrNoSecret = errors.New("stripe secret key not configured")

const apiBase = "https://api.stripe.com"

// Client issues authenticated calls against the processor's REST API.
// The zero SecretKey disables the client; every call then fails with
// ErrNoSecret.
type Client struct {
	SecretKey string
	BaseURL   string
	HTTP      *http.Client
}

// NewClient builds a Client with a conservative request timeout.  An
// empty secret is allowed so callers can construct the client
// unconditionally and fail per call.
func NewClient(secretKey string) *Client {
	return &Client{
		SecretKey: secretKey,
		BaseURL:   apiBase,
		HTTP:      &http.Client{Timeout: 15 * time.Second},
	}
}

// TransferRequest describes one split movement to a destination
// account.  IdempotencyKey must be stable across webhook redeliveries:
// the processor deduplicates on it, which is what makes settlement
// retries safe.
type TransferRequest struct {
	Amount         int64
	Currency       string
	Destination    string
	Description    string
	TransferGroup  string
	IdempotencyKey string
}

// CreateTransfer issues POST /v1/transfers with a form-encoded body and
// the idempotency key header.  The processor's error body is folded
// into the returned error.
func (c *Client) CreateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	if c.SecretKey == "" {
		return nil, ErrNoSecret
	}
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.Amount, 10))
	form.Set("currency", req.Currency)
	form.Set("destination", req.Destination)
	form.Set("description", req.Description)
	form.Set("transfer_group", req.TransferGroup)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base()+"/v1/transfers", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.SecretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)

	res, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("transfer failed: %d %s", res.StatusCode, body)
	}
	var tr Transfer
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, err
	}
	return &tr, nil
}

// ExpandEvent fetches the full event by id with data.object expanded.
// Used when a webhook delivery carries a thin payload.
func (c *Client) ExpandEvent(ctx context.Context, eventID string) (*PaymentIntent, error) {
	if c.SecretKey == "" {
		return nil, ErrNoSecret
	}
	u := c.base() + "/v1/events/" + url.PathEscape(eventID) + "?expand[]=data.object"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.SecretKey)

	res, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("expand event failed: %d %s", res.StatusCode, body)
	}
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, err
	}
	pi, err := IntentFromEvent(&ev)
	if err != nil {
		return nil, err
	}
	if pi == nil {
		return nil, errors.New("expanded event missing payment intent")
	}
	return pi, nil
}

// CreateIntentRequest carries the parameters for a new payment intent.
// The splits snapshot rides along in metadata so settlement math stays
// stable even if platform-wide ratios change later.
type CreateIntentRequest struct {
	Amount        int64
	Currency      string
	BookingID     string
	City          string
	Tier          string
	ReceiptEmail  string
	SplitsBpsJSON string
}

// Intent is the subset of the created payment intent the API returns
// to clients.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

// CreateIntent issues POST /v1/payment_intents grouped under the
// booking id so downstream transfers correlate to the capture.
func (c *Client) CreateIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error) {
	if c.SecretKey == "" {
		return nil, ErrNoSecret
	}
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.Amount, 10))
	form.Set("currency", req.Currency)
	form.Set("automatic_payment_methods[enabled]", "true")
	form.Set("transfer_group", req.BookingID)
	form.Set("metadata[booking_id]", req.BookingID)
	form.Set("metadata[city]", req.City)
	form.Set("metadata[tier]", req.Tier)
	form.Set("metadata[splits_bps_json]", req.SplitsBpsJSON)
	if req.ReceiptEmail != "" {
		form.Set("receipt_email", req.ReceiptEmail)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base()+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.SecretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("create intent failed: %d %s", res.StatusCode, body)
	}
	var in Intent
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

func (c *Client) base() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return apiBase
}
