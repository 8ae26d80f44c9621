// Package stripe talks to the payment processor: inbound webhook
// signature verification and outbound transfer / event-expansion calls
// authenticated by the account's API secret.
package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrBadSignature is returned for missing or malformed signature
// headers and for signatures that do not match the payload.  Callers
// must reject the request before reading anything out of the body.
var ErrBadSignature = errors.New("invalid webhook signature")

// SignatureHeader is the parsed form of the Stripe-Signature header:
// comma-separated key=value pairs of which t (timestamp) and v1 (the
// HMAC) are required.
type SignatureHeader struct {
	Timestamp string
	V1        string
}

// ParseSignatureHeader splits the header into its fields.  Headers
// missing either t or v1 are rejected as malformed.
func ParseSignatureHeader(h string) (SignatureHeader, error) {
	if h == "" {
		return SignatureHeader{}, ErrBadSignature
	}
	out := map[string]string{}
	for _, part := range strings.Split(h, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) == 2 && kv[0] != "" && kv[1] != "" {
			out[kv[0]] = kv[1]
		}
	}
	if out["t"] == "" || out["v1"] == "" {
		return SignatureHeader{}, ErrBadSignature
	}
	return SignatureHeader{Timestamp: out["t"], V1: out["v1"]}, nil
}

// SignPayload computes the hex HMAC-SHA256 of "{timestamp}.{payload}"
// with the shared webhook secret.  Exported so tests can produce valid
// signatures for synthetic events.
func SignPayload(secret, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the signature over the raw body and
// compares it to the header value in constant time.  This is the gate
// in front of settlement: a mismatch means the payload is untrusted and
// nothing further may be done with it.
func VerifySignature(secret string, header SignatureHeader, body []byte) error {
	expected := SignPayload(secret, header.Timestamp, body)
	if !hmac.Equal([]byte(expected), []byte(header.V1)) {
		return ErrBadSignature
	}
	return nil
}
