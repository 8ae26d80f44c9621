package model

import "time"

// Payment statuses recorded against a booking.
const (
	PaymentPreauthorized = "preauthorized"
	PaymentCaptured      = "captured"
)

// Payment records a funds hold or capture against a booking.  Preauth
// rows are written by the stub preauthorization endpoint; capture state
// arrives via the processor webhook.
type Payment struct {
	ID            uint64    // payments.id
	BookingID     string    // payments.booking_id
	Provider      string    // payments.provider
	AmountPreauth int64     // payments.amount_preauth
	Status        string    // payments.status
	CreatedAt     time.Time // payments.created_at
}
