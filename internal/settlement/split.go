// Package settlement reconciles captured payments against bookings: it
// verifies the processor's webhook, splits the captured amount across
// the four platform buckets and issues idempotent transfers.
package settlement

import (
	"encoding/json"
	"errors"
)

// Bucket labels, also used as the second half of transfer idempotency
// keys.  Order is fixed so settlement issues transfers
// deterministically.
const (
	BucketTaxes       = "taxes"
	BucketFees        = "fees"
	BucketFreelancers = "freelancers"
	BucketCompanies   = "companies"
)

// bucketOrder fixes the iteration order over split parts.
var bucketOrder = [4]string{BucketTaxes, BucketFees, BucketFreelancers, BucketCompanies}

// SplitBps holds the four split ratios in basis points.  A valid split
// sums to exactly 10,000 bps.
type SplitBps struct {
	TaxBps        int64 `json:"tax_bps"`
	FeeBps        int64 `json:"fee_bps"`
	FreelancerBps int64 `json:"freelancer_bps"`
	CompanyBps    int64 `json:"company_bps"`
}

// ErrInvalidSplit is returned when the four ratios do not sum to
// 10,000 bps.
var ErrInvalidSplit = errors.New("split ratios must sum to 10000 bps")

// Valid reports whether the ratios are non-negative and sum to a full
// 10,000 bps.
func (s SplitBps) Valid() bool {
	if s.TaxBps < 0 || s.FeeBps < 0 || s.FreelancerBps < 0 || s.CompanyBps < 0 {
		return false
	}
	return s.TaxBps+s.FeeBps+s.FreelancerBps+s.CompanyBps == 10_000
}

// ParseSplitBps decodes a ratio snapshot embedded in payment metadata.
// Invalid JSON or a snapshot that does not sum to 10,000 bps is
// rejected; the caller falls back to the configured defaults.
func ParseSplitBps(raw string) (SplitBps, error) {
	var s SplitBps
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return SplitBps{}, err
	}
	if !s.Valid() {
		return SplitBps{}, ErrInvalidSplit
	}
	return s, nil
}

// ComputeSplit divides amount across the four buckets by floor
// division, then assigns the rounding remainder entirely to the largest
// bucket.  The parts therefore always sum exactly to amount: no
// currency unit is ever lost or minted.
func ComputeSplit(amount int64, bps SplitBps) map[string]int64 {
	calc := func(p int64) int64 { return amount * p / 10_000 }
	parts := map[string]int64{
		BucketTaxes:       calc(bps.TaxBps),
		BucketFees:        calc(bps.FeeBps),
		BucketFreelancers: calc(bps.FreelancerBps),
		BucketCompanies:   calc(bps.CompanyBps),
	}
	var sum int64
	for _, v := range parts {
		sum += v
	}
	if sum != amount {
		largest := bucketOrder[0]
		for _, label := range bucketOrder[1:] {
			if parts[label] > parts[largest] {
				largest = label
			}
		}
		parts[largest] += amount - sum
	}
	return parts
}
