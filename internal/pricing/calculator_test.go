package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/escolta-mx/booking-api/internal/model"
)

// cdmxDirect mirrors the launch rate card for CDMX direct bookings:
// 700/hr guard, 1.5x armed, 4 hour minimum.
func cdmxDirect() *model.PricingRule {
	return &model.PricingRule{
		City:               "CDMX",
		Tier:               "direct",
		BaseRateGuard:      700,
		ArmedMultiplier:    1.5,
		VehicleRateSUV:     500,
		VehicleRateArmored: 1200,
		MinHours:           4,
		Currency:           "MXN",
	}
}

func window(hours time.Duration) (time.Time, time.Time) {
	start := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	return start, start.Add(hours)
}

func TestBillableHours(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	cases := []struct {
		name     string
		end      time.Time
		minHours int64
		want     int64
	}{
		{"exact hours", start.Add(6 * time.Hour), 4, 6},
		{"partial hour rounds up", start.Add(2*time.Hour + time.Minute), 1, 3},
		{"below minimum clamps", start.Add(90 * time.Minute), 4, 4},
		{"equal to minimum", start.Add(4 * time.Hour), 4, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BillableHours(start, tc.end, tc.minHours); got != tc.want {
				t.Fatalf("BillableHours = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestQuoteArmedFourHours(t *testing.T) {
	t.Parallel()

	start, end := window(4 * time.Hour)
	res, err := Quote(Request{
		City:          "CDMX",
		Tier:          "direct",
		ArmedRequired: true,
		StartTS:       start,
		EndTS:         end,
	}, cdmxDirect())
	if err != nil {
		t.Fatalf("Quote returned error: %v", err)
	}
	// round(700 * 1.5) = 1050 per hour, 4 hours = 4200.
	if res.QuoteAmount != 4200 {
		t.Fatalf("QuoteAmount = %d, want 4200", res.QuoteAmount)
	}
	// 10% buffer on top of the quote.
	if res.PreauthAmount != 4620 {
		t.Fatalf("PreauthAmount = %d, want 4620", res.PreauthAmount)
	}
	if res.Currency != "MXN" {
		t.Fatalf("Currency = %q, want MXN", res.Currency)
	}
	if res.SurgeMult != 1.0 {
		t.Fatalf("SurgeMult = %v, want 1.0", res.SurgeMult)
	}
}

func TestQuoteDeterministic(t *testing.T) {
	t.Parallel()

	start, end := window(6 * time.Hour)
	req := Request{City: "CDMX", Tier: "direct", ArmedRequired: true, StartTS: start, EndTS: end, SurgeMult: 1.2}
	first, err := Quote(req, cdmxDirect())
	if err != nil {
		t.Fatalf("Quote returned error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Quote(req, cdmxDirect())
		if err != nil {
			t.Fatalf("Quote returned error on iteration %d: %v", i, err)
		}
		if again != first {
			t.Fatalf("Quote not deterministic: %+v vs %+v", again, first)
		}
	}
}

func TestQuoteVehicleRates(t *testing.T) {
	t.Parallel()

	start, end := window(4 * time.Hour)
	base := Request{City: "CDMX", Tier: "direct", VehicleRequired: true, StartTS: start, EndTS: end}

	std, err := Quote(base, cdmxDirect())
	if err != nil {
		t.Fatalf("Quote returned error: %v", err)
	}
	// 700*4 guard + 500*4 standard vehicle.
	if std.QuoteAmount != 4800 {
		t.Fatalf("standard vehicle QuoteAmount = %d, want 4800", std.QuoteAmount)
	}

	armored := base
	armored.VehicleType = "armored_suv"
	arm, err := Quote(armored, cdmxDirect())
	if err != nil {
		t.Fatalf("Quote returned error: %v", err)
	}
	// 700*4 guard + 1200*4 armored vehicle.
	if arm.QuoteAmount != 7600 {
		t.Fatalf("armored vehicle QuoteAmount = %d, want 7600", arm.QuoteAmount)
	}
}

func TestQuoteSurgeScalesTotal(t *testing.T) {
	t.Parallel()

	start, end := window(4 * time.Hour)
	res, err := Quote(Request{City: "CDMX", Tier: "direct", StartTS: start, EndTS: end, SurgeMult: 1.5}, cdmxDirect())
	if err != nil {
		t.Fatalf("Quote returned error: %v", err)
	}
	// 700*4 = 2800, surged by 1.5 = 4200.
	if res.QuoteAmount != 4200 {
		t.Fatalf("QuoteAmount = %d, want 4200", res.QuoteAmount)
	}
	if res.SurgeMult != 1.5 {
		t.Fatalf("SurgeMult = %v, want 1.5", res.SurgeMult)
	}
}

func TestQuoteMinimumBilling(t *testing.T) {
	t.Parallel()

	start, end := window(1 * time.Hour)
	res, err := Quote(Request{City: "CDMX", Tier: "direct", StartTS: start, EndTS: end}, cdmxDirect())
	if err != nil {
		t.Fatalf("Quote returned error: %v", err)
	}
	// A 1 hour window still bills the 4 hour minimum.
	if res.QuoteAmount != 2800 {
		t.Fatalf("QuoteAmount = %d, want 2800", res.QuoteAmount)
	}
	if res.MinHours != 4 {
		t.Fatalf("MinHours = %d, want 4", res.MinHours)
	}
}

func TestQuoteInvalidTimeRange(t *testing.T) {
	t.Parallel()

	start, _ := window(4 * time.Hour)
	for _, end := range []time.Time{start, start.Add(-time.Hour)} {
		_, err := Quote(Request{City: "CDMX", Tier: "direct", StartTS: start, EndTS: end}, cdmxDirect())
		if !errors.Is(err, ErrInvalidTimeRange) {
			t.Fatalf("Quote(end=%v) error = %v, want ErrInvalidTimeRange", end, err)
		}
	}
}

func TestQuoteNilRule(t *testing.T) {
	t.Parallel()

	start, end := window(4 * time.Hour)
	_, err := Quote(Request{City: "CDMX", Tier: "direct", StartTS: start, EndTS: end}, nil)
	if !errors.Is(err, ErrRuleNotFound) {
		t.Fatalf("Quote error = %v, want ErrRuleNotFound", err)
	}
}
