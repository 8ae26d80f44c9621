package model

import "testing"

func TestBookingCanTransition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from, to string
		want     bool
	}{
		{BookingQuoted, BookingMatching, true},
		{BookingQuoted, BookingPreauthorized, true},
		{BookingQuoted, BookingCancelled, true},
		{BookingMatching, BookingAssigned, true},
		{BookingAssigned, BookingPreauthorized, true},
		{BookingPreauthorized, BookingCompleted, true},
		{BookingAssigned, BookingCompleted, true},

		// No skipping matching straight to assigned.
		{BookingQuoted, BookingAssigned, false},
		// No backward moves.
		{BookingMatching, BookingQuoted, false},
		{BookingAssigned, BookingMatching, false},
		// Terminal states admit nothing.
		{BookingCompleted, BookingCancelled, false},
		{BookingCancelled, BookingQuoted, false},
		{BookingCompleted, BookingMatching, false},
		// Unknown statuses go nowhere.
		{"draft", BookingMatching, false},
		{BookingQuoted, "archived", false},
	}
	for _, tc := range cases {
		if got := BookingCanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("BookingCanTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestEveryLiveStatusCanCancel(t *testing.T) {
	t.Parallel()

	for _, from := range []string{BookingQuoted, BookingMatching, BookingAssigned, BookingPreauthorized} {
		if !BookingCanTransition(from, BookingCancelled) {
			t.Errorf("%q cannot cancel", from)
		}
	}
}

func TestBookingAssignable(t *testing.T) {
	t.Parallel()

	// Acceptance assigns from every live pre-assignment status,
	// including preauthorized-before-matching and quoted when matching
	// ran without an explicit confirm.
	for _, s := range []string{BookingQuoted, BookingMatching, BookingPreauthorized} {
		if !BookingAssignable(s) {
			t.Errorf("BookingAssignable(%q) = false", s)
		}
	}
	for _, s := range []string{BookingAssigned, BookingCompleted, BookingCancelled, "", "draft"} {
		if BookingAssignable(s) {
			t.Errorf("BookingAssignable(%q) = true", s)
		}
	}
}

func TestBookingTerminal(t *testing.T) {
	t.Parallel()

	for _, s := range []string{BookingCompleted, BookingCancelled} {
		if !BookingTerminal(s) {
			t.Errorf("%q not reported terminal", s)
		}
	}
	for _, s := range []string{BookingQuoted, BookingMatching, BookingAssigned, BookingPreauthorized} {
		if BookingTerminal(s) {
			t.Errorf("%q reported terminal", s)
		}
	}
}

func TestValidTier(t *testing.T) {
	t.Parallel()

	for _, tier := range []string{TierDirect, TierElite, TierCorporate} {
		if !ValidTier(tier) {
			t.Errorf("ValidTier(%q) = false", tier)
		}
	}
	for _, tier := range []string{"", "platinum", "DIRECT"} {
		if ValidTier(tier) {
			t.Errorf("ValidTier(%q) = true", tier)
		}
	}
}
