package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for the booking lifecycle and settlement paths.
var (
	BookingsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookings_created_total",
			Help: "Total number of bookings created",
		},
	)

	OffersCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_offers_created_total",
			Help: "Total number of assignment offers created by matching",
		},
	)

	AssignmentsAcceptedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "assignments_accepted_total",
			Help: "Total number of assignments accepted (first accept wins)",
		},
	)

	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Payment webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)

	TransfersIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_transfers_issued_total",
			Help: "Settlement transfers issued by bucket",
		},
		[]string{"bucket"},
	)

	RateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "requests_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	SettlementDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "settlement_duration_seconds",
			Help:    "Duration of webhook settlement processing",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Register registers all metrics on the default registry.  Call once
// at startup.
func Register() {
	prometheus.MustRegister(BookingsCreatedTotal)
	prometheus.MustRegister(OffersCreatedTotal)
	prometheus.MustRegister(AssignmentsAcceptedTotal)
	prometheus.MustRegister(WebhookEventsTotal)
	prometheus.MustRegister(TransfersIssuedTotal)
	prometheus.MustRegister(RateLimitedTotal)
	prometheus.MustRegister(SettlementDuration)
}
