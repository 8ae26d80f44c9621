package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"                             // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp" // Prometheus scrape endpoint

	"github.com/escolta-mx/booking-api/internal/config"
	"github.com/escolta-mx/booking-api/internal/handler"
	"github.com/escolta-mx/booking-api/internal/middleware"
	"github.com/escolta-mx/booking-api/internal/ratelimit"
)

// Handlers bundles every handler the API exposes so route registration
// stays in one place.
type Handlers struct {
	Pricing  *handler.PricingHandler
	Bookings *handler.BookingHandler
	Matching *handler.MatchingHandler
	Jobs     *handler.JobsHandler
	Payments *handler.PaymentsHandler
}

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance: the health check, the Prometheus scrape
// endpoint and the payment webhook.  The webhook authenticates with
// its own signature rather than a JWT, but it still runs the
// rate-limit middleware keyed by source IP.
func RegisterRoutes(e *echo.Echo, h Handlers, rlCfg config.RateLimitConfig, limiter *ratelimit.Limiter) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/v1/payments/webhook", h.Payments.Webhook, middleware.RateLimit(rlCfg, limiter))
}

// RegisterAPI registers the authenticated booking, pricing, matching,
// jobs and payment routes under /v1.  All of them require a valid
// access token; mutating endpoints additionally run the fixed-window
// rate limiter keyed by actor.
func RegisterAPI(e *echo.Echo, h Handlers, jwtSecret string, rlCfg config.RateLimitConfig, limiter *ratelimit.Limiter) {
	rl := middleware.RateLimit(rlCfg, limiter)

	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(jwtSecret))

	// Client-facing booking flow.
	v1.POST("/pricing", h.Pricing.Price, rl)
	v1.POST("/quotes", h.Pricing.SaveQuote, rl)
	v1.POST("/bookings", h.Bookings.Create, rl)
	v1.GET("/bookings/:id", h.Bookings.Get)
	v1.POST("/bookings/confirm", h.Bookings.Confirm, rl)
	v1.POST("/bookings/cancel", h.Bookings.Cancel, rl)

	// Dispatch.  Matching runs are an operator/backoffice action.
	v1.POST("/matching", h.Matching.Run, rl, middleware.RequireRole("admin", "dispatcher"))

	// Guard-facing job surface.
	v1.GET("/jobs/list", h.Jobs.List)
	v1.POST("/jobs/accept", h.Jobs.Accept, rl, middleware.RequireRole("guard"))
	v1.POST("/jobs/status", h.Jobs.UpdateStatus, rl, middleware.RequireRole("guard"))

	// Payments (webhook is registered unauthenticated above).
	v1.POST("/payments/preauth", h.Payments.Preauth, rl)
	v1.POST("/payments/intent", h.Payments.CreateIntent, rl)
}
