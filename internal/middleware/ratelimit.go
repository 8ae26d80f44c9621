package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/escolta-mx/booking-api/internal/config"
	"github.com/escolta-mx/booking-api/internal/metrics"
	"github.com/escolta-mx/booking-api/internal/ratelimit"
)

// RateLimit returns an Echo middleware enforcing the fixed-window
// limit for mutating endpoints.  Keys combine the route with the actor
// (authenticated user id, or client IP for anonymous callers) so one
// abusive caller cannot exhaust another's budget.  A nil limiter or a
// disabled config turns the middleware into a pass-through.
func RateLimit(cfg config.RateLimitConfig, limiter *ratelimit.Limiter) echo.MiddlewareFunc {
	if !cfg.Enabled || limiter == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Path() + ":" + Actor(c)
			d := limiter.CheckAndConsume(c.Request().Context(), key, cfg.Limit, cfg.Window)

			c.Response().Header().Set("X-RateLimit-Limit", strconv.FormatInt(cfg.Limit, 10))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))

			if !d.Allowed {
				metrics.RateLimitedTotal.Inc()
				secs := int(cfg.Window.Seconds())
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate_limited"})
			}
			return next(c)
		}
	}
}
