package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/escolta-mx/booking-api/internal/config"
	"github.com/escolta-mx/booking-api/internal/ratelimit"
)

type countingStore struct {
	counts map[string]int64
}

func (s *countingStore) Take(_ context.Context, key string, limit int64, _ time.Duration) (bool, int64, error) {
	if s.counts == nil {
		s.counts = map[string]int64{}
	}
	if s.counts[key] >= limit {
		return false, 0, nil
	}
	s.counts[key]++
	return true, limit - s.counts[key], nil
}

func doRequest(e *echo.Echo, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", nil)
	req.RemoteAddr = ip + ":1234"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitEnforcesWindow(t *testing.T) {
	t.Parallel()

	cfg := config.RateLimitConfig{Enabled: true, Limit: 2, Window: time.Minute, Prefix: "rl"}
	limiter := ratelimit.New(&countingStore{}, cfg.Prefix)

	e := echo.New()
	e.POST("/v1/bookings", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, RateLimit(cfg, limiter))

	for i := 0; i < 2; i++ {
		rec := doRequest(e, "10.0.0.1")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, rec.Code)
		}
	}
	rec := doRequest(e, "10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After = %q, want 60", rec.Header().Get("Retry-After"))
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("X-RateLimit-Remaining = %q, want 0", rec.Header().Get("X-RateLimit-Remaining"))
	}

	// A different source IP is a different actor with its own budget.
	if rec := doRequest(e, "10.0.0.2"); rec.Code != http.StatusOK {
		t.Fatalf("other actor status = %d, want 200", rec.Code)
	}
}

func TestRateLimitDisabledPassesThrough(t *testing.T) {
	t.Parallel()

	cfg := config.RateLimitConfig{Enabled: false, Limit: 1, Window: time.Minute}
	e := echo.New()
	e.POST("/v1/bookings", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, RateLimit(cfg, nil))

	for i := 0; i < 5; i++ {
		if rec := doRequest(e, "10.0.0.1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, rec.Code)
		}
	}
}

func TestActorPrefersUserID(t *testing.T) {
	t.Parallel()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	c := e.NewContext(req, httptest.NewRecorder())

	if got := Actor(c); got != "ip:10.0.0.9" {
		t.Fatalf("anonymous Actor = %q", got)
	}

	c.Set("user_id", "user-42")
	if got := Actor(c); got != "user-42" {
		t.Fatalf("authenticated Actor = %q", got)
	}
}
