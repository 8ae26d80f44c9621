package middleware

// identity.go defines helper functions shared across middleware and
// handlers.  Actor identity feeds both rate-limit keys and the audit
// trail: authenticated callers are keyed by their user id, anonymous
// callers by client network address.

import "github.com/labstack/echo/v4"

// UserID returns the authenticated caller's id from the context, or ""
// when the request is unauthenticated.
func UserID(c echo.Context) string {
	if v := c.Get("user_id"); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// Actor returns the identity used for rate limiting and auditing: the
// authenticated user id when present, otherwise the client IP.
func Actor(c echo.Context) string {
	if uid := UserID(c); uid != "" {
		return uid
	}
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}
