package audit

import (
	"net/url"
	"strings"
)

const masked = "[REDACTED]"

// secretKeyParts are matched case-insensitively as substrings of field
// names.  Any field whose name contains one of these is masked
// wholesale.
var secretKeyParts = []string{
	"secret",
	"token",
	"password",
	"authorization",
	"apikey",
	"api_key",
	"signature",
	"credential",
}

func secretKey(key string) bool {
	k := strings.ToLower(key)
	for _, part := range secretKeyParts {
		if strings.Contains(k, part) {
			return true
		}
	}
	return false
}

// Redact returns a deep copy of payload safe for the audit trail:
// secret-named fields are masked at any nesting depth, and URL-valued
// strings lose their query and fragment so pre-signed links are not
// replayable from the log.
func Redact(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if secretKey(k) {
			out[k] = masked
			continue
		}
		out[k] = redactValue(v)
	}
	return out
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return Redact(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = redactValue(e)
		}
		return out
	case string:
		return stripURL(t)
	}
	return v
}

// stripURL removes query and fragment components from http(s) URLs.
// Non-URL strings pass through untouched.
func stripURL(s string) string {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return s
	}
	u, err := url.Parse(s)
	if err != nil {
		return s
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
