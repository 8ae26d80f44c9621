package config

import (
	"os"
	"strconv"
	"time"
)

// RateLimitConfig controls the fixed-window limiter applied to every
// mutating endpoint.  Limit requests are admitted per Window per key;
// the counter resets when the window expires.
type RateLimitConfig struct {
	Enabled bool
	Limit   int64
	Window  time.Duration
	Prefix  string
}

// LoadRateLimitConfig reads the limiter settings from the environment,
// with defaults of 60 requests per 60 seconds.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled: envBool("RATE_LIMIT_ENABLED", true),
		Limit:   int64(envInt("RATE_LIMIT_MAX", 60)),
		Window:  envDur("RATE_LIMIT_WINDOW", 60*time.Second),
		Prefix:  envStr("RATE_LIMIT_PREFIX", "rl"),
	}
	if cfg.Limit < 1 {
		cfg.Limit = 1
	}
	if cfg.Window < time.Second {
		cfg.Window = time.Second
	}
	return cfg
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
