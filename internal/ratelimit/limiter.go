// Package ratelimit implements the fixed-window counter consulted by
// every mutating operation.  The counter lives in Redis so limits hold
// across instances; the store is an interface so tests run against an
// in-memory fake.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the counter primitive behind the limiter.  Take consumes
// one unit under key if fewer than limit have been consumed in the
// current window, and reports how many remain.  When the window has no
// counter yet, taking the first unit starts it.
type Store interface {
	Take(ctx context.Context, key string, limit int64, window time.Duration) (allowed bool, remaining int64, err error)
}

// Decision is the outcome of one CheckAndConsume call.
type Decision struct {
	Allowed   bool
	Remaining int64
}

// Limiter applies fixed-window limits keyed by actor (or IP fallback)
// and operation.  A nil store disables limiting: the limiter fails
// open, matching how the rest of the stack degrades when Redis is
// unreachable at startup.
type Limiter struct {
	store  Store
	prefix string
}

// New returns a Limiter with the given namespace prefix.  store may be
// nil to disable limiting.
func New(store Store, prefix string) *Limiter {
	if prefix == "" {
		prefix = "rl"
	}
	return &Limiter{store: store, prefix: prefix}
}

// CheckAndConsume consumes one unit of the window budget for key.
// Redis errors admit the request: availability of the platform is
// preferred over strict limiting when the counter store is down.
func (l *Limiter) CheckAndConsume(ctx context.Context, key string, limit int64, window time.Duration) Decision {
	if l == nil || l.store == nil || limit <= 0 {
		return Decision{Allowed: true, Remaining: limit}
	}
	allowed, remaining, err := l.store.Take(ctx, l.prefix+":"+key, limit, window)
	if err != nil {
		return Decision{Allowed: true, Remaining: 0}
	}
	return Decision{Allowed: allowed, Remaining: remaining}
}

// fixedWindowScript checks the current count before incrementing:
// requests over the limit do not extend the window or grow the
// counter.  The expiry is set when the first unit of a window is
// taken.
var fixedWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window_s = tonumber(ARGV[2])

	local count = tonumber(redis.call('GET', key) or '0')
	if count >= limit then
		return { 0, 0 }
	end

	count = redis.call('INCR', key)
	if count == 1 then
		redis.call('EXPIRE', key, window_s)
	end
	return { 1, limit - count }
`)

// RedisStore implements Store on a Redis client.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps the given client.  A nil client yields a nil
// store, which the Limiter treats as "limiting disabled".
func NewRedisStore(rdb *redis.Client) *RedisStore {
	if rdb == nil {
		return nil
	}
	return &RedisStore{rdb: rdb}
}

// Take runs the fixed-window script.  Concurrent callers near a window
// boundary may over-admit by a request or two; that is an accepted
// trade-off, not a correctness bug.
func (s *RedisStore) Take(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	secs := int64(window / time.Second)
	if secs < 1 {
		secs = 1
	}
	vals, err := fixedWindowScript.Run(ctx, s.rdb, []string{key}, limit, secs).Int64Slice()
	if err != nil {
		return false, 0, err
	}
	if len(vals) != 2 {
		return false, 0, nil
	}
	return vals[0] == 1, vals[1], nil
}
