// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the in-memory token-bucket rate limiter that protects the
// journaling API. Buckets are kept per identity (authenticated user, or client
// IP for anonymous traffic) and idle buckets are garbage-collected
// opportunistically so a burst of one-off visitors cannot grow the map forever.
//
// The limiter is process-local: it bounds what a single instance will accept,
// which is the right shape for a single-container deployment. A horizontally
// scaled fleet would need a shared store (Redis or similar) to enforce a
// global budget.
//
// Replays of idempotent requests (detected by IdempotencyValidator) skip the
// bucket entirely: a client retrying a publish it already completed should not
// burn tokens for it.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyFunc maps a request to the identity string that keys its bucket. The
// result must be stable for the lifetime of the request.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP keys buckets by the authenticated user when one is present
// (the "userID" context value set during auth) and by client IP otherwise.
// Keys carry a namespace prefix ("user:" / "ip:") so the two spaces cannot
// collide.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if v, ok := c.Get("userID"); ok {
			if s, ok := v.(string); ok && s != "" {
				return "user:" + s
			}
		}
		return "ip:" + c.ClientIP()
	}
}

// visitor pairs a bucket with the last time its key was seen, so eviction can
// tell idle buckets from live ones.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a per-key token bucket. Buckets are created lazily and
// guarded by a single mutex; the map is pruned of idle entries during lookups
// rather than by a background goroutine. Safe for concurrent use.
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	keyFn    keyFunc
	mu       sync.Mutex
	visitors map[string]*visitor

	ttl      time.Duration
	cleanupN uint64
}

// NewRateLimiter builds a limiter replenishing rps tokens per second with the
// given burst capacity, keyed by keyFn. A burst below 1 is coerced to 1 so
// every bucket can admit at least one request. Install it with Handler().
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute, // idle buckets older than this get evicted
	}
}

// getVisitor returns the bucket for key, creating it on first sight. Every
// ~5000 lookups it sweeps the map for entries idle past the TTL. The sweep
// runs before the requested key is touched, so a stale bucket is evicted even
// when it is the one being asked for.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	rl.cleanupN++
	if rl.cleanupN >= 5000 {
		for k, vv := range rl.visitors {
			if now.Sub(vv.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.cleanupN = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		lim := v.limiter
		rl.mu.Unlock()
		return lim
	}

	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	rl.mu.Unlock()
	return lim
}

// IsRateBypass reports whether IdempotencyValidator flagged this request as a
// replay of an already-completed one. Handler skips limiting for those, so a
// retried journal publish is served without spending tokens.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass) // set by IdempotencyValidator
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler returns the Gin middleware enforcing the limiter. Replays pass
// through untouched; everything else draws one token from its key's bucket.
// An empty bucket yields 429 with Retry-After: 1 and the API's standard error
// body:
//
//	{
//	  "request_id": "<uuid>",
//	  "code":       "rate_limited",
//	  "message":    "rate limit exceeded"
//	}
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		key := rl.keyFn(c)
		lim := rl.getVisitor(key)

		if lim.Allow() {
			c.Next()
			return
		}

		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get("X-Request-ID"),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
