package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smberp/backend/internal/interfaces/http/dto"
)

// RateLimiter is a fixed-window limiter keyed by tenant (or client IP when
// the request carries no tenant). Expired windows are swept lazily.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*window
	limit     int
	period    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type window struct {
	remaining int
	started   time.Time
}

// NewRateLimiter allows limit requests per key in every period
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// Allow consumes one request for key and reports whether it fits in the
// current window, together with what is left of it
func (rl *RateLimiter) Allow(key string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	w, ok := rl.clients[key]
	if !ok || now.Sub(w.started) >= rl.period {
		rl.clients[key] = &window{remaining: rl.limit - 1, started: now}
		return true, rl.limit - 1
	}
	if w.remaining == 0 {
		return false, 0
	}
	w.remaining--
	return true, w.remaining
}

// RetryAfter returns how long key has to wait for a fresh window
func (rl *RateLimiter) RetryAfter(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.clients[key]
	if !ok {
		return 0
	}
	if wait := rl.period - rl.now().Sub(w.started); wait > 0 {
		return wait
	}
	return 0
}

func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < 2*rl.period {
		return
	}
	for key, w := range rl.clients {
		if now.Sub(w.started) >= rl.period {
			delete(rl.clients, key)
		}
	}
	rl.lastSweep = now
}

// rateLimitKey scopes limits to the authenticated tenant, falling back to the client IP
func rateLimitKey(c *gin.Context) string {
	if tenantID := GetJWTTenantID(c); tenantID != "" {
		return "tenant:" + tenantID
	}
	return "ip:" + c.ClientIP()
}

// RateLimit rejects requests over the limiter's quota with 429 ERR_RATE_LIMITED.
// It must run after the JWT middleware for per-tenant keys.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rateLimitKey(c)
		allowed, remaining := limiter.Allow(key)

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			retry := limiter.RetryAfter(key)
			c.Header("Retry-After", strconv.Itoa(int(retry.Round(time.Second).Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited, "Too many requests. Please try again later.", GetRequestID(c)))
			return
		}
		c.Next()
	}
}
