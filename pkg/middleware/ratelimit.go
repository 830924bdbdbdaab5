package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/laot-fitness/laot/pkg/httputil"
	"golang.org/x/time/rate"
)

const msgTooManyRequests = "Too many requests. Please slow down."

// RateLimitConfig defines request throttling configuration
type RateLimitConfig struct {
	// RequestsPerWindow is the sustained number of requests allowed per window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
	// BurstSize allows temporary bursts above the rate
	BurstSize int
}

// DefaultRateLimitConfig returns the throttle applied in front of /api/auth
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 30,
		WindowDuration:    time.Minute,
		BurstSize:         10,
	}
}

func (c *RateLimitConfig) limit() rate.Limit {
	if c.WindowDuration <= 0 || c.RequestsPerWindow <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(c.RequestsPerWindow) / c.WindowDuration.Seconds())
}

func (c *RateLimitConfig) burst() int {
	return c.RequestsPerWindow + c.BurstSize
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttle limits requests per client IP with token buckets. It sits in
// front of the lockout guard and only shapes traffic volume.
type Throttle struct {
	config   *RateLimitConfig
	visitors map[string]*visitor
	mu       sync.Mutex
	now      func() time.Time
}

// NewThrottle creates an in-memory throttle
func NewThrottle(config *RateLimitConfig) *Throttle {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	return &Throttle{
		config:   config,
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

func (t *Throttle) get(key string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(t.config.limit(), t.config.burst())}
		t.visitors[key] = v
	}
	v.lastSeen = t.now()
	return v.limiter
}

// Reserve takes one token for key. It returns whether the request may
// proceed and, when it may not, how long until a token is available.
func (t *Throttle) Reserve(key string) (bool, time.Duration) {
	now := t.now()
	lim := t.get(key)
	if lim.AllowN(now, 1) {
		return true, 0
	}

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return false, t.config.WindowDuration
	}
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return false, wait
}

// Allow reports whether a request for key may proceed
func (t *Throttle) Allow(key string) bool {
	ok, _ := t.Reserve(key)
	return ok
}

// Remaining returns the number of whole tokens left for a key
func (t *Throttle) Remaining(key string) int {
	t.mu.Lock()
	v, ok := t.visitors[key]
	t.mu.Unlock()
	if !ok {
		return t.config.burst()
	}
	n := int(math.Floor(v.limiter.TokensAt(t.now())))
	if n < 0 {
		return 0
	}
	return n
}

// Cleanup removes buckets idle for more than two windows
func (t *Throttle) Cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-2 * t.config.WindowDuration)
	for key, v := range t.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(t.visitors, key)
		}
	}
}

// StartCleanup starts a background goroutine to cleanup idle buckets
func (t *Throttle) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(t.config.WindowDuration)
	go func() {
		for {
			select {
			case <-ticker.C:
				t.Cleanup()
			case <-ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()
}

// Handler wraps an HTTP handler with per-IP throttling
func (t *Throttle) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ip:" + ClientIP(r)

		allowed, wait := t.Reserve(key)
		if !allowed {
			throttled(w, t.config.RequestsPerWindow, wait)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(t.config.RequestsPerWindow))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(t.Remaining(key)))
		next.ServeHTTP(w, r)
	})
}

// throttled writes the 429 envelope shared by both throttles
func throttled(w http.ResponseWriter, limit int, wait time.Duration) {
	retryAfter := int(math.Ceil(wait.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", "0")
	httputil.WriteErrorData(w, http.StatusTooManyRequests, msgTooManyRequests, map[string]int{
		"retry_after": retryAfter,
	})
}
