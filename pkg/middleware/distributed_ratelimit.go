package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/laot-fitness/laot/pkg/httputil"
	"github.com/laot-fitness/laot/pkg/observability"
)

// DistributedThrottle implements fixed-window throttling in Redis so
// limits are shared across server instances
type DistributedThrottle struct {
	redis           *redis.Client
	config          *RateLimitConfig
	prefix          string
	fallbackEnabled bool
	logger          *observability.Logger
}

// NewDistributedThrottle creates a new Redis-backed throttle
func NewDistributedThrottle(redisClient *redis.Client, config *RateLimitConfig, prefix string, logger *observability.Logger) *DistributedThrottle {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	if prefix == "" {
		prefix = "laot:ratelimit"
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	return &DistributedThrottle{
		redis:           redisClient,
		config:          config,
		prefix:          prefix,
		fallbackEnabled: true,
		logger:          logger,
	}
}

func (d *DistributedThrottle) key(key string) string {
	return fmt.Sprintf("%s:%s", d.prefix, key)
}

func (d *DistributedThrottle) max() int64 {
	return int64(d.config.burst())
}

// Allow increments the window counter for key and reports whether the
// request is within the limit. The window starts on the first request.
func (d *DistributedThrottle) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := d.key(key)

	count, err := d.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		return true, fmt.Errorf("redis error: %w", err)
	}
	if count == 1 {
		if err := d.redis.Expire(ctx, redisKey, d.config.WindowDuration).Err(); err != nil {
			return true, fmt.Errorf("redis error: %w", err)
		}
	}

	return count <= d.max(), nil
}

// Remaining returns the number of remaining requests in the window
func (d *DistributedThrottle) Remaining(ctx context.Context, key string) (int, error) {
	count, err := d.redis.Get(ctx, d.key(key)).Int64()
	if err == redis.Nil {
		return int(d.max()), nil
	} else if err != nil {
		return 0, err
	}

	remaining := d.max() - count
	if remaining < 0 {
		remaining = 0
	}
	return int(remaining), nil
}

// TTL returns the time until the window for key resets
func (d *DistributedThrottle) TTL(ctx context.Context, key string) (time.Duration, error) {
	return d.redis.TTL(ctx, d.key(key)).Result()
}

// Reset clears the counter for a key
func (d *DistributedThrottle) Reset(ctx context.Context, key string) error {
	return d.redis.Del(ctx, d.key(key)).Err()
}

// SetFallbackEnabled controls whether to fail open (true) or closed (false) on Redis errors
func (d *DistributedThrottle) SetFallbackEnabled(enabled bool) {
	d.fallbackEnabled = enabled
}

// HealthCheck verifies Redis connectivity for throttling
func (d *DistributedThrottle) HealthCheck(ctx context.Context) error {
	return d.redis.Ping(ctx).Err()
}

// Handler wraps an HTTP handler with distributed per-IP throttling
func (d *DistributedThrottle) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := "ip:" + ClientIP(r)

		allowed, err := d.Allow(ctx, key)
		if err != nil {
			if d.fallbackEnabled {
				d.logger.WithError(err).WithField("key", key).Warn("Throttle unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteServiceUnavailable(w, "Service temporarily unavailable")
			return
		}

		if !allowed {
			wait := d.config.WindowDuration
			if ttl, err := d.TTL(ctx, key); err == nil && ttl > 0 {
				wait = ttl
			}
			throttled(w, d.config.RequestsPerWindow, wait)
			return
		}

		if remaining, err := d.Remaining(ctx, key); err == nil {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.config.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		}
		next.ServeHTTP(w, r)
	})
}
