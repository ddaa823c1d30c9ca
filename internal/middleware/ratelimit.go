package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds token bucket settings for one limiter.
type RateLimitConfig struct {
	// Rate is the number of requests refilled per second.
	Rate rate.Limit

	// Burst is the bucket size.
	Burst int

	// IdleTimeout is how long an unused key keeps its bucket.
	IdleTimeout time.Duration

	// CleanupInterval is how often idle buckets are swept.
	CleanupInterval time.Duration
}

// DefaultRateLimitConfig returns the limit applied to the whole API:
// 20 requests per second with a burst of 50.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Rate:            20,
		Burst:           50,
		IdleTimeout:     time.Hour,
		CleanupInterval: 10 * time.Minute,
	}
}

// AuthRateLimitConfig returns the limit for signup and login:
// 5 requests per minute with a burst of 10.
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Rate:            rate.Limit(5.0 / 60.0),
		Burst:           10,
		IdleTimeout:     time.Hour,
		CleanupInterval: 10 * time.Minute,
	}
}

// KeyFunc picks the bucket a request is charged to.
type KeyFunc func(c echo.Context) string

// KeyByIP charges requests to the client address.
func KeyByIP(c echo.Context) string {
	return c.RealIP()
}

// KeyByProfile charges authenticated requests to the profile and anonymous
// requests to the client address.
func KeyByProfile(c echo.Context) string {
	if id := railinspect.ProfileIDFromContext(c.Request().Context()); id != uuid.Nil {
		return "profile:" + id.String()
	}
	return "ip:" + c.RealIP()
}

// RateLimiter keeps one token bucket per key.
type RateLimiter struct {
	limiters sync.Map // key -> *limiterEntry
	logger   *slog.Logger
	config   RateLimitConfig
	ctx      context.Context
	cancel   context.CancelFunc
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess atomic.Int64 // Unix timestamp in seconds
}

// NewRateLimiter creates a limiter and starts its cleanup goroutine.
// Call Shutdown to stop it.
func NewRateLimiter(logger *slog.Logger, config RateLimitConfig) *RateLimiter {
	defaults := DefaultRateLimitConfig()
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = defaults.IdleTimeout
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	rl := &RateLimiter{
		logger: logger,
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}
	go rl.cleanupLoop()
	return rl
}

// Allow consumes one token from key's bucket.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiter(key).Allow()
}

// Middleware rejects requests over the limit with ERATELIMIT.
func (rl *RateLimiter) Middleware(keyFn KeyFunc) echo.MiddlewareFunc {
	if keyFn == nil {
		keyFn = KeyByIP
	}
	limit := fmt.Sprintf("%.2f", float64(rl.config.Rate))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := keyFn(c)
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)

			if !rl.Allow(key) {
				GetRequestLogger(c).Warn("rate limit exceeded",
					slog.String("key", key),
					slog.String("path", c.Path()),
					slog.String("method", c.Request().Method))

				h.Set("Retry-After", strconv.Itoa(rl.retryAfter()))
				h.Set("X-RateLimit-Remaining", "0")
				return railinspect.Errorf(railinspect.ERATELIMIT, "Too many requests, please try again later")
			}
			return next(c)
		}
	}
}

// retryAfter returns the whole seconds until one token is refilled.
func (rl *RateLimiter) retryAfter() int {
	if rl.config.Rate <= 0 {
		return 60
	}
	secs := int(1/float64(rl.config.Rate) + 0.999)
	if secs < 1 {
		secs = 1
	}
	return secs
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	now := time.Now().Unix()
	if v, ok := rl.limiters.Load(key); ok {
		entry := v.(*limiterEntry)
		entry.lastAccess.Store(now)
		return entry.limiter
	}

	entry := &limiterEntry{limiter: rate.NewLimiter(rl.config.Rate, rl.config.Burst)}
	entry.lastAccess.Store(now)
	actual, _ := rl.limiters.LoadOrStore(key, entry)
	return actual.(*limiterEntry).limiter
}

// Sweep drops buckets idle for longer than the idle timeout and returns
// how many were removed.
func (rl *RateLimiter) Sweep(now time.Time) int {
	var removed int
	threshold := now.Add(-rl.config.IdleTimeout).Unix()
	rl.limiters.Range(func(key, value any) bool {
		if value.(*limiterEntry).lastAccess.Load() < threshold {
			rl.limiters.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			if removed := rl.Sweep(now); removed > 0 {
				rl.logger.Debug("cleaned up idle rate limiters", slog.Int("removed", removed))
			}
		case <-rl.ctx.Done():
			return
		}
	}
}

// Shutdown stops the cleanup goroutine.
func (rl *RateLimiter) Shutdown() {
	rl.cancel()
}
