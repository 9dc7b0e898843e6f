// middleware/ratelimit.go
package middleware

import (
	"strings"
	"sync"
	"time"

	"teetime/metrics"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key.
type RateLimiter struct {
	name     string
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

// NewRateLimiter allows maxRequests per window, refilled evenly.
func NewRateLimiter(name string, maxRequests int, window time.Duration) *RateLimiter {
	if maxRequests <= 0 {
		maxRequests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		name:     name,
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(maxRequests) / window.Seconds()),
		burst:    maxRequests,
		now:      time.Now,
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = rl.now()
	rl.mu.Unlock()
	return v.limiter.AllowN(v.lastSeen, 1)
}

// Cleanup drops visitors idle longer than maxIdle.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-maxIdle)
	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
		}
	}
}

// StartCleanup prunes idle visitors every interval until stop is closed.
func (rl *RateLimiter) StartCleanup(interval, maxIdle time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.Cleanup(maxIdle)
			case <-stop:
				return
			}
		}
	}()
}

// RateLimit rejects clients over their budget with 429.
func RateLimit(rl *RateLimiter, message string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Skip health and metrics endpoints
		path := c.Path()
		if path == "/health" || path == "/api/health" || strings.HasPrefix(path, "/metrics") {
			return c.Next()
		}

		if !rl.Allow(c.IP()) {
			metrics.APIRateLimitHits.WithLabelValues(rl.name).Inc()
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   message,
			})
		}
		return c.Next()
	}
}
