package api

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// newRateLimitMiddleware returns a per-caller token-bucket rate limiter
// built on golang.org/x/time/rate. Idle limiters are evicted
// periodically so the map doesn't grow with every key ever seen.
func newRateLimitMiddleware(rps, burst int) fiber.Handler {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	get := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[key]
		if !ok {
			l = rate.NewLimiter(rate.Limit(rps), burst)
			limiters[key] = l
		}
		return l
	}

	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			mu.Lock()
			for k, l := range limiters {
				if l.Tokens() >= float64(burst) {
					delete(limiters, k)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/healthz" || path == "/readyz" || path == "/metrics" {
			return c.Next()
		}
		key := c.Get("X-API-Key")
		if key == "" {
			key = c.IP()
		}
		if !get(key).Allow() {
			return problemResponse(c, fiber.StatusTooManyRequests, "rate_limit_exceeded", "Too Many Requests", "rate limit exceeded")
		}
		return c.Next()
	}
}
