package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"RatioLab/pkg/logger"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a token bucket per key. Each bucket holds up to burst tokens and refills at
// perSecond.
type Limiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	burst     float64
	perSecond float64
	now       func() time.Time
}

// NewLimiter creates a limiter. A non-positive burst disables limiting.
func NewLimiter(burst, perSecond float64) *Limiter {
	return &Limiter{
		buckets:   make(map[string]*bucket),
		burst:     burst,
		perSecond: perSecond,
		now:       time.Now,
	}
}

// Allow consumes one token for key if available.
func (l *Limiter) Allow(key string) bool {
	if l == nil || l.burst <= 0 {
		return true
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, last: now}
		l.buckets[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * l.perSecond
		if b.tokens > l.burst {
			b.tokens = l.burst
		}
		b.last = now
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// retryAfter is the whole seconds until one token refills, 0 when it never does.
func (l *Limiter) retryAfter() int {
	if l == nil || !(l.perSecond > 0) {
		return 0
	}
	return int(math.Ceil(1 / l.perSecond))
}

// RateLimit rejects requests over the client's budget for the matched route with 429.
func RateLimit(l *Limiter, log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP() + " " + c.Path()
			if !l.Allow(key) {
				log.Warn("rate limited",
					logger.String("remote", c.RealIP()),
					logger.String("path", c.Path()))
				if s := l.retryAfter(); s > 0 {
					c.Response().Header().Set(echo.HeaderRetryAfter, strconv.Itoa(s))
				}
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"status":  http.StatusTooManyRequests,
					"message": http.StatusText(http.StatusTooManyRequests),
				})
			}
			return next(c)
		}
	}
}
