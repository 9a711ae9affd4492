// Package ratelimit throttles requests per caller with either an in-process
// token bucket or a Redis fixed window shared across instances.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/middleware/authz"
	"github.com/nimburion/taskboard/pkg/server/router"
)

// RateLimiter decides whether a request for key may proceed.
// Implementations must be safe for concurrent use.
type RateLimiter interface {
	Allow(ctx context.Context, key string) bool
}

// TokenBucketLimiter keeps one token bucket per key in process memory.
type TokenBucketLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewTokenBucketLimiter allows requestsPerSecond on average with bursts of up to burst.
func NewTokenBucketLimiter(requestsPerSecond int, burst int) *TokenBucketLimiter {
	if burst < requestsPerSecond {
		burst = requestsPerSecond
	}
	return &TokenBucketLimiter{
		rate:  rate.Limit(requestsPerSecond),
		burst: burst,
	}
}

// Allow takes a token from key's bucket.
func (l *TokenBucketLimiter) Allow(_ context.Context, key string) bool {
	return l.getLimiter(key).Allow()
}

func (l *TokenBucketLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, ok := l.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}
	limiter, _ := l.limiters.LoadOrStore(key, rate.NewLimiter(l.rate, l.burst))
	return limiter.(*rate.Limiter)
}

// Recorder counts rejected requests.
type Recorder interface {
	RateLimited(limiter string)
}

// Config defines the configuration for rate limiting middleware.
type Config struct {
	// Name labels rejections in metrics. Defaults to "api".
	Name string
	// KeyFunc extracts the rate limiting key. Defaults to KeyByUserOrIP.
	KeyFunc func(router.Context) string
	// RetryAfter is advertised on rejected requests. Defaults to one second.
	RetryAfter time.Duration
	// Recorder is optional.
	Recorder Recorder
}

// RateLimit rejects requests over the limit with 429 and a Retry-After header.
func RateLimit(limiter RateLimiter, cfg Config) router.MiddlewareFunc {
	if cfg.Name == "" {
		cfg.Name = "api"
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByUserOrIP
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = time.Second
	}
	retryAfter := strconv.Itoa(int((cfg.RetryAfter + time.Second - 1) / time.Second))

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if limiter.Allow(c.Request().Context(), cfg.KeyFunc(c)) {
				return next(c)
			}
			if cfg.Recorder != nil {
				cfg.Recorder.RateLimited(cfg.Name)
			}
			c.Response().Header().Set("Retry-After", retryAfter)
			return controller.Error(c, &controller.AppError{
				Code:       "rate_limit.exceeded",
				Message:    "rate limit exceeded",
				HTTPStatus: http.StatusTooManyRequests,
			})
		}
	}
}

// KeyByUserOrIP keys authenticated callers by user id and everyone else by client IP.
func KeyByUserOrIP(c router.Context) string {
	if id := ExtractUserIDFromContext(c); id != "" {
		return "user:" + id
	}
	return "ip:" + ExtractIPFromRequest(c.Request())
}

// ExtractIPFromRequest returns the client IP, preferring X-Forwarded-For and
// X-Real-IP over RemoteAddr.
func ExtractIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// ExtractUserIDFromContext returns the authenticated subject, or "".
func ExtractUserIDFromContext(c router.Context) string {
	if claims := authz.ClaimsFrom(c); claims != nil {
		return claims.Subject
	}
	return ""
}
