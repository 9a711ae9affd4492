package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/nimburion/taskboard/pkg/observability/logger"
)

// WindowCounter increments a counter that expires after window.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisConfig configures RedisRateLimiter.
type RedisConfig struct {
	// Limit is the number of requests allowed per window.
	Limit int
	// Window is the fixed window length. Defaults to one second.
	Window time.Duration
	// Prefix namespaces the counter keys. Defaults to "ratelimit".
	Prefix string
}

// RedisRateLimiter implements a fixed window counter shared through Redis.
// When Redis is unreachable requests are allowed.
type RedisRateLimiter struct {
	counter WindowCounter
	limit   int64
	window  time.Duration
	prefix  string
	log     logger.Logger
}

// NewRedisRateLimiter creates a Redis-backed rate limiter over counter.
func NewRedisRateLimiter(counter WindowCounter, cfg RedisConfig, log logger.Logger) (*RedisRateLimiter, error) {
	if counter == nil {
		return nil, errors.New("redis counter is required for distributed rate limiting")
	}
	if cfg.Limit <= 0 {
		return nil, errors.New("rate limit must be greater than zero")
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Second
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "ratelimit"
	}
	log.Info("redis rate limiter enabled", "limit", cfg.Limit, "window", cfg.Window, "prefix", cfg.Prefix)
	return &RedisRateLimiter{
		counter: counter,
		limit:   int64(cfg.Limit),
		window:  cfg.Window,
		prefix:  cfg.Prefix,
		log:     log,
	}, nil
}

// Window returns the configured window, suitable for Config.RetryAfter.
func (r *RedisRateLimiter) Window() time.Duration { return r.window }

// Allow counts the request in the current window for key.
func (r *RedisRateLimiter) Allow(ctx context.Context, key string) bool {
	count, err := r.counter.IncrWindow(ctx, r.prefix+":"+key, r.window)
	if err != nil {
		r.log.Error("redis rate limiter increment failed", "error", err)
		return true
	}
	return count <= r.limit
}
