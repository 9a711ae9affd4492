// Package redis provides the shared Redis connection used for distributed
// rate limiting and health reporting.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nimburion/taskboard/pkg/observability/logger"
)

// Config holds Redis connection settings.
type Config struct {
	URL              string
	MaxConns         int
	OperationTimeout time.Duration
}

// Adapter wraps a pooled go-redis client.
type Adapter struct {
	client  redis.Cmdable
	closer  func() error
	logger  logger.Logger
	timeout time.Duration
}

// NewAdapter parses cfg.URL, connects and pings.
func NewAdapter(cfg Config, log logger.Logger) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis URL is required")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		opts.PoolSize = cfg.MaxConns
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 2 * time.Second
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = cfg.OperationTimeout
	opts.WriteTimeout = cfg.OperationTimeout

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Info("redis connection established", "max_conns", opts.PoolSize, "operation_timeout", cfg.OperationTimeout)
	return newAdapter(client, client.Close, cfg.OperationTimeout, log), nil
}

func newAdapter(client redis.Cmdable, closer func() error, timeout time.Duration, log logger.Logger) *Adapter {
	return &Adapter{client: client, closer: closer, logger: log, timeout: timeout}
}

// Ping verifies the connection.
func (a *Adapter) Ping(ctx context.Context) error {
	return a.client.Ping(ctx).Err()
}

// HealthCheck pings with a short timeout.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := a.Ping(ctx); err != nil {
		a.logger.Error("redis health check failed", "error", err)
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// IncrWindow increments key and starts its expiry window on first use. It
// returns the count within the current window.
func (a *Adapter) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	pipe := a.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment key %s: %w", key, err)
	}
	return incr.Val(), nil
}

// Close releases the connection pool.
func (a *Adapter) Close() error {
	if a.closer == nil {
		return nil
	}
	if err := a.closer(); err != nil {
		return fmt.Errorf("failed to close redis connection: %w", err)
	}
	a.logger.Info("redis connection closed")
	return nil
}
