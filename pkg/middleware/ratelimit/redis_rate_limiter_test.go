package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nimburion/taskboard/pkg/observability/logger"
)

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	keys   []string
	err    error
}

func (f *fakeCounter) IncrWindow(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[key]++
	f.keys = append(f.keys, key)
	return f.counts[key], nil
}

func (f *fakeCounter) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = nil
}

func TestRedisRateLimiter_AllowsWithinLimitAndResetsWindow(t *testing.T) {
	counter := &fakeCounter{}
	limiter, err := NewRedisRateLimiter(counter, RedisConfig{Limit: 2}, logger.Nop{})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if !limiter.Allow(ctx, "ip:1") || !limiter.Allow(ctx, "ip:1") {
		t.Fatal("requests within the limit must pass")
	}
	if limiter.Allow(ctx, "ip:1") {
		t.Fatal("third request in the window must be rejected")
	}

	// When the window expires the counter starts over
	counter.reset()
	if !limiter.Allow(ctx, "ip:1") {
		t.Fatal("request in a new window must pass")
	}
	if counter.keys[0] != "ratelimit:ip:1" {
		t.Errorf("key = %q", counter.keys[0])
	}
	if limiter.Window() != time.Second {
		t.Errorf("default window = %v", limiter.Window())
	}
}

func TestRedisRateLimiter_FailsOpen(t *testing.T) {
	limiter, err := NewRedisRateLimiter(&fakeCounter{err: errors.New("connection refused")}, RedisConfig{Limit: 1, Prefix: "rl"}, logger.Nop{})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if !limiter.Allow(context.Background(), "k") {
			t.Fatal("limiter must allow requests when redis fails")
		}
	}
}

func TestNewRedisRateLimiter_Validation(t *testing.T) {
	if _, err := NewRedisRateLimiter(nil, RedisConfig{Limit: 1}, logger.Nop{}); err == nil {
		t.Error("expected error for nil counter")
	}
	if _, err := NewRedisRateLimiter(&fakeCounter{}, RedisConfig{}, logger.Nop{}); err == nil {
		t.Error("expected error for zero limit")
	}
}
