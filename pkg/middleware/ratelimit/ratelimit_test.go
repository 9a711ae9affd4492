package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nimburion/taskboard/pkg/auth"
	"github.com/nimburion/taskboard/pkg/middleware/authz"
	"github.com/nimburion/taskboard/pkg/server/router"
	ginrouter "github.com/nimburion/taskboard/pkg/server/router/gin"
)

type countingRecorder struct {
	mu    sync.Mutex
	count map[string]int
}

func (r *countingRecorder) RateLimited(limiter string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == nil {
		r.count = map[string]int{}
	}
	r.count[limiter]++
}

func newLimitedRouter(limiter RateLimiter, cfg Config, mw ...router.MiddlewareFunc) router.Router {
	r := ginrouter.NewRouter()
	r.Use(mw...)
	r.Use(RateLimit(limiter, cfg))
	r.GET("/ping", func(c router.Context) error { return c.String(http.StatusOK, "pong") })
	return r
}

func doRequest(r http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestTokenBucketLimiter_Allow(t *testing.T) {
	// Given a bucket of two tokens refilled once per second
	limiter := NewTokenBucketLimiter(1, 2)
	ctx := context.Background()

	// When three requests arrive at once
	// Then the burst is served and the third is rejected
	if !limiter.Allow(ctx, "a") || !limiter.Allow(ctx, "a") {
		t.Fatal("burst requests must be allowed")
	}
	if limiter.Allow(ctx, "a") {
		t.Fatal("request beyond burst must be rejected")
	}
	// And other keys have their own bucket
	if !limiter.Allow(ctx, "b") {
		t.Fatal("keys must be isolated")
	}
}

func TestTokenBucketLimiter_BurstNeverBelowRate(t *testing.T) {
	limiter := NewTokenBucketLimiter(5, 0)
	for i := 0; i < 5; i++ {
		if !limiter.Allow(context.Background(), "k") {
			t.Fatalf("request %d rejected", i)
		}
	}
}

func TestTokenBucketLimiter_ConcurrentAccess(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, 10)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow(context.Background(), "shared") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if allowed < 10 || allowed > 12 {
		t.Errorf("allowed = %d, want about 10", allowed)
	}
}

func TestRateLimit_RejectsWith429(t *testing.T) {
	rec := &countingRecorder{}
	r := newLimitedRouter(NewTokenBucketLimiter(1, 1), Config{Name: "public", RetryAfter: 1500 * time.Millisecond, Recorder: rec})

	if res := doRequest(r, "10.0.0.1:1234"); res.Code != http.StatusOK {
		t.Fatalf("first request status = %d", res.Code)
	}
	res := doRequest(r, "10.0.0.1:1234")
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d", res.Code)
	}
	if got := res.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want rounded up seconds", got)
	}
	if rec.count["public"] != 1 {
		t.Errorf("recorded rejections = %v", rec.count)
	}
	if res := doRequest(r, "10.0.0.2:1234"); res.Code != http.StatusOK {
		t.Errorf("other client status = %d", res.Code)
	}
}

func TestRateLimit_KeysAuthenticatedUsersByID(t *testing.T) {
	setClaims := func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if sub := c.Request().Header.Get("X-Test-User"); sub != "" {
				c.Set(authz.ClaimsKey, &auth.Claims{Subject: sub})
			}
			return next(c)
		}
	}
	r := newLimitedRouter(NewTokenBucketLimiter(1, 1), Config{}, setClaims)

	send := func(user, addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = addr
		req.Header.Set("X-Test-User", user)
		res := httptest.NewRecorder()
		r.ServeHTTP(res, req)
		return res.Code
	}

	// Same user from two addresses shares one bucket
	if code := send("u1", "10.0.0.1:1"); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if code := send("u1", "10.0.0.2:1"); code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", code)
	}
	// A different user from the first address is unaffected
	if code := send("u2", "10.0.0.1:1"); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
}

func TestExtractIPFromRequest(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{"forwarded for first hop", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "10.0.0.9:80", "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": " 198.51.100.7 "}, "10.0.0.9:80", "198.51.100.7"},
		{"remote addr", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"ipv6 remote addr", nil, "[2001:db8::1]:443", "2001:db8::1"},
		{"remote addr without port", nil, "192.0.2.1", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ExtractIPFromRequest(req); got != tt.want {
				t.Errorf("ExtractIPFromRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}
