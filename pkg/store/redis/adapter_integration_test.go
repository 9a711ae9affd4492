package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/nimburion/taskboard/pkg/observability/logger"
	"github.com/nimburion/taskboard/pkg/testutil"
)

func TestAdapter_Integration(t *testing.T) {
	testutil.RequireIntegration(t)
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	a, err := NewAdapter(Config{URL: url, MaxConns: 4, OperationTimeout: time.Second}, logger.Nop{})
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	defer a.Close()

	if err := a.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}

	key := fmt.Sprintf("test:%d", time.Now().UnixNano())
	for want := int64(1); want <= 3; want++ {
		got, err := a.IncrWindow(ctx, key, time.Minute)
		if err != nil {
			t.Fatalf("IncrWindow: %v", err)
		}
		if got != want {
			t.Errorf("count = %d, want %d", got, want)
		}
	}

	ttl, err := a.client.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Errorf("expected window ttl, got %v (%v)", ttl, err)
	}
}
