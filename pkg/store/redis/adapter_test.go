package redis

import (
	"testing"
	"time"

	"github.com/nimburion/taskboard/pkg/observability/logger"
)

func TestNewAdapter_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "empty url", cfg: Config{}, want: "redis URL is required"},
		{name: "bad scheme", cfg: Config{URL: "invalid://url", OperationTimeout: time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAdapter(tt.cfg, logger.Nop{})
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != "" && err.Error() != tt.want {
				t.Errorf("got %q, want %q", err.Error(), tt.want)
			}
		})
	}
}

func TestClose_WithoutCloser(t *testing.T) {
	a := &Adapter{logger: logger.Nop{}}
	if err := a.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
