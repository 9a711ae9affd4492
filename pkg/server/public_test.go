package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nimburion/taskboard/pkg/config"
	"github.com/nimburion/taskboard/pkg/middleware/requestid"
	"github.com/nimburion/taskboard/pkg/observability/logger"
	obsmetrics "github.com/nimburion/taskboard/pkg/observability/metrics"
	"github.com/nimburion/taskboard/pkg/server/router"
	ginrouter "github.com/nimburion/taskboard/pkg/server/router/gin"
)

func TestPublicAPIServer_MiddlewareStack(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		metrics bool
		want    string
	}{
		{
			name: "without metrics or tracing",
			want: "request_id,security_headers,cors,logging,recovery,compression,timeout,request_size",
		},
		{
			name:    "with metrics and tracing",
			mutate:  func(c *config.Config) { c.Observability.TracingEnabled = true },
			metrics: true,
			want:    "request_id,security_headers,cors,logging,recovery,metrics,tracing,compression,timeout,request_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			opts := PublicOptions{Logger: logger.Nop{}}
			if tt.metrics {
				opts.Metrics = obsmetrics.NewRegistry("test")
			}

			srv := NewPublicAPIServer(cfg, ginrouter.NewRouter(), opts)

			if got := strings.Join(srv.Middlewares(), ","); got != tt.want {
				t.Errorf("middlewares = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPublicAPIServer_AppliesStack(t *testing.T) {
	// Given
	cfg := config.DefaultConfig()
	cfg.HTTP.MaxRequestSize = 16
	srv := NewPublicAPIServer(cfg, ginrouter.NewRouter(), PublicOptions{Logger: logger.Nop{}})
	srv.Router().POST("/api/v1/echo", func(c router.Context) error {
		var body map[string]interface{}
		if err := c.Bind(&body); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, body)
	})

	// When
	req := httptest.NewRequest(http.MethodPost, "/api/v1/echo", strings.NewReader(`{"title":"way too long for the limit"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	// Then
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
	if rec.Header().Get(requestid.RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
}
