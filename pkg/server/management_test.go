package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nimburion/taskboard/pkg/config"
	"github.com/nimburion/taskboard/pkg/health"
	"github.com/nimburion/taskboard/pkg/observability/logger"
	"github.com/nimburion/taskboard/pkg/observability/metrics"
	gorillarouter "github.com/nimburion/taskboard/pkg/server/router/gorilla"
	"github.com/nimburion/taskboard/pkg/version"
)

type probe struct{ err error }

func (p probe) HealthCheck(context.Context) error { return p.err }

func newManagement(t *testing.T, checks ...health.Checker) *ManagementServer {
	t.Helper()
	reg := health.NewRegistry()
	for _, c := range checks {
		reg.Register(c)
	}
	return NewManagementServer(
		config.DefaultConfig().Management,
		gorillarouter.NewRouter(),
		logger.Nop{},
		reg,
		metrics.NewRegistry("test"),
		version.Info{Service: "taskboard", Version: "v1.0.0"},
	)
}

func get(s *ManagementServer, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestManagementServer_Health(t *testing.T) {
	s := newManagement(t, health.NewDatabaseChecker("mongodb", probe{err: errors.New("down")}))

	rec := get(s, "/health")

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"healthy"`) {
		t.Errorf("GET /health = %d %s", rec.Code, rec.Body.String())
	}
}

func TestManagementServer_Ready(t *testing.T) {
	down := errors.New("connection refused")
	tests := []struct {
		name       string
		checks     []health.Checker
		wantStatus int
		wantState  health.Status
	}{
		{
			name:       "all healthy",
			checks:     []health.Checker{health.NewDatabaseChecker("mongodb", probe{})},
			wantStatus: http.StatusOK,
			wantState:  health.StatusHealthy,
		},
		{
			name:       "cache down is degraded but ready",
			checks:     []health.Checker{health.NewDatabaseChecker("mongodb", probe{}), health.NewCacheChecker("redis", probe{err: down})},
			wantStatus: http.StatusOK,
			wantState:  health.StatusDegraded,
		},
		{
			name:       "database down",
			checks:     []health.Checker{health.NewDatabaseChecker("mongodb", probe{err: down})},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  health.StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(newManagement(t, tt.checks...), "/ready")

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body health.AggregatedResult
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Status != tt.wantState || len(body.Checks) != len(tt.checks) {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestManagementServer_MetricsAndVersion(t *testing.T) {
	s := newManagement(t)

	if rec := get(s, "/metrics"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Errorf("GET /metrics = %d", rec.Code)
	}

	rec := get(s, "/version")
	var info version.Info
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info.Service != "taskboard" || info.Version != "v1.0.0" {
		t.Errorf("version = %+v", info)
	}
}
