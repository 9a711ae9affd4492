package server

import (
	"net/http"
	"time"

	"github.com/nimburion/taskboard/pkg/config"
	"github.com/nimburion/taskboard/pkg/health"
	"github.com/nimburion/taskboard/pkg/middleware/logging"
	"github.com/nimburion/taskboard/pkg/middleware/recovery"
	"github.com/nimburion/taskboard/pkg/middleware/requestid"
	"github.com/nimburion/taskboard/pkg/observability/logger"
	"github.com/nimburion/taskboard/pkg/observability/metrics"
	"github.com/nimburion/taskboard/pkg/server/router"
	"github.com/nimburion/taskboard/pkg/version"
)

// ManagementServer serves operational endpoints on a separate port:
//
//	/health   liveness, always 200
//	/ready    dependency checks, 503 when a critical dependency is down
//	/metrics  Prometheus exposition
//	/version  build metadata
type ManagementServer struct {
	*Server
	router          router.Router
	healthRegistry  *health.Registry
	metricsRegistry *metrics.Registry
	info            version.Info
}

// NewManagementServer registers the management endpoints on r.
func NewManagementServer(
	cfg config.ManagementConfig,
	r router.Router,
	log logger.Logger,
	healthRegistry *health.Registry,
	metricsRegistry *metrics.Registry,
	info version.Info,
) *ManagementServer {
	if healthRegistry == nil {
		healthRegistry = health.NewRegistry()
	}

	loggingCfg := logging.DefaultConfig()
	loggingCfg.PathPolicies = []logging.PathPolicy{
		{Prefix: "/health", Mode: logging.ModeMinimal},
		{Prefix: "/metrics", Mode: logging.ModeMinimal},
	}
	r.Use(
		requestid.RequestID(),
		logging.WithConfig(log, loggingCfg),
		recovery.Recovery(log),
	)

	s := &ManagementServer{
		Server: NewServer(Config{
			Name:         "management",
			Port:         cfg.Port,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		}, r, log),
		router:          r,
		healthRegistry:  healthRegistry,
		metricsRegistry: metricsRegistry,
		info:            info,
	}

	r.GET("/health", s.handleHealth)
	r.GET("/ready", s.handleReady)
	r.GET("/version", s.handleVersion)
	if metricsRegistry != nil {
		r.GET("/metrics", s.handleMetrics)
	}
	return s
}

// Router returns the router for registering extra management routes.
func (s *ManagementServer) Router() router.Router { return s.router }

func (s *ManagementServer) handleHealth(c router.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"status": health.StatusHealthy})
}

// handleReady answers 200 while the service can take traffic, including in
// degraded mode, and 503 otherwise.
func (s *ManagementServer) handleReady(c router.Context) error {
	result := s.healthRegistry.Check(c.Request().Context())
	if !result.IsServing() {
		return c.JSON(http.StatusServiceUnavailable, result)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *ManagementServer) handleMetrics(c router.Context) error {
	s.metricsRegistry.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}

func (s *ManagementServer) handleVersion(c router.Context) error {
	return c.JSON(http.StatusOK, s.info)
}
