package server

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/nimburion/taskboard/pkg/config"
	"github.com/nimburion/taskboard/pkg/middleware/compression"
	"github.com/nimburion/taskboard/pkg/middleware/cors"
	"github.com/nimburion/taskboard/pkg/middleware/logging"
	"github.com/nimburion/taskboard/pkg/middleware/metrics"
	"github.com/nimburion/taskboard/pkg/middleware/recovery"
	"github.com/nimburion/taskboard/pkg/middleware/requestid"
	"github.com/nimburion/taskboard/pkg/middleware/requestsize"
	"github.com/nimburion/taskboard/pkg/middleware/securityheaders"
	timeoutmiddleware "github.com/nimburion/taskboard/pkg/middleware/timeout"
	"github.com/nimburion/taskboard/pkg/middleware/tracing"
	"github.com/nimburion/taskboard/pkg/observability/logger"
	obsmetrics "github.com/nimburion/taskboard/pkg/observability/metrics"
	"github.com/nimburion/taskboard/pkg/server/router"
)

// PublicOptions carries the collaborators of the public middleware stack.
type PublicOptions struct {
	Logger logger.Logger
	// Metrics is optional; without it no HTTP metrics are recorded.
	Metrics *obsmetrics.Registry
	// TracerProvider is used when tracing is enabled. Defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// PublicAPIServer serves the /api routes.
type PublicAPIServer struct {
	*Server
	router      router.Router
	middlewares []string
}

// NewPublicAPIServer installs the standard middleware stack on r and wraps
// it in a Server. Routes are registered by the caller afterwards.
//
// Order: request id, security headers, CORS, logging, recovery, metrics,
// tracing, compression, timeout, request size.
func NewPublicAPIServer(cfg *config.Config, r router.Router, opts PublicOptions) *PublicAPIServer {
	log := opts.Logger
	if log == nil {
		log = logger.Nop{}
	}

	type middlewareEntry struct {
		name string
		fn   router.MiddlewareFunc
	}
	entries := []middlewareEntry{
		{name: "request_id", fn: requestid.RequestID()},
		{name: "security_headers", fn: securityheaders.Middleware(securityHeadersConfig(cfg.SecurityHeaders))},
		{name: "cors", fn: cors.Middleware(corsConfig(cfg.CORS))},
		{name: "logging", fn: logging.WithConfig(log, logging.Config{
			Enabled:              cfg.Observability.RequestLogging.Enabled,
			LogStart:             cfg.Observability.RequestLogging.LogStart,
			ExcludedPathPrefixes: cfg.Observability.RequestLogging.ExcludedPathPrefixes,
		})},
		{name: "recovery", fn: recovery.Recovery(log)},
	}
	if opts.Metrics != nil {
		entries = append(entries, middlewareEntry{name: "metrics", fn: metrics.Metrics(opts.Metrics.HTTP)})
	}
	if cfg.Observability.TracingEnabled {
		entries = append(entries, middlewareEntry{name: "tracing", fn: tracing.Tracing(tracing.Config{
			TracerName:     cfg.Service.Name,
			TracerProvider: opts.TracerProvider,
		})})
	}
	entries = append(entries,
		middlewareEntry{name: "compression", fn: compression.Middleware(compressionConfig(cfg.Compression))},
		middlewareEntry{name: "timeout", fn: timeoutmiddleware.Middleware(timeoutmiddleware.Config{
			Enabled:              cfg.HTTP.RequestTimeout.Enabled,
			Default:              cfg.HTTP.RequestTimeout.Default,
			ExcludedPathPrefixes: cfg.HTTP.RequestTimeout.ExcludedPathPrefixes,
		})},
		middlewareEntry{name: "request_size", fn: requestsize.Middleware(cfg.HTTP.MaxRequestSize)},
	)

	fns := make([]router.MiddlewareFunc, 0, len(entries))
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		fns = append(fns, e.fn)
		names = append(names, e.name)
	}
	log.Debug("active middleware stack", "middlewares", strings.Join(names, ", "))
	r.Use(fns...)

	base := NewServer(Config{
		Name:            "public",
		Port:            cfg.HTTP.Port,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		IdleTimeout:     cfg.HTTP.IdleTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, r, log)

	return &PublicAPIServer{Server: base, router: r, middlewares: names}
}

// Router returns the router for route registration.
func (s *PublicAPIServer) Router() router.Router { return s.router }

// Middlewares lists the installed middleware in order.
func (s *PublicAPIServer) Middlewares() []string { return append([]string(nil), s.middlewares...) }

// Start starts the public API server.
func (s *PublicAPIServer) Start(ctx context.Context) error { return s.Server.Start(ctx) }

func corsConfig(c config.CORSConfig) cors.Config {
	out := cors.DefaultConfig()
	out.Enabled = c.Enabled
	out.AllowOrigins = c.AllowOrigins
	out.AllowCredentials = c.AllowCredentials
	if len(c.AllowMethods) > 0 {
		out.AllowMethods = c.AllowMethods
	}
	if len(c.AllowHeaders) > 0 {
		out.AllowHeaders = c.AllowHeaders
	}
	if len(c.ExposeHeaders) > 0 {
		out.ExposeHeaders = c.ExposeHeaders
	}
	if c.MaxAge > 0 {
		out.MaxAge = c.MaxAge
	}
	return out
}

func securityHeadersConfig(c config.SecurityHeadersConfig) securityheaders.Config {
	out := securityheaders.DefaultConfig()
	out.Enabled = c.Enabled
	out.AllowedHosts = c.AllowedHosts
	out.STSSeconds = c.STSSeconds
	out.STSIncludeSubdomains = c.STSIncludeSubdomains
	return out
}

func compressionConfig(c config.CompressionConfig) compression.Config {
	out := compression.DefaultConfig()
	out.Enabled = c.Enabled
	out.EnableGzip = c.Gzip
	out.EnableBrotli = c.Brotli
	if c.GzipLevel != 0 {
		out.GzipLevel = c.GzipLevel
	}
	if c.BrotliLevel != 0 {
		out.BrotliLevel = c.BrotliLevel
	}
	if c.MinSize > 0 {
		out.MinSize = c.MinSize
	}
	return out
}
