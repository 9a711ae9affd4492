// Package logging writes one structured log entry per HTTP request.
package logging

import (
	"net/http"
	"strings"
	"time"

	"github.com/nimburion/taskboard/pkg/middleware/requestid"
	"github.com/nimburion/taskboard/pkg/observability/logger"
	"github.com/nimburion/taskboard/pkg/server/router"
)

// Mode defines logging verbosity for matching request paths.
type Mode string

// Logging mode constants
const (
	// ModeOff disables request logging
	ModeOff Mode = "off"
	// ModeMinimal logs completion only, at debug level for successful requests
	ModeMinimal Mode = "minimal"
	// ModeFull logs start and completion
	ModeFull Mode = "full"
)

// Log field names.
const (
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatus     = "status"
	FieldDurationMS = "duration_ms"
	FieldError      = "error"
	FieldRemoteAddr = "remote_addr"
	FieldUserAgent  = "user_agent"
	FieldBytesIn    = "request_length"
)

// Config configures request logging middleware behavior.
type Config struct {
	Enabled              bool
	LogStart             bool
	ExcludedPathPrefixes []string
	PathPolicies         []PathPolicy
}

// PathPolicy configures a logging mode for a path prefix.
type PathPolicy struct {
	Prefix string
	Mode   Mode
}

// DefaultConfig returns default request logging behavior.
func DefaultConfig() Config {
	return Config{Enabled: true}
}

// Logging creates middleware with default configuration.
func Logging(log logger.Logger) router.MiddlewareFunc {
	return WithConfig(log, DefaultConfig())
}

// WithConfig creates request logging middleware. Completed requests are
// logged at error level for 5xx, warn for 4xx and info otherwise.
func WithConfig(log logger.Logger, cfg Config) router.MiddlewareFunc {
	cfg = normalize(cfg)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()
			mode := cfg.modeForPath(req.URL.Path)
			if mode == ModeOff {
				return next(c)
			}

			start := time.Now()
			reqLog := log.With(
				FieldRequestID, requestid.GetRequestID(req.Context()),
				FieldMethod, req.Method,
				FieldPath, req.URL.Path,
			)
			if cfg.LogStart && mode == ModeFull {
				reqLog.Debug("request started",
					FieldQuery, req.URL.RawQuery,
					FieldRemoteAddr, req.RemoteAddr,
					FieldUserAgent, req.UserAgent(),
					FieldBytesIn, max(req.ContentLength, 0),
				)
			}

			err := next(c)
			status := c.Response().Status()
			if err != nil && !c.Response().Written() {
				status = http.StatusInternalServerError
			}
			fields := []any{
				FieldStatus, status,
				FieldDurationMS, time.Since(start).Milliseconds(),
				FieldRemoteAddr, req.RemoteAddr,
			}
			if err != nil {
				fields = append(fields, FieldError, err.Error())
			}

			switch {
			case status >= http.StatusInternalServerError || err != nil:
				reqLog.Error("request failed", fields...)
			case status >= http.StatusBadRequest:
				reqLog.Warn("request completed", fields...)
			case mode == ModeMinimal:
				reqLog.Debug("request completed", fields...)
			default:
				reqLog.Info("request completed", fields...)
			}
			return err
		}
	}
}

func normalize(cfg Config) Config {
	policies := make([]PathPolicy, 0, len(cfg.PathPolicies))
	for _, p := range cfg.PathPolicies {
		if strings.TrimSpace(p.Prefix) == "" {
			continue
		}
		policies = append(policies, PathPolicy{Prefix: p.Prefix, Mode: parseMode(p.Mode)})
	}
	cfg.PathPolicies = policies
	return cfg
}

func (c Config) modeForPath(path string) Mode {
	if !c.Enabled {
		return ModeOff
	}
	for _, prefix := range c.ExcludedPathPrefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return ModeOff
		}
	}

	bestLen := -1
	bestMode := ModeFull
	for _, policy := range c.PathPolicies {
		if strings.HasPrefix(path, policy.Prefix) && len(policy.Prefix) > bestLen {
			bestLen = len(policy.Prefix)
			bestMode = policy.Mode
		}
	}
	return bestMode
}

func parseMode(mode Mode) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(string(mode)))) {
	case ModeOff:
		return ModeOff
	case ModeMinimal:
		return ModeMinimal
	default:
		return ModeFull
	}
}
