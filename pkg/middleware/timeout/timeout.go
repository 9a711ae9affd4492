// Package timeout bounds request handling time with a context deadline.
package timeout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/server/router"
)

// Mode switches the deadline on or off for a path prefix.
type Mode string

const (
	ModeOff Mode = "off"
	ModeOn  Mode = "on"
)

// Config configures the timeout middleware.
type Config struct {
	Enabled              bool
	Default              time.Duration
	ExcludedPathPrefixes []string
	PathPolicies         []PathPolicy
}

// PathPolicy overrides the mode, and optionally the deadline, for a path
// prefix. The longest matching prefix wins.
type PathPolicy struct {
	Prefix  string
	Mode    Mode
	Timeout time.Duration
}

// DefaultConfig returns the default timeout settings.
func DefaultConfig() Config {
	return Config{Enabled: false, Default: 15 * time.Second}
}

// Middleware applies a request deadline. When the handler fails with a
// deadline error and has not written a response, a 504 is rendered.
func Middleware(cfg Config) router.MiddlewareFunc {
	cfg = normalize(cfg)
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			d, ok := cfg.timeoutFor(c.Request().URL.Path)
			if !ok {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), d)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return err
			}
			if c.Response().Written() {
				return nil
			}
			return controller.Error(c, controller.NewTimeoutError())
		}
	}
}

func normalize(cfg Config) Config {
	out := cfg
	out.PathPolicies = make([]PathPolicy, 0, len(cfg.PathPolicies))
	for _, p := range cfg.PathPolicies {
		if strings.TrimSpace(p.Prefix) == "" {
			continue
		}
		p.Mode = parseMode(p.Mode)
		out.PathPolicies = append(out.PathPolicies, p)
	}
	if out.Default <= 0 {
		out.Default = DefaultConfig().Default
	}
	return out
}

// timeoutFor reports the deadline for path, or false when none applies.
func (cfg Config) timeoutFor(path string) (time.Duration, bool) {
	if !cfg.Enabled {
		return 0, false
	}
	for _, prefix := range cfg.ExcludedPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return 0, false
		}
	}

	var best *PathPolicy
	for i := range cfg.PathPolicies {
		p := &cfg.PathPolicies[i]
		if strings.HasPrefix(path, p.Prefix) && (best == nil || len(p.Prefix) > len(best.Prefix)) {
			best = p
		}
	}
	if best == nil {
		return cfg.Default, true
	}
	if best.Mode == ModeOff {
		return 0, false
	}
	if best.Timeout > 0 {
		return best.Timeout, true
	}
	return cfg.Default, true
}

func parseMode(mode Mode) Mode {
	if strings.EqualFold(strings.TrimSpace(string(mode)), string(ModeOff)) {
		return ModeOff
	}
	return ModeOn
}
