// Package securityheaders sets hardening headers suited to a JSON API.
package securityheaders

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/server/router"
)

// Config defines the headers written on every response.
type Config struct {
	Enabled bool

	// AllowedHosts restricts the Host header. Empty allows any host.
	AllowedHosts []string
	// SSLProxyHeaders mark a request as secure when a header has the given value.
	SSLProxyHeaders map[string]string

	STSSeconds            int64
	STSIncludeSubdomains  bool
	FrameOptions          string
	ContentSecurityPolicy string
	ReferrerPolicy        string
	CustomHeaders         map[string]string
}

// DefaultConfig returns defaults for an API that serves no HTML.
func DefaultConfig() Config {
	return Config{
		Enabled:               true,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		STSSeconds:            31536000,
		STSIncludeSubdomains:  true,
		FrameOptions:          "DENY",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "no-referrer",
	}
}

// Middleware writes the configured headers before calling next.
func Middleware(cfg Config) router.MiddlewareFunc {
	cfg = normalize(cfg)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if !cfg.Enabled {
				return next(c)
			}
			if !hostAllowed(c.Request(), cfg.AllowedHosts) {
				return controller.Error(c, controller.NewForbiddenError("host is not allowed"))
			}
			applyHeaders(c.Response().Header(), cfg, isSecure(c.Request(), cfg.SSLProxyHeaders))
			return next(c)
		}
	}
}

func normalize(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.SSLProxyHeaders == nil {
		cfg.SSLProxyHeaders = defaults.SSLProxyHeaders
	}
	if strings.TrimSpace(cfg.FrameOptions) == "" {
		cfg.FrameOptions = defaults.FrameOptions
	}
	if strings.TrimSpace(cfg.ContentSecurityPolicy) == "" {
		cfg.ContentSecurityPolicy = defaults.ContentSecurityPolicy
	}
	if strings.TrimSpace(cfg.ReferrerPolicy) == "" {
		cfg.ReferrerPolicy = defaults.ReferrerPolicy
	}
	return cfg
}

func applyHeaders(h http.Header, cfg Config, secure bool) {
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", cfg.FrameOptions)
	h.Set("Content-Security-Policy", cfg.ContentSecurityPolicy)
	h.Set("Referrer-Policy", cfg.ReferrerPolicy)
	h.Set("Cross-Origin-Resource-Policy", "same-origin")
	if secure && cfg.STSSeconds > 0 {
		sts := fmt.Sprintf("max-age=%d", cfg.STSSeconds)
		if cfg.STSIncludeSubdomains {
			sts += "; includeSubDomains"
		}
		h.Set("Strict-Transport-Security", sts)
	}
	for k, v := range cfg.CustomHeaders {
		if strings.TrimSpace(k) == "" {
			continue
		}
		h.Set(k, v)
	}
}

func isSecure(r *http.Request, proxyHeaders map[string]string) bool {
	if r.TLS != nil {
		return true
	}
	for k, v := range proxyHeaders {
		if strings.EqualFold(strings.TrimSpace(r.Header.Get(k)), v) {
			return true
		}
	}
	return false
}

func hostAllowed(r *http.Request, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	for _, a := range allowed {
		if strings.EqualFold(host, a) {
			return true
		}
	}
	return false
}
