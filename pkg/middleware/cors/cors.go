// Package cors answers browser preflight requests and tags responses with
// the Access-Control headers for allowed origins.
package cors

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nimburion/taskboard/pkg/server/router"
)

// Config configures CORS middleware behavior.
type Config struct {
	Enabled bool

	// AllowOrigins lists exact origins, "*" or single-wildcard patterns
	// such as "https://*.example.com".
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultConfig returns CORS defaults suited to the JSON API.
func DefaultConfig() Config {
	return Config{
		AllowOrigins:  []string{},
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", "If-None-Match", "X-Request-ID"},
		ExposeHeaders: []string{"ETag", "Last-Modified", "Retry-After", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
}

// Middleware returns a router middleware implementing CORS. Preflight
// requests from allowed origins are answered with 204; from other origins
// with 403.
func Middleware(cfg Config) router.MiddlewareFunc {
	cfg = normalize(cfg)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()
			origin := req.Header.Get("Origin")
			if !cfg.Enabled || origin == "" {
				return next(c)
			}

			h := c.Response().Header()
			if !cfg.isOriginAllowed(origin) {
				if isPreflight(req) {
					c.Response().WriteHeader(http.StatusForbidden)
					return nil
				}
				return next(c)
			}

			appendVary(h, "Origin")
			cfg.setOriginHeaders(h, origin)
			if len(cfg.ExposeHeaders) > 0 {
				h.Set("Access-Control-Expose-Headers", strings.Join(cfg.ExposeHeaders, ", "))
			}

			if isPreflight(req) {
				appendVary(h, "Access-Control-Request-Method")
				appendVary(h, "Access-Control-Request-Headers")
				h.Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowMethods, ", "))
				if len(cfg.AllowHeaders) > 0 {
					h.Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowHeaders, ", "))
				}
				if cfg.MaxAge > 0 {
					h.Set("Access-Control-Max-Age", strconv.Itoa(int(cfg.MaxAge/time.Second)))
				}
				c.Response().WriteHeader(http.StatusNoContent)
				return nil
			}

			return next(c)
		}
	}
}

func normalize(cfg Config) Config {
	defaults := DefaultConfig()
	if len(cfg.AllowMethods) == 0 {
		cfg.AllowMethods = defaults.AllowMethods
	}
	if cfg.AllowHeaders == nil {
		cfg.AllowHeaders = defaults.AllowHeaders
	}
	if cfg.ExposeHeaders == nil {
		cfg.ExposeHeaders = defaults.ExposeHeaders
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = defaults.MaxAge
	}

	cfg.AllowOrigins = trimAll(cfg.AllowOrigins, strings.TrimSpace)
	cfg.AllowMethods = trimAll(cfg.AllowMethods, func(s string) string { return strings.ToUpper(strings.TrimSpace(s)) })
	cfg.AllowHeaders = trimAll(cfg.AllowHeaders, strings.TrimSpace)
	cfg.ExposeHeaders = trimAll(cfg.ExposeHeaders, strings.TrimSpace)
	return cfg
}

func trimAll(values []string, fn func(string) string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = fn(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func isPreflight(req *http.Request) bool {
	return req.Method == http.MethodOptions && req.Header.Get("Access-Control-Request-Method") != ""
}

func (cfg Config) isOriginAllowed(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	for _, allowed := range cfg.AllowOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) || wildcardMatch(allowed, origin) {
			return true
		}
	}
	return false
}

// wildcardMatch accepts patterns with exactly one "*".
func wildcardMatch(pattern, value string) bool {
	if strings.Count(pattern, "*") != 1 {
		return false
	}
	prefix, suffix, _ := strings.Cut(pattern, "*")
	return len(value) > len(prefix)+len(suffix) &&
		strings.HasPrefix(value, prefix) && strings.HasSuffix(value, suffix)
}

// setOriginHeaders echoes the origin when credentials are allowed, since
// browsers reject "*" together with credentials.
func (cfg Config) setOriginHeaders(h http.Header, origin string) {
	if cfg.AllowCredentials {
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		return
	}
	for _, allowed := range cfg.AllowOrigins {
		if allowed == "*" {
			h.Set("Access-Control-Allow-Origin", "*")
			return
		}
	}
	h.Set("Access-Control-Allow-Origin", origin)
}

func appendVary(h http.Header, value string) {
	current := h.Get("Vary")
	if current == "" {
		h.Set("Vary", value)
		return
	}
	for _, part := range strings.Split(current, ",") {
		if strings.EqualFold(strings.TrimSpace(part), value) {
			return
		}
	}
	h.Set("Vary", current+", "+value)
}
