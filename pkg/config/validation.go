package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Service.Name) == "" {
		errs = append(errs, errors.New("service.name is required"))
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}
	if !contains([]string{"gin", "gorilla"}, c.HTTP.Router) {
		errs = append(errs, fmt.Errorf("invalid http.router: %q (must be one of: gin, gorilla)", c.HTTP.Router))
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("http.shutdown_timeout must be greater than 0"))
	}
	if c.Management.Enabled {
		if c.Management.Port <= 0 || c.Management.Port > 65535 {
			errs = append(errs, fmt.Errorf("management.port must be between 1 and 65535, got %d", c.Management.Port))
		}
		if c.Management.Port == c.HTTP.Port {
			errs = append(errs, errors.New("management.port must differ from http.port"))
		}
	}

	switch c.Database.Type {
	case DatabaseTypeMemory:
	case DatabaseTypeMongoDB:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for MongoDB"))
		}
		if c.Database.DatabaseName == "" {
			errs = append(errs, errors.New("database.database_name is required for MongoDB"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid database.type: %q (must be one of: memory, mongodb)", c.Database.Type))
	}

	if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("auth.jwt_secret must be at least 32 characters"))
	}
	if c.Auth.Issuer == "" {
		errs = append(errs, errors.New("auth.issuer is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be greater than 0"))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("auth.bcrypt_cost must be between 4 and 31, got %d", c.Auth.BcryptCost))
	}

	if c.RateLimit.Enabled {
		switch c.RateLimit.Type {
		case RateLimitTypeLocal:
			if c.RateLimit.RequestsPerSecond <= 0 {
				errs = append(errs, errors.New("ratelimit.requests_per_second must be greater than 0"))
			}
		case RateLimitTypeRedis:
			if c.Redis.URL == "" {
				errs = append(errs, errors.New("redis.url is required when ratelimit.type is redis"))
			}
			if c.RateLimit.Burst <= 0 {
				errs = append(errs, errors.New("ratelimit.burst must be greater than 0 for the redis limiter"))
			}
			if c.RateLimit.Window <= 0 {
				errs = append(errs, errors.New("ratelimit.window must be greater than 0"))
			}
		default:
			errs = append(errs, fmt.Errorf("invalid ratelimit.type: %q (must be one of: local, redis)", c.RateLimit.Type))
		}
	}

	if c.Pagination.MaxLimit <= 0 {
		errs = append(errs, errors.New("pagination.max_limit must be greater than 0"))
	}
	if c.Pagination.DefaultLimit <= 0 || c.Pagination.DefaultLimit > c.Pagination.MaxLimit {
		errs = append(errs, fmt.Errorf("pagination.default_limit must be between 1 and pagination.max_limit (%d)", c.Pagination.MaxLimit))
	}

	if c.CORS.Enabled && len(c.CORS.AllowOrigins) == 0 {
		errs = append(errs, errors.New("cors.allow_origins must not be empty when cors is enabled"))
	}
	if c.CORS.AllowCredentials && contains(c.CORS.AllowOrigins, "*") {
		errs = append(errs, errors.New("cors.allow_credentials cannot be combined with a \"*\" origin"))
	}

	if c.Compression.Enabled && !c.Compression.Gzip && !c.Compression.Brotli {
		errs = append(errs, errors.New("compression requires gzip or brotli to be enabled"))
	}

	if !contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Observability.LogLevel)) {
		errs = append(errs, fmt.Errorf("invalid observability.log_level: %q", c.Observability.LogLevel))
	}
	if !contains([]string{"json", "text"}, strings.ToLower(c.Observability.LogFormat)) {
		errs = append(errs, fmt.Errorf("invalid observability.log_format: %q", c.Observability.LogFormat))
	}
	if c.Observability.TracingEnabled {
		if c.Observability.TracingEndpoint == "" {
			errs = append(errs, errors.New("observability.tracing_endpoint is required when tracing is enabled"))
		}
		if c.Observability.TracingSampleRate < 0 || c.Observability.TracingSampleRate > 1 {
			errs = append(errs, errors.New("observability.tracing_sample_rate must be between 0 and 1"))
		}
	}

	if c.Seed.OnStartup && len(c.Seed.AdminPassword) < 8 {
		errs = append(errs, errors.New("seed.admin_password must be at least 8 characters when seeding on startup"))
	}

	return errors.Join(errs...)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
