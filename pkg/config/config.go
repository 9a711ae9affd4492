// Package config defines the taskboard configuration and loads it from
// defaults, an optional file, an optional secrets file and the environment.
package config

import "time"

// Database type constants
const (
	// DatabaseTypeMemory keeps everything in process memory.
	DatabaseTypeMemory = "memory"
	// DatabaseTypeMongoDB represents MongoDB database
	DatabaseTypeMongoDB = "mongodb"
)

// Rate limiter backends
const (
	RateLimitTypeLocal = "local"
	RateLimitTypeRedis = "redis"
)

// Config is the root configuration structure.
type Config struct {
	Service         ServiceConfig         `mapstructure:"service"`
	HTTP            HTTPConfig            `mapstructure:"http"`
	Management      ManagementConfig      `mapstructure:"management"`
	Database        DatabaseConfig        `mapstructure:"database"`
	Redis           RedisConfig           `mapstructure:"redis"`
	Auth            AuthConfig            `mapstructure:"auth"`
	RateLimit       RateLimitConfig       `mapstructure:"ratelimit"`
	Pagination      PaginationConfig      `mapstructure:"pagination"`
	CORS            CORSConfig            `mapstructure:"cors"`
	SecurityHeaders SecurityHeadersConfig `mapstructure:"security_headers"`
	Compression     CompressionConfig     `mapstructure:"compression"`
	Observability   ObservabilityConfig   `mapstructure:"observability"`
	Seed            SeedConfig            `mapstructure:"seed"`
}

// ServiceConfig configures service identity metadata.
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// HTTPConfig configures the public API server
type HTTPConfig struct {
	Port            int                  `mapstructure:"port"`
	Router          string               `mapstructure:"router"` // gin, gorilla
	ReadTimeout     time.Duration        `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration        `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration        `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration        `mapstructure:"shutdown_timeout"`
	MaxRequestSize  int64                `mapstructure:"max_request_size"`
	RequestTimeout  RequestTimeoutConfig `mapstructure:"request_timeout"`
}

// RequestTimeoutConfig configures the per-request deadline.
type RequestTimeoutConfig struct {
	Enabled              bool          `mapstructure:"enabled"`
	Default              time.Duration `mapstructure:"default"`
	ExcludedPathPrefixes []string      `mapstructure:"excluded_path_prefixes"`
}

// ManagementConfig configures the management server
type ManagementConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig selects and configures the document store.
type DatabaseConfig struct {
	Type             string        `mapstructure:"type"` // memory, mongodb
	URL              string        `mapstructure:"url" redact:"true"`
	DatabaseName     string        `mapstructure:"database_name"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	Breaker          BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig configures the circuit breaker around each collection.
type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
	HalfOpenRequests uint32        `mapstructure:"half_open_requests"`
}

// RedisConfig configures the optional Redis connection. An empty URL
// disables it.
type RedisConfig struct {
	URL              string        `mapstructure:"url" redact:"true"`
	MaxConns         int           `mapstructure:"max_conns"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
}

// AuthConfig configures token issuing and password hashing.
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret" redact:"true"`
	Issuer     string        `mapstructure:"issuer"`
	Audience   string        `mapstructure:"audience"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

// RateLimitConfig configures the rate limit middleware.
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Type              string        `mapstructure:"type"` // local, redis
	RequestsPerSecond int           `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	Window            time.Duration `mapstructure:"window"`
	Prefix            string        `mapstructure:"prefix"`
}

// PaginationConfig bounds list requests.
type PaginationConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// CORSConfig configures CORS middleware for browser-based clients.
type CORSConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	AllowOrigins     []string      `mapstructure:"allow_origins"`
	AllowMethods     []string      `mapstructure:"allow_methods"`
	AllowHeaders     []string      `mapstructure:"allow_headers"`
	ExposeHeaders    []string      `mapstructure:"expose_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

// SecurityHeadersConfig configures response hardening headers.
type SecurityHeadersConfig struct {
	Enabled              bool     `mapstructure:"enabled"`
	AllowedHosts         []string `mapstructure:"allowed_hosts"`
	STSSeconds           int64    `mapstructure:"sts_seconds"`
	STSIncludeSubdomains bool     `mapstructure:"sts_include_subdomains"`
}

// CompressionConfig configures response compression.
type CompressionConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	Gzip        bool `mapstructure:"gzip"`
	Brotli      bool `mapstructure:"brotli"`
	GzipLevel   int  `mapstructure:"gzip_level"`
	BrotliLevel int  `mapstructure:"brotli_level"`
	MinSize     int  `mapstructure:"min_size"`
}

// ObservabilityConfig configures logging, metrics, and tracing
type ObservabilityConfig struct {
	LogLevel          string               `mapstructure:"log_level"`
	LogFormat         string               `mapstructure:"log_format"` // json, text
	MetricsNamespace  string               `mapstructure:"metrics_namespace"`
	TracingEnabled    bool                 `mapstructure:"tracing_enabled"`
	TracingEndpoint   string               `mapstructure:"tracing_endpoint"`
	TracingInsecure   bool                 `mapstructure:"tracing_insecure"`
	TracingSampleRate float64              `mapstructure:"tracing_sample_rate"`
	RequestLogging    RequestLoggingConfig `mapstructure:"request_logging"`
}

// RequestLoggingConfig configures HTTP request logging middleware behavior.
type RequestLoggingConfig struct {
	Enabled              bool     `mapstructure:"enabled"`
	LogStart             bool     `mapstructure:"log_start"`
	ExcludedPathPrefixes []string `mapstructure:"excluded_path_prefixes"`
}

// SeedConfig configures the initial data created by `seed` or on startup.
type SeedConfig struct {
	OnStartup     bool   `mapstructure:"on_startup"`
	AdminUsername string `mapstructure:"admin_username"`
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password" redact:"true"`
	SampleTodos   int    `mapstructure:"sample_todos"`
}

// DefaultConfig returns a configuration that runs locally with the in-memory
// store. Auth.JWTSecret has no default and must be provided.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{Name: "taskboard", Environment: "development"},
		HTTP: HTTPConfig{
			Port:            8080,
			Router:          "gin",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxRequestSize:  1 << 20,
			RequestTimeout: RequestTimeoutConfig{
				Enabled: true,
				Default: 15 * time.Second,
			},
		},
		Management: ManagementConfig{
			Enabled:      true,
			Port:         9090,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Type:             DatabaseTypeMemory,
			DatabaseName:     "taskboard",
			ConnectTimeout:   10 * time.Second,
			OperationTimeout: 5 * time.Second,
			Breaker: BreakerConfig{
				Enabled:          true,
				FailureThreshold: 5,
				OpenTimeout:      30 * time.Second,
				HalfOpenRequests: 1,
			},
		},
		Redis: RedisConfig{MaxConns: 10, OperationTimeout: 2 * time.Second},
		Auth: AuthConfig{
			Issuer:     "taskboard",
			Audience:   "taskboard-api",
			TokenTTL:   time.Hour,
			BcryptCost: 10,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			Type:              RateLimitTypeLocal,
			RequestsPerSecond: 50,
			Burst:             100,
			Window:            time.Second,
			Prefix:            "taskboard:ratelimit",
		},
		Pagination: PaginationConfig{DefaultLimit: 20, MaxLimit: 100},
		CORS: CORSConfig{
			Enabled:      false,
			AllowOrigins: []string{},
			MaxAge:       12 * time.Hour,
		},
		SecurityHeaders: SecurityHeadersConfig{
			Enabled:              true,
			AllowedHosts:         []string{},
			STSSeconds:           31536000,
			STSIncludeSubdomains: true,
		},
		Compression: CompressionConfig{
			Enabled:     true,
			Gzip:        true,
			Brotli:      true,
			GzipLevel:   5,
			BrotliLevel: 5,
			MinSize:     1024,
		},
		Observability: ObservabilityConfig{
			LogLevel:          "info",
			LogFormat:         "json",
			MetricsNamespace:  "taskboard",
			TracingEndpoint:   "localhost:4317",
			TracingInsecure:   true,
			TracingSampleRate: 1.0,
			RequestLogging: RequestLoggingConfig{
				Enabled:              true,
				ExcludedPathPrefixes: []string{},
			},
		},
		Seed: SeedConfig{
			AdminUsername: "admin",
			AdminEmail:    "admin@example.com",
			SampleTodos:   3,
		},
	}
}
