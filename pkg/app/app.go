// Package app wires the taskboard components together from a Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nimburion/taskboard/pkg/auth"
	"github.com/nimburion/taskboard/pkg/config"
	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/handler"
	"github.com/nimburion/taskboard/pkg/health"
	"github.com/nimburion/taskboard/pkg/middleware/ratelimit"
	"github.com/nimburion/taskboard/pkg/observability/logger"
	"github.com/nimburion/taskboard/pkg/observability/metrics"
	"github.com/nimburion/taskboard/pkg/observability/tracing"
	"github.com/nimburion/taskboard/pkg/pagination"
	"github.com/nimburion/taskboard/pkg/server"
	"github.com/nimburion/taskboard/pkg/server/router"
	"github.com/nimburion/taskboard/pkg/server/router/factory"
	"github.com/nimburion/taskboard/pkg/service"
	redisstore "github.com/nimburion/taskboard/pkg/store/redis"
	"github.com/nimburion/taskboard/pkg/version"
)

// Services groups the domain services.
type Services struct {
	Todos  *service.TodoService
	Users  *service.UserService
	Roles  *service.RoleService
	Auth   *service.AuthService
	Seeder *service.Seeder
}

// App holds every long-lived component. Build it with New and release it
// with Close, or hand it to Run.
type App struct {
	Config   *config.Config
	Logger   logger.Logger
	Metrics  *metrics.Registry
	Health   *health.Registry
	Services Services
	Version  version.Info

	tokens  *auth.TokenManager
	tracer  *tracing.TracerProvider
	limiter ratelimit.RateLimiter
	window  time.Duration
	closers []server.LifecycleHook
}

// New builds the application. Components are created in dependency order;
// if one fails, those already created are released.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (_ *App, err error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if log == nil {
		log = logger.Nop{}
	}
	a := &App{
		Config:  cfg,
		Logger:  log,
		Metrics: metrics.NewRegistry(cfg.Observability.MetricsNamespace),
		Health:  health.NewRegistry(),
		Version: version.Current(cfg.Service.Name),
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.tracer, err = tracing.NewTracerProvider(ctx, tracing.TracerConfig{
		Enabled:        cfg.Observability.TracingEnabled,
		ServiceName:    cfg.Service.Name,
		ServiceVersion: a.Version.Version,
		Environment:    cfg.Service.Environment,
		Endpoint:       cfg.Observability.TracingEndpoint,
		Insecure:       cfg.Observability.TracingInsecure,
		SampleRate:     cfg.Observability.TracingSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("create tracer provider: %w", err)
	}
	a.onClose("tracer", a.tracer.Shutdown)

	repos, err := a.openRepositories(ctx)
	if err != nil {
		return nil, err
	}

	a.tokens, err = auth.NewTokenManager(auth.TokenConfig{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		TTL:      cfg.Auth.TokenTTL,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("create token manager: %w", err)
	}
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)

	opts := service.Options{
		Logger: log,
		Pagination: []pagination.Option{
			pagination.WithDefaultLimit(cfg.Pagination.DefaultLimit),
			pagination.WithMaxLimit(cfg.Pagination.MaxLimit),
			pagination.WithObserver(a.Metrics.Pagination.Observer()),
		},
	}
	roles := service.NewRoleService(repos.roles, opts)
	users := service.NewUserService(repos.users, roles, hasher, opts)
	todos := service.NewTodoService(repos.todos, opts)
	a.Services = Services{
		Todos:  todos,
		Users:  users,
		Roles:  roles,
		Auth:   service.NewAuthService(users, hasher, a.tokens, opts),
		Seeder: service.NewSeeder(roles, users, todos, opts),
	}

	if err := a.openRateLimiter(); err != nil {
		return nil, err
	}
	return a, nil
}

// openRateLimiter picks the limiter backend. Redis, when configured, also
// gets a non-critical health check.
func (a *App) openRateLimiter() error {
	cfg := a.Config
	var redis *redisstore.Adapter
	if cfg.Redis.URL != "" {
		var err error
		redis, err = redisstore.NewAdapter(redisstore.Config{
			URL:              cfg.Redis.URL,
			MaxConns:         cfg.Redis.MaxConns,
			OperationTimeout: cfg.Redis.OperationTimeout,
		}, a.Logger)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		a.onClose("redis", func(context.Context) error { return redis.Close() })
		a.Health.Register(health.NewCacheChecker("redis", redis))
	}

	if !cfg.RateLimit.Enabled {
		return nil
	}
	a.window = time.Second
	switch cfg.RateLimit.Type {
	case config.RateLimitTypeRedis:
		if redis == nil {
			return errors.New("ratelimit.type redis requires redis.url")
		}
		limiter, err := ratelimit.NewRedisRateLimiter(redis, ratelimit.RedisConfig{
			Limit:  windowLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Window),
			Window: cfg.RateLimit.Window,
			Prefix: cfg.RateLimit.Prefix,
		}, a.Logger)
		if err != nil {
			return fmt.Errorf("create rate limiter: %w", err)
		}
		a.limiter = limiter
		a.window = limiter.Window()
	default:
		a.limiter = ratelimit.NewTokenBucketLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}
	return nil
}

// windowLimit converts a per-second rate into a per-window count.
func windowLimit(perSecond int, window time.Duration) int {
	if window <= 0 {
		window = time.Second
	}
	n := int(float64(perSecond) * window.Seconds())
	if n < 1 {
		n = 1
	}
	return n
}

// PublicServer builds the API server with every route registered.
func (a *App) PublicServer() (*server.PublicAPIServer, error) {
	r, err := a.newRouter()
	if err != nil {
		return nil, err
	}
	srv := server.NewPublicAPIServer(a.Config, r, server.PublicOptions{
		Logger:         a.Logger,
		Metrics:        a.Metrics,
		TracerProvider: a.tracer.Provider(),
	})

	var limit router.MiddlewareFunc
	if a.limiter != nil {
		limit = ratelimit.RateLimit(a.limiter, ratelimit.Config{
			Name:       a.Config.RateLimit.Type,
			RetryAfter: a.window,
			Recorder:   a.Metrics.HTTP,
		})
	}
	handler.Register(srv.Router(), handler.Dependencies{
		Todos:     a.Services.Todos,
		Users:     a.Services.Users,
		Roles:     a.Services.Roles,
		Auth:      a.Services.Auth,
		Tokens:    a.tokens,
		RateLimit: limit,
	})
	return srv, nil
}

// ManagementServer builds the health, readiness, metrics and version server.
func (a *App) ManagementServer() (*server.ManagementServer, error) {
	r, err := a.newRouter()
	if err != nil {
		return nil, err
	}
	return server.NewManagementServer(a.Config.Management, r, a.Logger, a.Health, a.Metrics, a.Version), nil
}

func (a *App) newRouter() (router.Router, error) {
	r, err := factory.NewRouter(a.Config.HTTP.Router,
		router.WithErrorHandler(controller.Error),
		router.WithNotFound(func(c router.Context) error {
			return controller.Error(c, controller.NewNotFoundError("route not found"))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}
	return r, nil
}

// Seed applies the configured seed data.
func (a *App) Seed(ctx context.Context) (service.SeedResult, error) {
	return a.Services.Seeder.Seed(ctx, service.SeedConfig{
		AdminUsername: a.Config.Seed.AdminUsername,
		AdminEmail:    a.Config.Seed.AdminEmail,
		AdminPassword: a.Config.Seed.AdminPassword,
		SampleTodos:   a.Config.Seed.SampleTodos,
	})
}

// Run serves the public and management APIs until ctx is cancelled, then
// releases every component.
func (a *App) Run(ctx context.Context) error {
	public, err := a.PublicServer()
	if err != nil {
		return err
	}
	servers := []server.Runnable{public}
	if a.Config.Management.Enabled {
		mgmt, err := a.ManagementServer()
		if err != nil {
			return err
		}
		servers = append(servers, mgmt)
	}

	var startup []server.LifecycleHook
	if a.Config.Seed.OnStartup {
		startup = append(startup, server.LifecycleHook{Name: "seed", Fn: func(ctx context.Context) error {
			_, err := a.Seed(ctx)
			return err
		}})
	}

	closers := a.closers
	a.closers = nil
	return server.Run(ctx, servers, server.RunOptions{
		Logger:        a.Logger,
		StartupHooks:  startup,
		ShutdownHooks: closers,
	})
}

// Close releases every component in reverse creation order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		hook := a.closers[i]
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := hook.Fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", hook.Name, err))
		}
		cancel()
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, server.LifecycleHook{Name: name, Fn: fn})
}
