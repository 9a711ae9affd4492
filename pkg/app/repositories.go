package app

import (
	"context"
	"fmt"

	"github.com/nimburion/taskboard/pkg/config"
	"github.com/nimburion/taskboard/pkg/health"
	"github.com/nimburion/taskboard/pkg/model"
	"github.com/nimburion/taskboard/pkg/repository/document"
	mongostore "github.com/nimburion/taskboard/pkg/store/mongodb"
)

type repositories struct {
	todos document.Repository[model.Todo]
	users document.Repository[model.User]
	roles document.Repository[model.Role]
}

// indexes backs the unique fields and the owner-scoped todo listing.
var indexes = []mongostore.Index{
	{Collection: model.UserCollection, Field: "username", Unique: true},
	{Collection: model.UserCollection, Field: "email", Unique: true},
	{Collection: model.RoleCollection, Field: "name", Unique: true},
	{Collection: model.TodoCollection, Field: "ownerId"},
	{Collection: model.TodoCollection, Field: "createdAt"},
}

func (a *App) openRepositories(ctx context.Context) (repositories, error) {
	cfg := a.Config.Database
	switch cfg.Type {
	case config.DatabaseTypeMongoDB:
		return a.openMongoRepositories(ctx, cfg)
	case config.DatabaseTypeMemory, "":
		a.Logger.Warn("using in-memory storage; data is lost on restart")
		return repositories{
			todos: document.NewMemoryRepository[model.Todo](),
			users: document.NewMemoryRepository[model.User](),
			roles: document.NewMemoryRepository[model.Role](),
		}, nil
	default:
		return repositories{}, fmt.Errorf("unsupported database type %q", cfg.Type)
	}
}

func (a *App) openMongoRepositories(ctx context.Context, cfg config.DatabaseConfig) (repositories, error) {
	store, err := mongostore.NewAdapter(mongostore.Config{
		URL:              cfg.URL,
		Database:         cfg.DatabaseName,
		ConnectTimeout:   cfg.ConnectTimeout,
		OperationTimeout: cfg.OperationTimeout,
	}, a.Logger)
	if err != nil {
		return repositories{}, fmt.Errorf("connect mongodb: %w", err)
	}
	a.onClose("mongodb", func(context.Context) error { return store.Close() })
	a.Health.Register(health.NewDatabaseChecker("mongodb", store))

	if err := store.EnsureIndexes(ctx, indexes); err != nil {
		return repositories{}, err
	}

	todos, err := document.NewMongoRepository[model.Todo](store, model.TodoCollection)
	if err != nil {
		return repositories{}, err
	}
	users, err := document.NewMongoRepository[model.User](store, model.UserCollection)
	if err != nil {
		return repositories{}, err
	}
	roles, err := document.NewMongoRepository[model.Role](store, model.RoleCollection)
	if err != nil {
		return repositories{}, err
	}
	return repositories{
		todos: guard[model.Todo](a, todos, model.TodoCollection, cfg.Breaker),
		users: guard[model.User](a, users, model.UserCollection, cfg.Breaker),
		roles: guard[model.Role](a, roles, model.RoleCollection, cfg.Breaker),
	}, nil
}

// guard wraps repo in a circuit breaker when enabled and reports the
// breaker state on /ready.
func guard[T document.Entity](a *App, repo document.Repository[T], collection string, cfg config.BreakerConfig) document.Repository[T] {
	if !cfg.Enabled {
		return repo
	}
	name := "mongodb." + collection
	breaker := document.NewBreakerRepository[T](repo, name, document.BreakerSettings{
		FailureThreshold: cfg.FailureThreshold,
		OpenTimeout:      cfg.OpenTimeout,
		HalfOpenRequests: cfg.HalfOpenRequests,
	}, a.Logger)
	a.Health.Register(health.NewBreakerChecker("breaker."+collection, breaker))
	return breaker
}
