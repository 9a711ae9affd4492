package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nimburion/taskboard/pkg/model"
	"github.com/nimburion/taskboard/pkg/repository/document"
)

// SeedConfig describes the initial data.
type SeedConfig struct {
	AdminUsername string
	AdminEmail    string
	AdminPassword string
	// SampleTodos is the number of todos created for a newly seeded admin.
	SampleTodos int
}

// SeedResult counts what a seed run created.
type SeedResult struct {
	Roles int
	Users int
	Todos int
}

// Seeder creates the builtin roles, an admin account and sample todos.
// Running it again only fills in what is missing.
type Seeder struct {
	roles *RoleService
	users *UserService
	todos *TodoService
	opts  Options
}

// NewSeeder builds a Seeder from the services it writes through.
func NewSeeder(roles *RoleService, users *UserService, todos *TodoService, opts Options) *Seeder {
	return &Seeder{roles: roles, users: users, todos: todos, opts: opts.withDefaults()}
}

var builtinRoleDescriptions = map[string]string{
	model.RoleAdmin: "Full access to users, roles and every todo",
	model.RoleUser:  "Manages own todos",
}

// Seed applies cfg.
func (s *Seeder) Seed(ctx context.Context, cfg SeedConfig) (SeedResult, error) {
	var res SeedResult
	for _, name := range BuiltinRoles {
		exists, err := s.roles.Exists(ctx, name)
		if err != nil {
			return res, err
		}
		if exists {
			continue
		}
		if _, err := s.roles.Create(ctx, model.CreateRoleRequest{Name: name, Description: builtinRoleDescriptions[name]}); err != nil {
			return res, fmt.Errorf("seed role %q: %w", name, err)
		}
		res.Roles++
	}

	if cfg.AdminUsername == "" {
		return res, nil
	}
	if _, err := s.users.FindByUsername(ctx, cfg.AdminUsername); err == nil {
		s.opts.Logger.Info("seed complete", "roles", res.Roles, "users", res.Users, "todos", res.Todos)
		return res, nil
	} else if !errors.Is(err, document.ErrNotFound) {
		return res, err
	}
	if cfg.AdminPassword == "" {
		return res, fmt.Errorf("%w: admin password is required to seed %q", ErrInvalidInput, cfg.AdminUsername)
	}
	admin, err := s.users.Create(ctx, model.CreateUserRequest{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Roles:    []string{model.RoleAdmin, model.RoleUser},
	})
	if err != nil {
		return res, fmt.Errorf("seed admin: %w", err)
	}
	res.Users++

	actor := Actor{UserID: admin.ID, Roles: admin.Roles}
	for i := 1; i <= cfg.SampleTodos; i++ {
		due := s.opts.now().Add(time.Duration(i) * 24 * time.Hour).Truncate(time.Hour)
		_, err := s.todos.Create(ctx, actor, model.CreateTodoRequest{
			Title:       fmt.Sprintf("Sample todo #%d", i),
			Description: "Created by the seeder",
			Priority:    i%5 + 1,
			DueDate:     &due,
		})
		if err != nil {
			return res, fmt.Errorf("seed todo %d: %w", i, err)
		}
		res.Todos++
	}
	s.opts.Logger.Info("seed complete", "roles", res.Roles, "users", res.Users, "todos", res.Todos)
	return res, nil
}
