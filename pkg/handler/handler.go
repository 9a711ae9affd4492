// Package handler exposes the taskboard services over HTTP under /api/v1.
package handler

import (
	"github.com/nimburion/taskboard/pkg/auth"
	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/middleware/authz"
	"github.com/nimburion/taskboard/pkg/model"
	"github.com/nimburion/taskboard/pkg/server/router"
	"github.com/nimburion/taskboard/pkg/service"
)

// APIPrefix is the path every API route lives under.
const APIPrefix = "/api/v1"

// Dependencies carries what the handlers need. RateLimit is optional.
type Dependencies struct {
	Todos     *service.TodoService
	Users     *service.UserService
	Roles     *service.RoleService
	Auth      *service.AuthService
	Tokens    auth.JWTValidator
	Validator *controller.Validator
	RateLimit router.MiddlewareFunc
}

// Register mounts every API route on r.
//
// Authentication runs before rate limiting so authenticated callers are
// limited per user rather than per address.
func Register(r router.Router, deps Dependencies) {
	if deps.Validator == nil {
		deps.Validator = controller.NewValidator()
	}

	var public, authed []router.MiddlewareFunc
	authed = append(authed, authz.Authenticate(deps.Tokens))
	if deps.RateLimit != nil {
		public = append(public, deps.RateLimit)
		authed = append(authed, deps.RateLimit)
	}
	admin := append(append([]router.MiddlewareFunc{}, authed...), authz.RequireRoles(model.RoleAdmin))

	api := r.Group(APIPrefix)

	authH := &AuthHandler{svc: deps.Auth, validator: deps.Validator}
	api.POST("/auth/register", authH.Register, public...)
	api.POST("/auth/login", authH.Login, public...)
	api.GET("/auth/me", authH.Me, authed...)

	todos := &TodoHandler{svc: deps.Todos, validator: deps.Validator}
	api.GET("/todos", todos.List, authed...)
	api.POST("/todos", todos.Create, authed...)
	api.GET("/todos/:id", todos.Get, authed...)
	api.PATCH("/todos/:id", todos.Update, authed...)
	api.DELETE("/todos/:id", todos.Delete, authed...)
	api.POST("/todos/:id/toggle", todos.Toggle, authed...)

	users := &UserHandler{svc: deps.Users, validator: deps.Validator}
	api.GET("/users", users.List, admin...)
	api.POST("/users", users.Create, admin...)
	api.GET("/users/:id", users.Get, admin...)
	api.PATCH("/users/:id", users.Update, admin...)
	api.DELETE("/users/:id", users.Delete, admin...)
	api.PUT("/users/:id/roles", users.AssignRoles, admin...)

	roles := &RoleHandler{svc: deps.Roles, validator: deps.Validator}
	api.GET("/roles", roles.List, authed...)
	api.GET("/roles/:id", roles.Get, authed...)
	api.POST("/roles", roles.Create, admin...)
	api.PATCH("/roles/:id", roles.Update, admin...)
	api.DELETE("/roles/:id", roles.Delete, admin...)
}

// actorFrom returns the authenticated caller or renders 401.
func actorFrom(c router.Context) (service.Actor, error) {
	actor, ok := authz.Actor(c)
	if !ok {
		return service.Actor{}, controller.NewUnauthorizedError("missing authentication")
	}
	return actor, nil
}
