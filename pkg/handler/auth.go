package handler

import (
	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/model"
	"github.com/nimburion/taskboard/pkg/server/router"
	"github.com/nimburion/taskboard/pkg/service"
)

// AuthHandler serves registration, login and the caller's own account.
type AuthHandler struct {
	svc       *service.AuthService
	validator *controller.Validator
}

// Register creates an account with the default user role.
func (h *AuthHandler) Register(c router.Context) error {
	var req model.RegisterRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return controller.Error(c, err)
	}
	user, err := h.svc.Register(c.Request().Context(), req)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Created(c, model.NewUserResponse(user))
}

// Login exchanges credentials for a bearer token.
func (h *AuthHandler) Login(c router.Context) error {
	var req model.LoginRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return controller.Error(c, err)
	}
	token, err := h.svc.Login(c.Request().Context(), req)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Success(c, token)
}

// Me returns the authenticated caller's account.
func (h *AuthHandler) Me(c router.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return controller.Error(c, err)
	}
	user, err := h.svc.Me(c.Request().Context(), actor)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Success(c, model.NewUserResponse(user))
}
