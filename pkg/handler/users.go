package handler

import (
	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/model"
	"github.com/nimburion/taskboard/pkg/pagination"
	"github.com/nimburion/taskboard/pkg/server/router"
	"github.com/nimburion/taskboard/pkg/service"
)

// UserListSpec is what GET /users accepts besides the pagination parameters.
var UserListSpec = controller.ListSpec{
	SortFields: model.UserSortFields,
	Filters: []controller.FilterParam{
		{Param: "active", Field: "active", Kind: pagination.KindBool},
		{Param: "role", Field: "roles", Kind: pagination.KindString},
	},
}

// UserHandler serves /users. Every route is admin only.
type UserHandler struct {
	svc       *service.UserService
	validator *controller.Validator
}

func (h *UserHandler) List(c router.Context) error {
	req, err := controller.ParseListRequest(c.Request().URL.Query(), UserListSpec)
	if err != nil {
		return controller.Error(c, err)
	}
	page, err := h.svc.List(c.Request().Context(), req)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Paginated(c, pagination.Map(page, model.NewUserResponse))
}

func (h *UserHandler) Get(c router.Context) error {
	user, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Success(c, model.NewUserResponse(user))
}

func (h *UserHandler) Create(c router.Context) error {
	var req model.CreateUserRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return controller.Error(c, err)
	}
	user, err := h.svc.Create(c.Request().Context(), req)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Created(c, model.NewUserResponse(user))
}

func (h *UserHandler) Update(c router.Context) error {
	var req model.UpdateUserRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return controller.Error(c, err)
	}
	user, err := h.svc.Update(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Success(c, model.NewUserResponse(user))
}

// AssignRoles replaces the user's roles.
func (h *UserHandler) AssignRoles(c router.Context) error {
	var req model.AssignRolesRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return controller.Error(c, err)
	}
	user, err := h.svc.AssignRoles(c.Request().Context(), c.Param("id"), req.Roles)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Success(c, model.NewUserResponse(user))
}

func (h *UserHandler) Delete(c router.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return controller.Error(c, err)
	}
	return controller.NoContent(c)
}
