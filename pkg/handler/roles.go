package handler

import (
	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/model"
	"github.com/nimburion/taskboard/pkg/pagination"
	"github.com/nimburion/taskboard/pkg/server/router"
	"github.com/nimburion/taskboard/pkg/service"
)

// RoleListSpec is what GET /roles accepts besides the pagination parameters.
var RoleListSpec = controller.ListSpec{
	SortFields: model.RoleSortFields,
	Filters: []controller.FilterParam{
		{Param: "name", Field: "name", Kind: pagination.KindString},
	},
}

// RoleHandler serves /roles. Reads are open to any authenticated caller.
type RoleHandler struct {
	svc       *service.RoleService
	validator *controller.Validator
}

func (h *RoleHandler) List(c router.Context) error {
	req, err := controller.ParseListRequest(c.Request().URL.Query(), RoleListSpec)
	if err != nil {
		return controller.Error(c, err)
	}
	page, err := h.svc.List(c.Request().Context(), req)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Paginated(c, pagination.Map(page, model.NewRoleResponse))
}

func (h *RoleHandler) Get(c router.Context) error {
	role, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Success(c, model.NewRoleResponse(role))
}

func (h *RoleHandler) Create(c router.Context) error {
	var req model.CreateRoleRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return controller.Error(c, err)
	}
	role, err := h.svc.Create(c.Request().Context(), req)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Created(c, model.NewRoleResponse(role))
}

func (h *RoleHandler) Update(c router.Context) error {
	var req model.UpdateRoleRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return controller.Error(c, err)
	}
	role, err := h.svc.Update(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Success(c, model.NewRoleResponse(role))
}

// Delete removes a role. Builtin roles are refused with 403.
func (h *RoleHandler) Delete(c router.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return controller.Error(c, err)
	}
	return controller.NoContent(c)
}
