package handler

import (
	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/model"
	"github.com/nimburion/taskboard/pkg/pagination"
	"github.com/nimburion/taskboard/pkg/server/router"
	"github.com/nimburion/taskboard/pkg/service"
)

// TodoListSpec is what GET /todos accepts besides the pagination parameters.
// The owner filter only has an effect for admins.
var TodoListSpec = controller.ListSpec{
	SortFields: model.TodoSortFields,
	Filters: []controller.FilterParam{
		{Param: "completed", Field: "completed", Kind: pagination.KindBool},
		{Param: "priority", Field: "priority", Kind: pagination.KindInt},
		{Param: "priorityMin", Field: "priority", Kind: pagination.KindInt, Op: controller.OpGte},
		{Param: "priorityMax", Field: "priority", Kind: pagination.KindInt, Op: controller.OpLte},
		{Param: "dueBefore", Field: "dueDate", Kind: pagination.KindTime, Op: controller.OpLt},
		{Param: "createdAfter", Field: "createdAt", Kind: pagination.KindTime, Op: controller.OpGt},
		{Param: "createdBefore", Field: "createdAt", Kind: pagination.KindTime, Op: controller.OpLt},
		{Param: "owner", Field: "ownerId", Kind: pagination.KindString},
	},
}

// TodoHandler serves /todos.
type TodoHandler struct {
	svc       *service.TodoService
	validator *controller.Validator
}

// List pages through the caller's todos, or every todo for admins.
func (h *TodoHandler) List(c router.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return controller.Error(c, err)
	}
	req, err := controller.ParseListRequest(c.Request().URL.Query(), TodoListSpec)
	if err != nil {
		return controller.Error(c, err)
	}
	page, err := h.svc.List(c.Request().Context(), actor, req)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Paginated(c, pagination.Map(page, model.NewTodoResponse))
}

func (h *TodoHandler) Get(c router.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return controller.Error(c, err)
	}
	todo, err := h.svc.Get(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Success(c, model.NewTodoResponse(todo))
}

func (h *TodoHandler) Create(c router.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return controller.Error(c, err)
	}
	var req model.CreateTodoRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return controller.Error(c, err)
	}
	todo, err := h.svc.Create(c.Request().Context(), actor, req)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Created(c, model.NewTodoResponse(todo))
}

func (h *TodoHandler) Update(c router.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return controller.Error(c, err)
	}
	var req model.UpdateTodoRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return controller.Error(c, err)
	}
	todo, err := h.svc.Update(c.Request().Context(), actor, c.Param("id"), req)
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Success(c, model.NewTodoResponse(todo))
}

// Toggle flips the completed flag.
func (h *TodoHandler) Toggle(c router.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return controller.Error(c, err)
	}
	todo, err := h.svc.Toggle(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return controller.Error(c, err)
	}
	return controller.Success(c, model.NewTodoResponse(todo))
}

func (h *TodoHandler) Delete(c router.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return controller.Error(c, err)
	}
	if err := h.svc.Delete(c.Request().Context(), actor, c.Param("id")); err != nil {
		return controller.Error(c, err)
	}
	return controller.NoContent(c)
}
