package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/nimburion/taskboard/pkg/model"
	"github.com/nimburion/taskboard/pkg/pagination"
	"github.com/nimburion/taskboard/pkg/repository/document"
)

// DefaultPriority is assigned to todos created without one.
const DefaultPriority = 3

// TodoService manages todos. Non-admin actors only see their own.
type TodoService struct {
	repo document.Repository[model.Todo]
	opts Options
}

// NewTodoService builds a TodoService over repo.
func NewTodoService(repo document.Repository[model.Todo], opts Options) *TodoService {
	return &TodoService{repo: repo, opts: opts.withDefaults()}
}

// List pages through the todos visible to actor.
func (s *TodoService) List(ctx context.Context, actor Actor, req pagination.Request) (*pagination.Response[model.Todo], error) {
	if !actor.IsAdmin() {
		req.Filters = withFilter(req.Filters, "ownerId", pagination.Eq(pagination.StringValue(actor.UserID)))
	}
	return pagination.Paginate[model.Todo](ctx, s.repo, req, s.opts.Pagination...)
}

// Get returns a todo visible to actor. Todos owned by someone else are
// reported as not found.
func (s *TodoService) Get(ctx context.Context, actor Actor, id string) (model.Todo, error) {
	todo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return model.Todo{}, err
	}
	if !actor.IsAdmin() && todo.OwnerID != actor.UserID {
		return model.Todo{}, document.ErrNotFound
	}
	return todo, nil
}

// Create stores a new todo owned by actor.
func (s *TodoService) Create(ctx context.Context, actor Actor, req model.CreateTodoRequest) (model.Todo, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return model.Todo{}, fmt.Errorf("%w: title must not be blank", ErrInvalidInput)
	}
	id, err := s.opts.NewID()
	if err != nil {
		return model.Todo{}, err
	}
	priority := req.Priority
	if priority == 0 {
		priority = DefaultPriority
	}
	now := s.opts.now()
	todo := model.Todo{
		ID:          id,
		OwnerID:     actor.UserID,
		Title:       title,
		Description: req.Description,
		Priority:    priority,
		DueDate:     req.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, todo); err != nil {
		return model.Todo{}, fmt.Errorf("create todo: %w", err)
	}
	s.opts.Logger.Info("todo created", "todo_id", todo.ID, "owner_id", todo.OwnerID)
	return todo, nil
}

// Update applies the non-nil fields of req.
func (s *TodoService) Update(ctx context.Context, actor Actor, id string, req model.UpdateTodoRequest) (model.Todo, error) {
	todo, err := s.Get(ctx, actor, id)
	if err != nil {
		return model.Todo{}, err
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return model.Todo{}, fmt.Errorf("%w: title must not be blank", ErrInvalidInput)
		}
		todo.Title = title
	}
	if req.Description != nil {
		todo.Description = *req.Description
	}
	if req.Completed != nil {
		todo.Completed = *req.Completed
	}
	if req.Priority != nil {
		todo.Priority = *req.Priority
	}
	if req.DueDate != nil {
		todo.DueDate = req.DueDate
	}
	return s.save(ctx, todo)
}

// Toggle flips the completed flag.
func (s *TodoService) Toggle(ctx context.Context, actor Actor, id string) (model.Todo, error) {
	todo, err := s.Get(ctx, actor, id)
	if err != nil {
		return model.Todo{}, err
	}
	todo.Completed = !todo.Completed
	return s.save(ctx, todo)
}

// Delete removes a todo visible to actor.
func (s *TodoService) Delete(ctx context.Context, actor Actor, id string) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	s.opts.Logger.Info("todo deleted", "todo_id", id)
	return nil
}

func (s *TodoService) save(ctx context.Context, todo model.Todo) (model.Todo, error) {
	todo.UpdatedAt = s.opts.now()
	if err := s.repo.Update(ctx, todo); err != nil {
		return model.Todo{}, fmt.Errorf("update todo: %w", err)
	}
	return todo, nil
}
