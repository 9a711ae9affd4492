package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/nimburion/taskboard/pkg/model"
	"github.com/nimburion/taskboard/pkg/pagination"
	"github.com/nimburion/taskboard/pkg/repository/document"
)

// BuiltinRoles cannot be deleted.
var BuiltinRoles = []string{model.RoleAdmin, model.RoleUser}

// RoleService manages roles.
type RoleService struct {
	repo document.Repository[model.Role]
	opts Options
}

// NewRoleService builds a RoleService over repo.
func NewRoleService(repo document.Repository[model.Role], opts Options) *RoleService {
	return &RoleService{repo: repo, opts: opts.withDefaults()}
}

// List pages through roles.
func (s *RoleService) List(ctx context.Context, req pagination.Request) (*pagination.Response[model.Role], error) {
	return pagination.Paginate[model.Role](ctx, s.repo, req, s.opts.Pagination...)
}

// Get returns the role with id.
func (s *RoleService) Get(ctx context.Context, id string) (model.Role, error) {
	return s.repo.FindByID(ctx, id)
}

// Exists reports whether a role called name exists.
func (s *RoleService) Exists(ctx context.Context, name string) (bool, error) {
	n, err := s.repo.Count(ctx, byName(name))
	if err != nil {
		return false, fmt.Errorf("lookup role %q: %w", name, err)
	}
	return n > 0, nil
}

// Create stores a new role. Names are unique.
func (s *RoleService) Create(ctx context.Context, req model.CreateRoleRequest) (model.Role, error) {
	name := strings.ToLower(strings.TrimSpace(req.Name))
	if name == "" {
		return model.Role{}, fmt.Errorf("%w: name must not be blank", ErrInvalidInput)
	}
	id, err := s.opts.NewID()
	if err != nil {
		return model.Role{}, err
	}
	now := s.opts.now()
	role := model.Role{
		ID:          id,
		Name:        name,
		Description: req.Description,
		Permissions: req.Permissions,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, role); err != nil {
		return model.Role{}, fmt.Errorf("create role %q: %w", name, err)
	}
	s.opts.Logger.Info("role created", "role", name)
	return role, nil
}

// Update changes description and permissions. Names are immutable.
func (s *RoleService) Update(ctx context.Context, id string, req model.UpdateRoleRequest) (model.Role, error) {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return model.Role{}, err
	}
	if req.Description != nil {
		role.Description = *req.Description
	}
	if req.Permissions != nil {
		role.Permissions = req.Permissions
	}
	role.UpdatedAt = s.opts.now()
	if err := s.repo.Update(ctx, role); err != nil {
		return model.Role{}, fmt.Errorf("update role: %w", err)
	}
	return role, nil
}

// Delete removes a role. Builtin roles are refused with ErrForbidden.
func (s *RoleService) Delete(ctx context.Context, id string) error {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	for _, name := range BuiltinRoles {
		if role.Name == name {
			return fmt.Errorf("%w: role %q is builtin", ErrForbidden, name)
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	s.opts.Logger.Info("role deleted", "role", role.Name)
	return nil
}
