package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/nimburion/taskboard/pkg/auth"
	"github.com/nimburion/taskboard/pkg/model"
	"github.com/nimburion/taskboard/pkg/pagination"
	"github.com/nimburion/taskboard/pkg/repository/document"
)

// UserService manages user accounts.
type UserService struct {
	repo   document.Repository[model.User]
	roles  *RoleService
	hasher auth.PasswordHasher
	opts   Options
}

// NewUserService builds a UserService. Role names are checked against roles.
func NewUserService(repo document.Repository[model.User], roles *RoleService, hasher auth.PasswordHasher, opts Options) *UserService {
	return &UserService{repo: repo, roles: roles, hasher: hasher, opts: opts.withDefaults()}
}

// List pages through users.
func (s *UserService) List(ctx context.Context, req pagination.Request) (*pagination.Response[model.User], error) {
	return pagination.Paginate[model.User](ctx, s.repo, req, s.opts.Pagination...)
}

// Get returns the user with id.
func (s *UserService) Get(ctx context.Context, id string) (model.User, error) {
	return s.repo.FindByID(ctx, id)
}

// FindByUsername returns the user with the given username.
func (s *UserService) FindByUsername(ctx context.Context, username string) (model.User, error) {
	return s.repo.FindOne(ctx, pagination.Filters{
		"username": pagination.Eq(pagination.StringValue(normalizeUsername(username))),
	})
}

// Create stores an active user. Roles default to the user role.
func (s *UserService) Create(ctx context.Context, req model.CreateUserRequest) (model.User, error) {
	roles := req.Roles
	if len(roles) == 0 {
		roles = []string{model.RoleUser}
	}
	roles, err := s.checkRoles(ctx, roles)
	if err != nil {
		return model.User{}, err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.User{}, err
	}
	id, err := s.opts.NewID()
	if err != nil {
		return model.User{}, err
	}
	now := s.opts.now()
	user := model.User{
		ID:           id,
		Username:     normalizeUsername(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Roles:        roles,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return model.User{}, fmt.Errorf("create user %q: %w", user.Username, err)
	}
	s.opts.Logger.Info("user created", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Update applies the non-nil fields of req.
func (s *UserService) Update(ctx context.Context, id string, req model.UpdateUserRequest) (model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Password != nil {
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return model.User{}, err
		}
		user.PasswordHash = hash
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	return s.save(ctx, user)
}

// AssignRoles replaces the roles of a user. Every role must exist.
func (s *UserService) AssignRoles(ctx context.Context, id string, roles []string) (model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if user.Roles, err = s.checkRoles(ctx, roles); err != nil {
		return model.User{}, err
	}
	s.opts.Logger.Info("user roles assigned", "user_id", id, "roles", user.Roles)
	return s.save(ctx, user)
}

// Delete removes a user.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.opts.Logger.Info("user deleted", "user_id", id)
	return nil
}

func (s *UserService) save(ctx context.Context, user model.User) (model.User, error) {
	user.UpdatedAt = s.opts.now()
	if err := s.repo.Update(ctx, user); err != nil {
		return model.User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// checkRoles normalizes and deduplicates roles and verifies that each exists.
func (s *UserService) checkRoles(ctx context.Context, roles []string) ([]string, error) {
	out := make([]string, 0, len(roles))
	seen := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		name := strings.ToLower(strings.TrimSpace(r))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		ok, err := s.roles.Exists(ctx, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, name)
		}
		out = append(out, name)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: at least one role is required", ErrInvalidInput)
	}
	return out, nil
}

func normalizeUsername(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
