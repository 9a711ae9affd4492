package model

import "time"

// TodoResponse is the public representation of a Todo.
type TodoResponse struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	Priority    int        `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// NewTodoResponse maps a Todo field by field.
func NewTodoResponse(t Todo) TodoResponse {
	return TodoResponse{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// CreateTodoRequest is the body of POST /todos.
type CreateTodoRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	Priority    int        `json:"priority" validate:"omitempty,min=1,max=5"`
	DueDate     *time.Time `json:"dueDate"`
}

// UpdateTodoRequest is the body of PATCH /todos/:id. Nil fields are left unchanged.
type UpdateTodoRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Completed   *bool      `json:"completed"`
	Priority    *int       `json:"priority" validate:"omitempty,min=1,max=5"`
	DueDate     *time.Time `json:"dueDate"`
}

// UserResponse is the public representation of a User. The password hash is
// never exposed.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewUserResponse maps a User field by field.
func NewUserResponse(u User) UserResponse {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Roles:     roles,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=50,alphanum"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=8,max=72"`
	Roles    []string `json:"roles" validate:"omitempty,dive,required"`
}

// UpdateUserRequest is the body of PATCH /users/:id.
type UpdateUserRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
	Active   *bool   `json:"active"`
}

// AssignRolesRequest is the body of PUT /users/:id/roles.
type AssignRolesRequest struct {
	Roles []string `json:"roles" validate:"required,min=1,dive,required"`
}

// RoleResponse is the public representation of a Role.
type RoleResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewRoleResponse maps a Role field by field.
func NewRoleResponse(r Role) RoleResponse {
	perms := r.Permissions
	if perms == nil {
		perms = []string{}
	}
	return RoleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Permissions: perms,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// CreateRoleRequest is the body of POST /roles.
type CreateRoleRequest struct {
	Name        string   `json:"name" validate:"required,min=2,max=50"`
	Description string   `json:"description" validate:"max=500"`
	Permissions []string `json:"permissions"`
}

// UpdateRoleRequest is the body of PATCH /roles/:id.
type UpdateRoleRequest struct {
	Description *string  `json:"description" validate:"omitempty,max=500"`
	Permissions []string `json:"permissions"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string       `json:"accessToken"`
	TokenType   string       `json:"tokenType"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	User        UserResponse `json:"user"`
}
