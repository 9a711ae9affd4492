package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nimburion/taskboard/pkg/auth"
	"github.com/nimburion/taskboard/pkg/model"
	"github.com/nimburion/taskboard/pkg/repository/document"
)

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(sub auth.Subject) (string, time.Time, error)
}

// AuthService registers users and exchanges credentials for tokens.
type AuthService struct {
	users  *UserService
	hasher auth.PasswordHasher
	tokens TokenIssuer
	opts   Options
}

// NewAuthService builds an AuthService.
func NewAuthService(users *UserService, hasher auth.PasswordHasher, tokens TokenIssuer, opts Options) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens, opts: opts.withDefaults()}
}

// Register creates an account with the user role.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.User, error) {
	return s.users.Create(ctx, model.CreateUserRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Roles:    []string{model.RoleUser},
	})
}

// Login verifies credentials and issues a token. Unknown users and wrong
// passwords both yield ErrInvalidCredentials; disabled accounts yield ErrForbidden.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.TokenResponse, error) {
	user, err := s.users.FindByUsername(ctx, req.Username)
	if errors.Is(err, document.ErrNotFound) {
		s.opts.Logger.Info("login rejected", "username", req.Username, "reason", "unknown user")
		return model.TokenResponse{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.TokenResponse{}, err
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.opts.Logger.Info("login rejected", "username", user.Username, "reason", "password mismatch")
			return model.TokenResponse{}, ErrInvalidCredentials
		}
		return model.TokenResponse{}, err
	}
	if !user.Active {
		return model.TokenResponse{}, fmt.Errorf("%w: account is disabled", ErrForbidden)
	}

	token, exp, err := s.tokens.Issue(auth.Subject{ID: user.ID, Username: user.Username, Roles: user.Roles})
	if err != nil {
		return model.TokenResponse{}, err
	}
	return model.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   exp,
		User:        model.NewUserResponse(user),
	}, nil
}

// Me returns the account of actor.
func (s *AuthService) Me(ctx context.Context, actor Actor) (model.User, error) {
	return s.users.Get(ctx, actor.UserID)
}
