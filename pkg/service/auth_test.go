package service

import (
	"context"
	"errors"
	"testing"

	"github.com/nimburion/taskboard/pkg/model"
	"github.com/nimburion/taskboard/pkg/repository/document"
)

func TestAuthService_RegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	f.seedRoles(t)
	ctx := context.Background()

	user, err := f.auth.Register(ctx, model.RegisterRequest{Username: "ada", Email: "ada@example.com", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !user.HasRole(model.RoleUser) || user.HasRole(model.RoleAdmin) {
		t.Errorf("registered roles = %v", user.Roles)
	}
	if _, err := f.auth.Register(ctx, model.RegisterRequest{Username: "ada", Email: "x@example.com", Password: "s3cret-pass"}); !errors.Is(err, document.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	tok, err := f.auth.Login(ctx, model.LoginRequest{Username: "ADA", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if tok.AccessToken != "token-for-"+user.ID || tok.TokenType != "Bearer" || tok.User.ID != user.ID {
		t.Errorf("unexpected token response %+v", tok)
	}

	me, err := f.auth.Me(ctx, Actor{UserID: user.ID})
	if err != nil || me.Username != "ada" {
		t.Errorf("me: %+v, %v", me, err)
	}
}

func TestAuthService_LoginFailures(t *testing.T) {
	f := newFixture(t)
	f.seedRoles(t)
	ctx := context.Background()
	user, _ := f.auth.Register(ctx, model.RegisterRequest{Username: "ada", Email: "ada@example.com", Password: "s3cret-pass"})
	_, _ = f.auth.Register(ctx, model.RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "s3cret-pass"})
	if _, err := f.users.Update(ctx, user.ID, model.UpdateUserRequest{Active: ptr(false)}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		req  model.LoginRequest
		want error
	}{
		{"unknown user", model.LoginRequest{Username: "nobody", Password: "s3cret-pass"}, ErrInvalidCredentials},
		{"wrong password", model.LoginRequest{Username: "bob", Password: "wrong-pass"}, ErrInvalidCredentials},
		{"disabled account", model.LoginRequest{Username: "ada", Password: "s3cret-pass"}, ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.auth.Login(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}
