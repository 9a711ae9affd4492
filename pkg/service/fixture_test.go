package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nimburion/taskboard/pkg/auth"
	"github.com/nimburion/taskboard/pkg/model"
	"github.com/nimburion/taskboard/pkg/repository/document"
)

type fixture struct {
	todoRepo *document.MemoryRepository[model.Todo]
	userRepo *document.MemoryRepository[model.User]
	roleRepo *document.MemoryRepository[model.Role]
	todos    *TodoService
	users    *UserService
	roles    *RoleService
	auth     *AuthService
	seeder   *Seeder
	now      time.Time
}

type stubIssuer struct{ issued []auth.Subject }

func (s *stubIssuer) Issue(sub auth.Subject) (string, time.Time, error) {
	s.issued = append(s.issued, sub)
	return "token-for-" + sub.ID, time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC), nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		todoRepo: document.NewMemoryRepository[model.Todo](),
		userRepo: document.NewMemoryRepository[model.User](),
		roleRepo: document.NewMemoryRepository[model.Role](),
		now:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	var seq atomic.Int64
	opts := Options{
		Clock: func() time.Time { return f.now },
		NewID: func() (string, error) { return fmt.Sprintf("id-%04d", seq.Add(1)), nil },
	}
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	f.roles = NewRoleService(f.roleRepo, opts)
	f.users = NewUserService(f.userRepo, f.roles, hasher, opts)
	f.todos = NewTodoService(f.todoRepo, opts)
	f.auth = NewAuthService(f.users, hasher, &stubIssuer{}, opts)
	f.seeder = NewSeeder(f.roles, f.users, f.todos, opts)
	return f
}

// seedRoles creates the builtin roles.
func (f *fixture) seedRoles(t *testing.T) {
	t.Helper()
	if _, err := f.seeder.Seed(context.Background(), SeedConfig{}); err != nil {
		t.Fatalf("seed roles: %v", err)
	}
}
