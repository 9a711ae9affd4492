package model

import (
	"slices"
	"time"

	"github.com/nimburion/taskboard/pkg/pagination"
)

// UserCollection is the document collection holding users.
const UserCollection = "users"

// Built-in role names.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is an account that can authenticate and own todos.
type User struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	Roles        []string  `bson:"roles"`
	Active       bool      `bson:"active"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

// UserSortFields are the fields a user listing may be sorted by.
var UserSortFields = []string{"id", "username", "email", "createdAt", "updatedAt"}

// UserUniqueFields must not repeat across users.
var UserUniqueFields = []string{"username", "email"}

// EntityID implements document.Entity.
func (u User) EntityID() string { return u.ID }

// UniqueFields implements document.Unique.
func (u User) UniqueFields() []string { return UserUniqueFields }

// HasRole reports whether the user holds role.
func (u User) HasRole(role string) bool { return slices.Contains(u.Roles, role) }

// Field implements pagination.Record.
func (u User) Field(name string) (pagination.Value, bool) {
	switch name {
	case "id":
		return pagination.StringValue(u.ID), true
	case "username":
		return pagination.StringValue(u.Username), true
	case "email":
		return pagination.StringValue(u.Email), true
	case "active":
		return pagination.BoolValue(u.Active), true
	case "createdAt":
		return pagination.TimeValue(u.CreatedAt), true
	case "updatedAt":
		return pagination.TimeValue(u.UpdatedAt), true
	default:
		return pagination.Value{}, false
	}
}

// FieldValues implements pagination.MultiValued for the roles array.
func (u User) FieldValues(name string) ([]pagination.Value, bool) {
	if name != "roles" {
		return nil, false
	}
	values := make([]pagination.Value, len(u.Roles))
	for i, r := range u.Roles {
		values[i] = pagination.StringValue(r)
	}
	return values, true
}

// Fingerprint implements pagination.Record.
func (u User) Fingerprint() pagination.Fingerprint {
	return pagination.Fingerprint{ID: u.ID, Title: u.Username, UpdatedAt: u.UpdatedAt, CreatedAt: u.CreatedAt}
}
