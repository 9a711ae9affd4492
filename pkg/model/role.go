package model

import (
	"time"

	"github.com/nimburion/taskboard/pkg/pagination"
)

// RoleCollection is the document collection holding roles.
const RoleCollection = "roles"

// Role is a named set of permissions assignable to users.
type Role struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	Permissions []string  `bson:"permissions"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

// RoleSortFields are the fields a role listing may be sorted by.
var RoleSortFields = []string{"id", "name", "createdAt", "updatedAt"}

// RoleUniqueFields must not repeat across roles.
var RoleUniqueFields = []string{"name"}

func (r Role) EntityID() string       { return r.ID }
func (r Role) UniqueFields() []string { return RoleUniqueFields }

// Field implements pagination.Record.
func (r Role) Field(name string) (pagination.Value, bool) {
	switch name {
	case "id":
		return pagination.StringValue(r.ID), true
	case "name":
		return pagination.StringValue(r.Name), true
	case "createdAt":
		return pagination.TimeValue(r.CreatedAt), true
	case "updatedAt":
		return pagination.TimeValue(r.UpdatedAt), true
	default:
		return pagination.Value{}, false
	}
}

// Fingerprint implements pagination.Record.
func (r Role) Fingerprint() pagination.Fingerprint {
	return pagination.Fingerprint{ID: r.ID, Title: r.Name, UpdatedAt: r.UpdatedAt, CreatedAt: r.CreatedAt}
}
