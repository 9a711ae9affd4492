// Package model holds the taskboard entities and their wire representations.
package model

import (
	"time"

	"github.com/nimburion/taskboard/pkg/pagination"
)

// TodoCollection is the document collection holding todos.
const TodoCollection = "todos"

// Todo is a task owned by a user.
type Todo struct {
	ID          string     `bson:"_id"`
	OwnerID     string     `bson:"ownerId"`
	Title       string     `bson:"title"`
	Description string     `bson:"description"`
	Completed   bool       `bson:"completed"`
	Priority    int        `bson:"priority"`
	DueDate     *time.Time `bson:"dueDate,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt"`
}

// TodoSortFields are the fields a todo listing may be sorted by. Every row
// must carry the sort field, so the optional dueDate is filter-only.
var TodoSortFields = []string{"id", "title", "priority", "createdAt", "updatedAt"}

// EntityID implements document.Entity.
func (t Todo) EntityID() string { return t.ID }

// Field implements pagination.Record.
func (t Todo) Field(name string) (pagination.Value, bool) {
	switch name {
	case "id":
		return pagination.StringValue(t.ID), true
	case "ownerId":
		return pagination.StringValue(t.OwnerID), true
	case "title":
		return pagination.StringValue(t.Title), true
	case "completed":
		return pagination.BoolValue(t.Completed), true
	case "priority":
		return pagination.IntValue(int64(t.Priority)), true
	case "dueDate":
		if t.DueDate == nil {
			return pagination.Value{}, false
		}
		return pagination.TimeValue(*t.DueDate), true
	case "createdAt":
		return pagination.TimeValue(t.CreatedAt), true
	case "updatedAt":
		return pagination.TimeValue(t.UpdatedAt), true
	default:
		return pagination.Value{}, false
	}
}

// Fingerprint implements pagination.Record.
func (t Todo) Fingerprint() pagination.Fingerprint {
	return pagination.Fingerprint{ID: t.ID, Title: t.Title, UpdatedAt: t.UpdatedAt, CreatedAt: t.CreatedAt}
}
