// Package service implements the taskboard use cases on top of the document
// repositories. Collaborators are passed in explicitly; nothing here reads
// package-level state.
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nimburion/taskboard/pkg/model"
	"github.com/nimburion/taskboard/pkg/observability/logger"
	"github.com/nimburion/taskboard/pkg/pagination"
)

var (
	// ErrInvalidCredentials is returned when a login does not match a user.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden is returned when the caller may not perform an action.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput is returned for requests that are well formed but not acceptable.
	ErrInvalidInput = errors.New("invalid input")
)

// Actor is the authenticated caller of a service method.
type Actor struct {
	UserID string
	Roles  []string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	for _, r := range a.Roles {
		if r == model.RoleAdmin {
			return true
		}
	}
	return false
}

// Options carries the collaborators shared by every service.
type Options struct {
	Logger logger.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
	// NewID defaults to time-ordered UUIDv7 strings.
	NewID func() (string, error)
	// Pagination is applied to every listing.
	Pagination []pagination.Option
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = logger.Nop{}
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.NewID == nil {
		o.NewID = NewID
	}
	return o
}

func (o Options) now() time.Time { return o.Clock().UTC() }

// NewID returns a UUIDv7. Its string form sorts in creation order, which keeps
// the default id sort aligned with insertion time.
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate id: %w", err)
	}
	return id.String(), nil
}

// withFilter returns a copy of f with field set to cond.
func withFilter(f pagination.Filters, field string, cond pagination.Condition) pagination.Filters {
	out := make(pagination.Filters, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	out[field] = cond
	return out
}

func byName(name string) pagination.Filters {
	return pagination.Filters{"name": pagination.Eq(pagination.StringValue(name))}
}
