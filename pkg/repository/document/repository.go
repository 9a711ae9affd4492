// Package document provides generic repositories for document stores. Every
// repository satisfies pagination.Source so listings can be paginated
// directly against it.
package document

import (
	"context"
	"errors"

	"github.com/nimburion/taskboard/pkg/pagination"
)

var (
	// ErrNotFound is returned when no document matches.
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("document conflicts with an existing one")
	// ErrUnavailable is returned while the store is considered unhealthy.
	ErrUnavailable = errors.New("document store unavailable")
	// ErrInvalidQuery is returned for a query no store can run, such as a negative skip.
	ErrInvalidQuery = errors.New("invalid document query")
)

// Entity is a document with a string identifier.
type Entity interface {
	pagination.Record
	EntityID() string
}

// Unique is implemented by entities whose listed fields must not repeat.
type Unique interface {
	UniqueFields() []string
}

// Reader provides read operations.
type Reader[T Entity] interface {
	pagination.Source[T]
	FindByID(ctx context.Context, id string) (T, error)
	FindOne(ctx context.Context, filters pagination.Filters) (T, error)
}

// Writer provides write operations.
type Writer[T Entity] interface {
	Create(ctx context.Context, entity T) error
	Update(ctx context.Context, entity T) error
	Delete(ctx context.Context, id string) error
}

// Repository combines Reader and Writer.
type Repository[T Entity] interface {
	Reader[T]
	Writer[T]
}
