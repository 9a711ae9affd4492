package document

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nimburion/taskboard/pkg/pagination"
)

// MemoryRepository keeps documents in process memory. It evaluates the same
// clauses as the MongoDB repository and is used for local runs and tests.
type MemoryRepository[T Entity] struct {
	mu   sync.RWMutex
	docs map[string]T
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository[T Entity]() *MemoryRepository[T] {
	return &MemoryRepository[T]{docs: make(map[string]T)}
}

// Count returns the number of documents matching filters.
func (r *MemoryRepository[T]) Count(_ context.Context, filters pagination.Filters) (int64, error) {
	clauses := filters.Clauses()
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, doc := range r.docs {
		if pagination.Match(doc, clauses) {
			n++
		}
	}
	return n, nil
}

// Find returns the matching documents ordered by q.Sort, then by id.
func (r *MemoryRepository[T]) Find(_ context.Context, q pagination.Query) ([]T, error) {
	if q.Skip < 0 || q.Limit < 0 {
		return nil, fmt.Errorf("%w: skip %d, limit %d", ErrInvalidQuery, q.Skip, q.Limit)
	}
	r.mu.RLock()
	matched := make([]T, 0, len(r.docs))
	for _, doc := range r.docs {
		if pagination.Match(doc, q.Clauses) {
			matched = append(matched, doc)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		cmp := compareField(matched[i], matched[j], q.Sort)
		if cmp == 0 {
			cmp = compareField(matched[i], matched[j], "id")
		}
		if q.Order == pagination.OrderDesc {
			return cmp > 0
		}
		return cmp < 0
	})

	if q.Skip >= len(matched) {
		return []T{}, nil
	}
	matched = matched[q.Skip:]
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

// FindByID returns the document with the given id.
func (r *MemoryRepository[T]) FindByID(_ context.Context, id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return doc, nil
}

// FindOne returns the first document matching filters in id order.
func (r *MemoryRepository[T]) FindOne(ctx context.Context, filters pagination.Filters) (T, error) {
	docs, err := r.Find(ctx, pagination.Query{Clauses: filters.Clauses(), Sort: "id", Order: pagination.OrderAsc, Limit: 1})
	if err != nil || len(docs) == 0 {
		var zero T
		return zero, ErrNotFound
	}
	return docs[0], nil
}

// Create stores a new document.
func (r *MemoryRepository[T]) Create(_ context.Context, entity T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := entity.EntityID()
	if _, exists := r.docs[id]; exists {
		return fmt.Errorf("%w: id %s", ErrConflict, id)
	}
	if err := r.checkUnique(entity); err != nil {
		return err
	}
	r.docs[id] = entity
	return nil
}

// Update replaces an existing document.
func (r *MemoryRepository[T]) Update(_ context.Context, entity T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := entity.EntityID()
	if _, exists := r.docs[id]; !exists {
		return ErrNotFound
	}
	if err := r.checkUnique(entity); err != nil {
		return err
	}
	r.docs[id] = entity
	return nil
}

// Delete removes a document.
func (r *MemoryRepository[T]) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.docs[id]; !exists {
		return ErrNotFound
	}
	delete(r.docs, id)
	return nil
}

// checkUnique must be called with the write lock held.
func (r *MemoryRepository[T]) checkUnique(entity T) error {
	u, ok := any(entity).(Unique)
	if !ok {
		return nil
	}
	for _, field := range u.UniqueFields() {
		want, ok := entity.Field(field)
		if !ok {
			continue
		}
		for id, doc := range r.docs {
			if id == entity.EntityID() {
				continue
			}
			if got, ok := doc.Field(field); ok && got.Compare(want) == 0 {
				return fmt.Errorf("%w: %s %q already exists", ErrConflict, field, want)
			}
		}
	}
	return nil
}

// compareField orders documents missing the field before all others.
func compareField[T Entity](a, b T, field string) int {
	va, _ := a.Field(field)
	vb, _ := b.Field(field)
	return va.Compare(vb)
}
