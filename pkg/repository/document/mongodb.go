package document

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/trace"

	"github.com/nimburion/taskboard/pkg/observability/tracing"
	"github.com/nimburion/taskboard/pkg/pagination"
	mongostore "github.com/nimburion/taskboard/pkg/store/mongodb"
)

// MongoStore is the subset of the MongoDB adapter used by MongoRepository.
type MongoStore interface {
	Count(ctx context.Context, collection string, filter any) (int64, error)
	Find(ctx context.Context, collection string, filter any, opts *options.FindOptions, results any) error
	FindOne(ctx context.Context, collection string, filter, result any) error
	InsertOne(ctx context.Context, collection string, doc any) error
	ReplaceOne(ctx context.Context, collection string, filter, doc any) (bool, error)
	DeleteOne(ctx context.Context, collection string, filter any) (bool, error)
}

// MongoRepository stores T documents in one MongoDB collection. T must map
// its id to the "_id" bson field; other pagination field names must equal
// their bson names.
type MongoRepository[T Entity] struct {
	store      MongoStore
	collection string
}

// NewMongoRepository binds a repository to collection.
func NewMongoRepository[T Entity](store MongoStore, collection string) (*MongoRepository[T], error) {
	if store == nil {
		return nil, errors.New("mongodb store is required")
	}
	if collection == "" {
		return nil, errors.New("collection name is required")
	}
	return &MongoRepository[T]{store: store, collection: collection}, nil
}

// Count returns the number of documents matching filters.
func (r *MongoRepository[T]) Count(ctx context.Context, filters pagination.Filters) (n int64, err error) {
	filter := BuildFilter(filters.Clauses())
	ctx, span := r.span(ctx, tracing.SpanOperationDBCount, filter)
	defer func() { tracing.End(span, err) }()

	n, err = r.store.Count(ctx, r.collection, filter)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.collection, err)
	}
	return n, nil
}

// Find runs q against the collection.
func (r *MongoRepository[T]) Find(ctx context.Context, q pagination.Query) (docs []T, err error) {
	if q.Skip < 0 || q.Limit < 0 {
		return nil, fmt.Errorf("%w: skip %d, limit %d", ErrInvalidQuery, q.Skip, q.Limit)
	}
	filter := BuildFilter(q.Clauses)
	ctx, span := r.span(ctx, tracing.SpanOperationDBQuery, filter)
	defer func() { tracing.End(span, err) }()

	opts := options.Find().SetSort(BuildSort(q.Sort, q.Order)).SetSkip(int64(q.Skip))
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	docs = []T{}
	if err = r.store.Find(ctx, r.collection, filter, opts, &docs); err != nil {
		return nil, fmt.Errorf("find %s: %w", r.collection, err)
	}
	return docs, nil
}

// FindByID returns the document with the given id.
func (r *MongoRepository[T]) FindByID(ctx context.Context, id string) (T, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

// FindOne returns the first document matching filters.
func (r *MongoRepository[T]) FindOne(ctx context.Context, filters pagination.Filters) (T, error) {
	return r.findOne(ctx, BuildFilter(filters.Clauses()))
}

func (r *MongoRepository[T]) findOne(ctx context.Context, filter bson.D) (doc T, err error) {
	ctx, span := r.span(ctx, tracing.SpanOperationDBQuery, filter)
	defer func() { tracing.End(span, err) }()

	if err = r.store.FindOne(ctx, r.collection, filter, &doc); err != nil {
		var zero T
		if errors.Is(err, mongostore.ErrNoDocuments) {
			return zero, ErrNotFound
		}
		return zero, fmt.Errorf("find one %s: %w", r.collection, err)
	}
	return doc, nil
}

// Create inserts entity.
func (r *MongoRepository[T]) Create(ctx context.Context, entity T) (err error) {
	ctx, span := r.span(ctx, tracing.SpanOperationDBInsert, nil)
	defer func() { tracing.End(span, err) }()

	if err = r.store.InsertOne(ctx, r.collection, entity); err != nil {
		return r.writeError("insert", err)
	}
	return nil
}

// Update replaces the stored document with entity.
func (r *MongoRepository[T]) Update(ctx context.Context, entity T) (err error) {
	filter := bson.D{{Key: "_id", Value: entity.EntityID()}}
	ctx, span := r.span(ctx, tracing.SpanOperationDBUpdate, filter)
	defer func() { tracing.End(span, err) }()

	matched, err := r.store.ReplaceOne(ctx, r.collection, filter, entity)
	if err != nil {
		return r.writeError("replace", err)
	}
	if !matched {
		return ErrNotFound
	}
	return nil
}

// Delete removes the document with the given id.
func (r *MongoRepository[T]) Delete(ctx context.Context, id string) (err error) {
	filter := bson.D{{Key: "_id", Value: id}}
	ctx, span := r.span(ctx, tracing.SpanOperationDBDelete, filter)
	defer func() { tracing.End(span, err) }()

	existed, err := r.store.DeleteOne(ctx, r.collection, filter)
	if err != nil {
		return fmt.Errorf("delete %s: %w", r.collection, err)
	}
	if !existed {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository[T]) writeError(op string, err error) error {
	if mongostore.IsDuplicateKey(err) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return fmt.Errorf("%s %s: %w", op, r.collection, err)
}

func (r *MongoRepository[T]) span(ctx context.Context, op tracing.SpanOperation, filter bson.D) (context.Context, trace.Span) {
	opts := []tracing.DatabaseSpanOption{tracing.WithDBSystem("mongodb"), tracing.WithDBCollection(r.collection)}
	if filter != nil {
		if stmt, err := bson.MarshalExtJSON(filter, false, false); err == nil {
			opts = append(opts, tracing.WithDBStatement(string(stmt)))
		}
	}
	return tracing.StartDatabaseSpan(ctx, op, opts...)
}
