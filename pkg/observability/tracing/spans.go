// Package tracing configures OpenTelemetry and provides span helpers for
// storage calls.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanOperation names a traced storage operation.
type SpanOperation string

// Storage operations.
const (
	SpanOperationDBCount  SpanOperation = "db.count"
	SpanOperationDBQuery  SpanOperation = "db.query"
	SpanOperationDBInsert SpanOperation = "db.insert"
	SpanOperationDBUpdate SpanOperation = "db.update"
	SpanOperationDBDelete SpanOperation = "db.delete"
)

// DatabaseSpanOption adds attributes to a database span.
type DatabaseSpanOption func(*databaseSpan)

type databaseSpan struct {
	collection string
	attributes []attribute.KeyValue
}

// WithDBCollection sets the collection name; it also becomes part of the span name.
func WithDBCollection(name string) DatabaseSpanOption {
	return func(s *databaseSpan) {
		s.collection = name
		s.attributes = append(s.attributes, attribute.String("db.collection.name", name))
	}
}

// WithDBSystem sets the storage engine, e.g. "mongodb".
func WithDBSystem(system string) DatabaseSpanOption {
	return func(s *databaseSpan) {
		s.attributes = append(s.attributes, attribute.String("db.system", system))
	}
}

// WithDBStatement records the query sent to the store.
func WithDBStatement(statement string) DatabaseSpanOption {
	return func(s *databaseSpan) {
		s.attributes = append(s.attributes, attribute.String("db.statement", statement))
	}
}

// StartDatabaseSpan starts a client span for a storage call.
func StartDatabaseSpan(ctx context.Context, op SpanOperation, opts ...DatabaseSpanOption) (context.Context, trace.Span) {
	s := &databaseSpan{attributes: []attribute.KeyValue{attribute.String("db.operation", string(op))}}
	for _, opt := range opts {
		opt(s)
	}
	name := "DB " + string(op)
	if s.collection != "" {
		name += " " + s.collection
	}
	ctx, span := otel.Tracer("taskboard/storage").Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(s.attributes...)
	return ctx, span
}

// End records err on span, if any, and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
