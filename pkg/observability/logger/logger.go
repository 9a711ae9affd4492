package logger

import "context"

// Logger is the structured logger used across taskboard. Log methods take a
// message followed by alternating key-value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// With returns a child logger that adds args to every entry.
	With(args ...any) Logger

	// WithContext returns a child logger tagged with the request id found in ctx.
	WithContext(ctx context.Context) Logger
}

type requestIDKey struct{}

// ContextWithRequestID stores the request id used by WithContext.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Nop discards everything.
type Nop struct{}

func (Nop) Debug(string, ...any)                 {}
func (Nop) Info(string, ...any)                  {}
func (Nop) Warn(string, ...any)                  {}
func (Nop) Error(string, ...any)                 {}
func (n Nop) With(...any) Logger                 { return n }
func (n Nop) WithContext(context.Context) Logger { return n }
