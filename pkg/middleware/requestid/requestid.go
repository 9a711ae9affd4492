// Package requestid assigns every request an id that is echoed in the
// X-Request-ID response header and carried on the request context.
package requestid

import (
	"context"

	"github.com/google/uuid"

	"github.com/nimburion/taskboard/pkg/observability/logger"
	"github.com/nimburion/taskboard/pkg/server/router"
)

// RequestIDHeader is the HTTP header name for request ID.
const RequestIDHeader = "X-Request-ID"

// ContextKey is the router context key holding the request id.
const ContextKey = "request_id"

const maxIDLength = 128

// RequestID reuses a well-formed incoming X-Request-ID or generates a UUID.
func RequestID() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			requestID := c.Request().Header.Get(RequestIDHeader)
			if !valid(requestID) {
				requestID = uuid.NewString()
			}

			c.Set(ContextKey, requestID)
			c.Response().Header().Set(RequestIDHeader, requestID)
			c.SetRequest(c.Request().WithContext(logger.ContextWithRequestID(c.Request().Context(), requestID)))

			return next(c)
		}
	}
}

// GetRequestID extracts the request ID from a context.
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	return logger.RequestIDFromContext(ctx)
}

// valid accepts short ids made of visible ASCII so that caller-supplied
// values cannot inject into logs or headers.
func valid(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}
