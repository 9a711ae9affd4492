// Package requestsize rejects request bodies above a byte limit with a 413
// rendered through the controller error envelope.
package requestsize

import (
	"errors"
	"net/http"

	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/server/router"
)

// Middleware limits request bodies to maxBytes. A body announced with a
// larger Content-Length is refused before the handler runs; any other body is
// cut off while it is read. A non-positive maxBytes disables the limit.
func Middleware(maxBytes int64) router.MiddlewareFunc {
	if maxBytes <= 0 {
		return func(next router.HandlerFunc) router.HandlerFunc { return next }
	}
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()
			if !hasBody(req) {
				return next(c)
			}
			if req.ContentLength > maxBytes {
				return refuse(c, maxBytes)
			}

			req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBytes)
			c.SetRequest(req)

			err := next(c)
			if exceeded(err) && !c.Response().Written() {
				return refuse(c, maxBytes)
			}
			return err
		}
	}
}

func hasBody(req *http.Request) bool {
	return req != nil && req.Body != nil && req.Body != http.NoBody
}

func exceeded(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}

// refuse answers 413 and asks the client to drop the connection, since the
// unread remainder of the body is still on the wire.
func refuse(c router.Context, maxBytes int64) error {
	c.Response().Header().Set("Connection", "close")
	return controller.Error(c, controller.NewPayloadTooLargeError(maxBytes))
}
