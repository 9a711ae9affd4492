// Package recovery turns handler panics into 500 responses.
package recovery

import (
	"fmt"
	"runtime/debug"

	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/middleware/requestid"
	"github.com/nimburion/taskboard/pkg/observability/logger"
	"github.com/nimburion/taskboard/pkg/server/router"
)

// Recovery catches panics, logs them with the stack trace and answers with
// the standard 500 error envelope unless a response was already started.
func Recovery(log logger.Logger) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				requestID := requestid.GetRequestID(c.Request().Context())
				log.Error("panic recovered",
					"request_id", requestID,
					"method", c.Request().Method,
					"path", c.Request().URL.Path,
					"panic", fmt.Sprint(r),
					"stack", string(debug.Stack()),
				)

				if c.Response().Written() {
					err = nil
					return
				}
				if writeErr := controller.Error(c, fmt.Errorf("panic: %v", r)); writeErr != nil {
					log.Error("failed to send error response", "request_id", requestID, "error", writeErr)
				}
				err = nil
			}()

			return next(c)
		}
	}
}
