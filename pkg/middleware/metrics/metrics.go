// Package metrics records Prometheus request metrics for every HTTP request.
package metrics

import (
	"net/http"
	"time"

	"github.com/nimburion/taskboard/pkg/middleware"
	obsmetrics "github.com/nimburion/taskboard/pkg/observability/metrics"
	"github.com/nimburion/taskboard/pkg/server/router"
)

// Metrics records request duration, count and in-flight requests by method,
// normalized path and status.
func Metrics(m *obsmetrics.HTTPMetrics) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			done := m.Started()
			defer done()

			start := time.Now()
			err := next(c)

			status := c.Response().Status()
			if err != nil && !c.Response().Written() {
				status = http.StatusInternalServerError
			}
			m.Observe(c.Request().Method, middleware.NormalizePath(c.Request().URL.Path), status, time.Since(start))
			return err
		}
	}
}
