package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nimburion/taskboard/pkg/pagination"
)

// PaginationMetrics records paginator latency and failures by mode.
type PaginationMetrics struct {
	duration *prometheus.HistogramVec
	failures *prometheus.CounterVec
}

func newPaginationMetrics(f promauto.Factory, namespace string) *PaginationMetrics {
	return &PaginationMetrics{
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pagination_duration_seconds",
			Help:      "Time spent building a page, by traversal mode",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"mode"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pagination_failures_total",
			Help:      "Failed page requests, by traversal mode and error kind",
		}, []string{"mode", "kind"}),
	}
}

// Observer returns a pagination.Observer recording into m.
func (m *PaginationMetrics) Observer() pagination.Observer {
	return func(mode pagination.Mode, elapsed time.Duration, err error) {
		m.duration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
		if err == nil {
			return
		}
		kind := "unknown"
		if perr, ok := pagination.AsError(err); ok {
			kind = string(perr.Kind)
		}
		m.failures.WithLabelValues(string(mode), kind).Inc()
	}
}
