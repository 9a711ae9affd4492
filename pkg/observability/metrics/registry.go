// Package metrics owns the Prometheus registry and the collectors recorded by
// the HTTP middleware and the paginator. Nothing is registered globally.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry manages Prometheus metrics registration and exposure.
type Registry struct {
	registry   *prometheus.Registry
	HTTP       *HTTPMetrics
	Pagination *PaginationMetrics
}

// NewRegistry creates a registry with runtime collectors, HTTP metrics and
// pagination metrics. Metric names are prefixed with namespace when set.
func NewRegistry(namespace string) *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)
	return &Registry{
		registry:   reg,
		HTTP:       newHTTPMetrics(factory, namespace),
		Pagination: newPaginationMetrics(factory, namespace),
	}
}

// Register registers a custom Prometheus collector.
func (r *Registry) Register(collector prometheus.Collector) error {
	return r.registry.Register(collector)
}

// Handler returns an HTTP handler that exposes metrics in Prometheus format.
// It is mounted on the management server at /metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Gatherer returns the underlying prometheus.Gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}
