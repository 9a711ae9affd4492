package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics records request counts, latencies and rate limit rejections.
type HTTPMetrics struct {
	duration    *prometheus.HistogramVec
	total       *prometheus.CounterVec
	inFlight    prometheus.Gauge
	rateLimited *prometheus.CounterVec
}

func newHTTPMetrics(f promauto.Factory, namespace string) *HTTPMetrics {
	return &HTTPMetrics{
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		total: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		}),
		rateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}, []string{"limiter"}),
	}
}

// Observe records one completed request.
func (m *HTTPMetrics) Observe(method, path string, status int, elapsed time.Duration) {
	s := strconv.Itoa(status)
	m.duration.WithLabelValues(method, path, s).Observe(elapsed.Seconds())
	m.total.WithLabelValues(method, path, s).Inc()
}

// Started marks a request as in flight and returns the func that ends it.
func (m *HTTPMetrics) Started() (done func()) {
	m.inFlight.Inc()
	return m.inFlight.Dec
}

// RateLimited counts a rejection by the named limiter.
func (m *HTTPMetrics) RateLimited(limiter string) {
	m.rateLimited.WithLabelValues(limiter).Inc()
}
