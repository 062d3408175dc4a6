package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric the service exports.
const Namespace = "parish"

// Metrics holds the process-wide HTTP metrics.
type Metrics struct {
	registry       *prometheus.Registry
	RequestLatency *prometheus.HistogramVec
}

// New creates a registry with Go runtime collectors and the HTTP latency
// histogram. Bounded contexts register their own collectors on Registerer().
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Metrics{
		registry: reg,
		RequestLatency: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}

// Registerer exposes the registry for per-context collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	return m.registry
}

// ObserveRequest records one request.
func (m *Metrics) ObserveRequest(route, method, status string, elapsed time.Duration) {
	m.RequestLatency.WithLabelValues(route, method, status).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
