package middleware

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MiddlewareMetrics holds Prometheus metrics for middleware operations.
type MiddlewareMetrics struct {
	corsRequestsTotal *prometheus.CounterVec
	panicsRecovered   prometheus.Counter
}

var (
	middlewareMetrics     *MiddlewareMetrics
	middlewareMetricsOnce sync.Once
)

// GetMiddlewareMetrics returns the singleton middleware metrics instance.
func GetMiddlewareMetrics() *MiddlewareMetrics {
	middlewareMetricsOnce.Do(func() {
		middlewareMetrics = newMiddlewareMetrics()
	})
	return middlewareMetrics
}

func newMiddlewareMetrics() *MiddlewareMetrics {
	return &MiddlewareMetrics{
		corsRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pokeproxy",
				Subsystem: "middleware",
				Name:      "cors_requests_total",
				Help: "Total number of CORS " +
					"requests by type",
			},
			[]string{"type"},
		),
		panicsRecovered: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pokeproxy",
				Subsystem: "middleware",
				Name:      "panics_recovered_total",
				Help: "Total number of panics " +
					"recovered",
			},
		),
	}
}

// MustRegister registers all middleware metric collectors with the given
// Prometheus registry. This is needed because promauto registers
// metrics with the default global registry, but the proxy serves
// /metrics from a custom registry.
func (m *MiddlewareMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.corsRequestsTotal,
		m.panicsRecovered,
	)
}

// Init pre-initializes common label combinations with zero values so
// that metrics appear in /metrics output immediately after startup.
// This method is idempotent and safe to call multiple times.
func (m *MiddlewareMetrics) Init() {
	for _, requestType := range []string{"actual", "preflight", "denied"} {
		m.corsRequestsTotal.WithLabelValues(requestType)
	}
}

// RecordCORSRequest increments the CORS request counter for a request type.
func (m *MiddlewareMetrics) RecordCORSRequest(requestType string) {
	m.corsRequestsTotal.WithLabelValues(requestType).Inc()
}

// RecordPanicRecovered increments the recovered panic counter.
func (m *MiddlewareMetrics) RecordPanicRecovered() {
	m.panicsRecovered.Inc()
}
