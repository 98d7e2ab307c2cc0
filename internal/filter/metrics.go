package filter

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels for filter applications.
const (
	resultFiltered    = "filtered"
	resultPassthrough = "passthrough"
)

// FilterMetrics contains Prometheus metrics for filter operations.
type FilterMetrics struct {
	appliedTotal         *prometheus.CounterVec
	elementsDroppedTotal prometheus.Counter
	applyDuration        prometheus.Histogram
}

var (
	filterMetricsInstance *FilterMetrics
	filterMetricsOnce     sync.Once
)

// GetFilterMetrics returns the singleton filter metrics instance.
func GetFilterMetrics() *FilterMetrics {
	filterMetricsOnce.Do(func() {
		filterMetricsInstance = &FilterMetrics{
			appliedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "pokeproxy",
					Subsystem: "filter",
					Name:      "applied_total",
					Help:      "Total number of filter applications",
				},
				[]string{"result"},
			),
			elementsDroppedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "pokeproxy",
					Subsystem: "filter",
					Name:      "elements_dropped_total",
					Help:      "Total number of array elements removed by filtering",
				},
			),
			applyDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: "pokeproxy",
					Subsystem: "filter",
					Name:      "apply_duration_seconds",
					Help:      "Duration of filter applications in seconds",
					Buckets: []float64{
						.0001, .0005, .001, .005,
						.01, .025, .05, .1,
					},
				},
			),
		}
	})
	return filterMetricsInstance
}

// MustRegister registers all filter metric collectors with the given
// Prometheus registry. promauto registers metrics with the default global
// registry, but the proxy serves /metrics from a custom registry; calling
// MustRegister bridges the two so filter metrics appear on the metrics
// endpoint.
func (m *FilterMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.appliedTotal,
		m.elementsDroppedTotal,
		m.applyDuration,
	)
}

// Init pre-initializes label combinations with zero values so that metrics
// appear in /metrics output immediately after startup. Idempotent.
func (m *FilterMetrics) Init() {
	for _, result := range []string{resultFiltered, resultPassthrough} {
		m.appliedTotal.WithLabelValues(result)
	}
}

// RecordApply records one filter application.
func (m *FilterMetrics) RecordApply(result string) {
	m.appliedTotal.WithLabelValues(result).Inc()
}

// RecordDropped records the number of elements removed by one application.
func (m *FilterMetrics) RecordDropped(n int) {
	if n > 0 {
		m.elementsDroppedTotal.Add(float64(n))
	}
}

// ObserveDuration records the duration of one filter application.
func (m *FilterMetrics) ObserveDuration(d time.Duration) {
	m.applyDuration.Observe(d.Seconds())
}
