package filter

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFilterMetrics_Singleton(t *testing.T) {
	m1 := GetFilterMetrics()
	m2 := GetFilterMetrics()

	require.NotNil(t, m1)
	require.NotNil(t, m2)
	assert.Same(t, m1, m2)
}

func TestGetFilterMetrics_FieldsInitialized(t *testing.T) {
	m := GetFilterMetrics()

	require.NotNil(t, m)
	assert.NotNil(t, m.appliedTotal)
	assert.NotNil(t, m.elementsDroppedTotal)
	assert.NotNil(t, m.applyDuration)
}

func TestFilterMetrics_MustRegister(t *testing.T) {
	m := GetFilterMetrics()
	registry := prometheus.NewRegistry()

	assert.NotPanics(t, func() {
		m.MustRegister(registry)
		m.Init()
	})
}

func TestFilterMetrics_RecordDropped(t *testing.T) {
	m := GetFilterMetrics()

	before := counterValue(t, m.elementsDroppedTotal)
	m.RecordDropped(3)
	after := counterValue(t, m.elementsDroppedTotal)

	assert.Equal(t, float64(3), after-before)
}

func TestFilterMetrics_RecordDroppedZero(t *testing.T) {
	m := GetFilterMetrics()

	before := counterValue(t, m.elementsDroppedTotal)
	m.RecordDropped(0)
	after := counterValue(t, m.elementsDroppedTotal)

	assert.Equal(t, before, after)
}

func TestFilterMetrics_RecordApply(t *testing.T) {
	m := GetFilterMetrics()

	assert.NotPanics(t, func() {
		m.RecordApply(resultFiltered)
		m.RecordApply(resultPassthrough)
	})
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	metric := &dto.Metric{}
	require.NoError(t, c.Write(metric))
	require.NotNil(t, metric.Counter)
	return metric.Counter.GetValue()
}
