package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ForecastsTotal.WithLabelValues("ok").Inc()
	m.UnknownEventTypes.Add(3)
	m.RiskLevels.WithLabelValues("HIGH").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ForecastsTotal.WithLabelValues("ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.UnknownEventTypes))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	// a second set on the same registry must not be allowed
	assert.Panics(t, func() { NewMetrics(reg) })
}
