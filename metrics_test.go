package goSession

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMetricsDisabledIgnoresCalls(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricValidateLatency, time.Millisecond)
	require.Zero(t, m.Value(MetricLoginSuccess))
	require.Empty(t, m.Snapshot().Counters)

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricLogout)
	require.False(t, nilMetrics.Enabled())
}

func TestMetricsCountersAndHistogram(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricRefreshShared)
	m.Observe(MetricValidateLatency, 3*time.Millisecond)
	m.Observe(MetricValidateLatency, 30*time.Millisecond)
	m.Observe(MetricValidateLatency, time.Second)
	m.Observe(MetricLoginSuccess, time.Second)

	snap := m.Snapshot()
	require.Equal(t, uint64(2), snap.Counters[MetricLoginSuccess])
	require.Equal(t, uint64(1), snap.Counters[MetricRefreshShared])
	require.Equal(t, []uint64{1, 0, 0, 1, 0, 0, 0, 1}, snap.Histograms[MetricValidateLatency])
	require.Len(t, snap.Counters, len(MetricIDs()))
}

func TestMetricNames(t *testing.T) {
	seen := map[string]bool{}
	for _, id := range MetricIDs() {
		name := id.String()
		require.NotEmpty(t, name)
		require.False(t, seen[name], "duplicate metric name %s", name)
		seen[name] = true
	}
	require.Equal(t, "unknown", metricIDCount.String())
}
