package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-stockwatch/logger"
	"github.com/saiset-co/sai-stockwatch/types"
)

type staticConfig struct {
	config *types.ServiceConfig
}

func (s *staticConfig) Load() error                     { return nil }
func (s *staticConfig) GetConfig() *types.ServiceConfig { return s.config }

func newPrometheusManager(t *testing.T) types.MetricsManager {
	t.Helper()

	manager, err := NewManager(context.Background(), &staticConfig{config: &types.ServiceConfig{
		Metrics: &types.MetricsConfig{
			Enabled:   true,
			Type:      "prometheus",
			Namespace: "stockwatch_test",
			Labels:    map[string]string{"service": "test"},
		},
	}}, logger.NewNop())
	require.NoError(t, err)
	return manager
}

func find(values []types.MetricValue, name string, labels map[string]string) (types.MetricValue, bool) {
	for _, value := range values {
		if value.Name != name {
			continue
		}

		matches := true
		for key, want := range labels {
			if value.Labels[key] != want {
				matches = false
			}
		}
		if matches {
			return value, true
		}
	}
	return types.MetricValue{}, false
}

func TestDisabledMetricsAreNoop(t *testing.T) {
	manager, err := NewManager(context.Background(), &staticConfig{config: &types.ServiceConfig{}}, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, manager.Start())
	defer func() { _ = manager.Stop() }()

	counter := manager.Counter("cache_operations_total", map[string]string{"operation": "get"})
	counter.Inc()
	assert.Zero(t, counter.Get())

	values, err := manager.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestInstrumentsDropWritesWhileStopped(t *testing.T) {
	manager := newPrometheusManager(t)

	stopped := manager.Counter("market_requests_total", nil)
	stopped.Inc()
	assert.Zero(t, stopped.Get())

	_, err := manager.Snapshot()
	assert.ErrorIs(t, err, types.ErrMetricsNotRunning)

	assert.ErrorIs(t, manager.Stop(), types.ErrServerNotRunning)
	require.NoError(t, manager.Start())
	assert.ErrorIs(t, manager.Start(), types.ErrServerAlreadyRunning)
	require.NoError(t, manager.Stop())
}

func TestPrometheusSeries(t *testing.T) {
	manager := newPrometheusManager(t)
	require.NoError(t, manager.Start())
	defer func() { _ = manager.Stop() }()

	hit := map[string]string{"operation": "get", "result": "hit"}
	manager.Counter("cache_operations_total", hit).Inc()
	manager.Counter("cache_operations_total", hit).Add(2)
	manager.Counter("cache_operations_total", map[string]string{"operation": "get", "result": "miss"}).Inc()
	assert.Equal(t, float64(3), manager.Counter("cache_operations_total", hit).Get())

	gauge := manager.Gauge("watchlists_total", nil)
	gauge.Set(4)
	gauge.Dec()
	assert.Equal(t, float64(3), gauge.Get())

	histogram := manager.Histogram("market_request_duration_seconds", []float64{0.1, 1}, map[string]string{"operation": "price"})
	histogram.Observe(0.05)
	histogram.ObserveDuration(time.Now())
	assert.Equal(t, uint64(2), histogram.GetCount())

	values, err := manager.Snapshot()
	require.NoError(t, err)

	series, ok := find(values, "stockwatch_test_cache_operations_total", hit)
	require.True(t, ok)
	assert.Equal(t, float64(3), series.Value)
	assert.Equal(t, "COUNTER", series.Type)
	assert.Equal(t, "test", series.Labels["service"])

	series, ok = find(values, "stockwatch_test_market_request_duration_seconds", map[string]string{"operation": "price"})
	require.True(t, ok)
	assert.Equal(t, float64(2), series.Value)

	_, ok = find(values, "go_goroutines", nil)
	assert.True(t, ok, "runtime collectors are registered")
}

func TestMismatchedLabelsAreDropped(t *testing.T) {
	manager := newPrometheusManager(t)
	require.NoError(t, manager.Start())
	defer func() { _ = manager.Stop() }()

	manager.Counter("provider_requests_total", map[string]string{"function": "GLOBAL_QUOTE", "result": "success"}).Inc()

	stray := manager.Counter("provider_requests_total", map[string]string{"endpoint": "quote"})
	assert.NotPanics(t, stray.Inc)
	assert.Zero(t, stray.Get())
}

func TestDescribe(t *testing.T) {
	assert.Contains(t, describe("cache_swept_entries_total", "Counter"), "sweep")
	assert.Equal(t, "Gauge custom_total", describe("custom_total", "Gauge"))
}

func TestUnknownMetricsType(t *testing.T) {
	_, err := NewManager(context.Background(), &staticConfig{config: &types.ServiceConfig{
		Metrics: &types.MetricsConfig{Enabled: true, Type: "statsd"},
	}}, logger.NewNop())
	assert.ErrorIs(t, err, types.ErrMetricsTypeUnknown)
}
