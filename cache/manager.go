package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-stockwatch/types"
)

var operationBuckets = []float64{0.0001, 0.001, 0.01, 0.1, 1.0}

// NewCacheManager builds a Store over storage that never touches the
// watchlists document, and meters every call.
func NewCacheManager(config types.ConfigManager, logger types.Logger, metrics types.MetricsManager, storage types.Storage, opts ...Option) (types.CacheManager, error) {
	cacheConfig := config.GetConfig().Cache
	if cacheConfig == nil {
		return nil, types.Errorf(types.ErrConfigNotFound, "cache section")
	}

	if storage == nil {
		return nil, types.Errorf(types.ErrStorageNotRunning, "cache requires a storage")
	}

	options := append([]Option{
		WithDefaultTTL(cacheConfig.DefaultTTL),
		WithReservedKeys(types.WatchlistsKey),
	}, opts...)

	return &meteredCache{store: NewStore(storage, logger, options...), metrics: metrics}, nil
}

type meteredCache struct {
	store   *Store
	metrics types.MetricsManager
}

func (m *meteredCache) Put(ctx context.Context, key string, data interface{}, ttl time.Duration) {
	start := time.Now()

	err := m.store.put(ctx, key, data, ttl)
	if err != nil {
		m.store.logger.Error("Failed to cache entry", zap.String("key", key), zap.Error(err))
	}

	m.observe("put", outcome(err), start)
}

func (m *meteredCache) PutDefault(ctx context.Context, key string, data interface{}) {
	m.Put(ctx, key, data, m.store.defaultTTL)
}

func (m *meteredCache) Get(ctx context.Context, key string) ([]byte, bool) {
	start := time.Now()
	value, result := m.store.get(ctx, key)
	m.observe("get", result, start)

	return value, result == resultHit
}

func (m *meteredCache) Delete(ctx context.Context, key string) {
	start := time.Now()

	err := m.store.delete(ctx, key)
	if err != nil {
		m.store.logger.Error("Failed to delete cache entry", zap.String("key", key), zap.Error(err))
	}

	m.observe("delete", outcome(err), start)
}

func (m *meteredCache) Sweep(ctx context.Context) (int, error) {
	start := time.Now()
	removed, err := m.store.Sweep(ctx)
	m.observe("sweep", outcome(err), start)

	if m.metrics != nil && removed > 0 {
		m.metrics.Counter("cache_swept_entries_total", nil).Add(float64(removed))
	}

	return removed, err
}

func (m *meteredCache) observe(operation, result string, start time.Time) {
	if m.metrics == nil {
		return
	}

	m.metrics.Counter("cache_operations_total", map[string]string{"operation": operation, "result": result}).Inc()
	m.metrics.Histogram("cache_operation_duration_seconds", operationBuckets, map[string]string{"operation": operation}).ObserveDuration(start)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
