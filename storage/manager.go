package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-stockwatch/types"
)

var operationBuckets = []float64{0.0001, 0.001, 0.01, 0.1, 1.0}

// NewManager opens the backend named by storage.type and wraps it so every
// operation is counted and timed.
func NewManager(ctx context.Context, config types.ConfigManager, logger types.Logger, metrics types.MetricsManager) (types.Storage, error) {
	storageConfig := config.GetConfig().Storage
	if storageConfig == nil {
		return nil, types.Errorf(types.ErrConfigNotFound, "storage section")
	}

	backend, err := open(ctx, logger, storageConfig)
	if err != nil {
		return nil, err
	}

	return &instrumentedStorage{impl: backend, logger: logger, metrics: metrics, backend: storageConfig.Type}, nil
}

func open(ctx context.Context, logger types.Logger, config *types.StorageConfig) (types.Storage, error) {
	switch config.Type {
	case "memory":
		return NewMemoryStorage(logger)
	case "clover":
		return NewCloverStorage(logger, config)
	case "sqlite":
		return NewSQLiteStorage(ctx, logger, config)
	case "redis":
		return NewRedisStorage(ctx, logger, config)
	default:
		return nil, types.Errorf(types.ErrStorageTypeUnknown, "type: %s", config.Type)
	}
}

type instrumentedStorage struct {
	impl    types.Storage
	logger  types.Logger
	metrics types.MetricsManager
	backend string
}

func (s *instrumentedStorage) Start() error {
	if err := s.impl.Start(); err != nil {
		return err
	}

	s.logger.Info("Storage started", zap.String("backend", s.backend))
	return nil
}

func (s *instrumentedStorage) Stop() error {
	if err := s.impl.Stop(); err != nil {
		s.logger.Error("Failed to stop storage backend", zap.String("backend", s.backend), zap.Error(err))
		return err
	}

	s.logger.Info("Storage stopped gracefully", zap.String("backend", s.backend))
	return nil
}

func (s *instrumentedStorage) IsRunning() bool {
	return s.impl.IsRunning()
}

func (s *instrumentedStorage) Read(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	value, ok, err := s.impl.Read(ctx, key)

	result := "miss"
	switch {
	case err != nil:
		result = "error"
	case ok:
		result = "hit"
	}

	s.observe("read", result, start)
	return value, ok, err
}

func (s *instrumentedStorage) Write(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := s.impl.Write(ctx, key, value)
	s.observe("write", resultOf(err), start)
	return err
}

func (s *instrumentedStorage) Remove(ctx context.Context, key string) error {
	start := time.Now()
	err := s.impl.Remove(ctx, key)
	s.observe("remove", resultOf(err), start)
	return err
}

func (s *instrumentedStorage) Keys(ctx context.Context) ([]string, error) {
	start := time.Now()
	keys, err := s.impl.Keys(ctx)
	s.observe("keys", resultOf(err), start)
	return keys, err
}

func (s *instrumentedStorage) Ping(ctx context.Context) error {
	return s.impl.Ping(ctx)
}

func (s *instrumentedStorage) observe(operation, result string, start time.Time) {
	if s.metrics == nil {
		return
	}

	s.metrics.Counter("storage_operations_total", map[string]string{
		"backend":   s.backend,
		"operation": operation,
		"result":    result,
	}).Inc()

	s.metrics.Histogram("storage_operation_duration_seconds", operationBuckets,
		map[string]string{"backend": s.backend, "operation": operation},
	).ObserveDuration(start)
}

func resultOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
