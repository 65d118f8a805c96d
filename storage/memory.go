package storage

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-stockwatch/lifecycle"
	"github.com/saiset-co/sai-stockwatch/types"
)

// MemoryStorage keeps values in process memory. Nothing survives Stop.
type MemoryStorage struct {
	data   map[string][]byte
	mutex  sync.RWMutex
	logger types.Logger
	life   lifecycle.Machine
}

func NewMemoryStorage(logger types.Logger) (*MemoryStorage, error) {
	return &MemoryStorage{data: make(map[string][]byte), logger: logger}, nil
}

func (m *MemoryStorage) Start() error {
	return m.life.Run(types.ErrServerAlreadyRunning, nil)
}

func (m *MemoryStorage) Stop() error {
	return m.life.Halt(types.ErrServerNotRunning, func() error {
		m.mutex.Lock()
		entries := len(m.data)
		m.data = make(map[string][]byte)
		m.mutex.Unlock()

		m.logger.Debug("Memory storage cleared", zap.Int("entries", entries))
		return nil
	})
}

func (m *MemoryStorage) IsRunning() bool {
	return m.life.Running()
}

func (m *MemoryStorage) Read(_ context.Context, key string) ([]byte, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	value, exists := m.data[key]
	if !exists {
		return nil, false, nil
	}

	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

func (m *MemoryStorage) Write(_ context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	m.mutex.Lock()
	m.data[key] = stored
	m.mutex.Unlock()

	return nil
}

func (m *MemoryStorage) Remove(_ context.Context, key string) error {
	m.mutex.Lock()
	delete(m.data, key)
	m.mutex.Unlock()

	return nil
}

func (m *MemoryStorage) Keys(_ context.Context) ([]string, error) {
	m.mutex.RLock()
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}
	m.mutex.RUnlock()

	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStorage) Ping(_ context.Context) error {
	return nil
}
