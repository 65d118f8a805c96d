package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-stockwatch/types"
	"github.com/saiset-co/sai-stockwatch/utils"
)

const DefaultTTL = time.Hour

type Clock func() time.Time

type Option func(*Store)

// WithClock replaces the wall clock used to stamp and check expiry.
func WithClock(clock Clock) Option {
	return func(s *Store) {
		s.now = clock
	}
}

func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// WithReservedKeys marks keys that share the storage but are not cache entries.
// They always read as a miss and are never written, deleted or swept.
func WithReservedKeys(keys ...string) Option {
	return func(s *Store) {
		for _, key := range keys {
			s.reserved[key] = struct{}{}
		}
	}
}

// Store is a TTL cache over a key-value storage. Every value is persisted as
// {"data": ..., "expiry": <epoch ms>} and expired entries are dropped on read.
type Store struct {
	storage    types.Storage
	logger     types.Logger
	defaultTTL time.Duration
	now        Clock
	reserved   map[string]struct{}
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Expiry int64           `json:"expiry"`
}

func NewStore(storage types.Storage, logger types.Logger, opts ...Option) *Store {
	s := &Store{
		storage:    storage,
		logger:     logger,
		defaultTTL: DefaultTTL,
		now:        time.Now,
		reserved:   make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Put stores data until now+ttl. A ttl of zero or less yields an entry that
// is already due to expire.
func (s *Store) Put(ctx context.Context, key string, data interface{}, ttl time.Duration) {
	if err := s.put(ctx, key, data, ttl); err != nil {
		s.logger.Error("Failed to cache entry", zap.String("key", key), zap.Error(err))
	}
}

// PutDefault stores data for the store's default TTL.
func (s *Store) PutDefault(ctx context.Context, key string, data interface{}) {
	s.Put(ctx, key, data, s.defaultTTL)
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	data, result := s.get(ctx, key)
	return data, result == resultHit
}

func (s *Store) Delete(ctx context.Context, key string) {
	if err := s.delete(ctx, key); err != nil {
		s.logger.Error("Failed to delete cache entry", zap.String("key", key), zap.Error(err))
	}
}

// Sweep removes every expired envelope and reports how many were dropped.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	keys, err := s.storage.Keys(ctx)
	if err != nil {
		return 0, types.WrapError(err, "failed to list cache keys")
	}

	now := s.nowMillis()
	removed := 0

	for _, key := range keys {
		if s.isReserved(key) {
			continue
		}

		if err := ctx.Err(); err != nil {
			return removed, err
		}

		raw, ok, err := s.storage.Read(ctx, key)
		if err != nil {
			s.logger.Warn("Sweep skipped unreadable key", zap.String("key", key), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}

		entry, err := decodeEnvelope(raw)
		if err != nil {
			continue
		}

		if now <= entry.Expiry {
			continue
		}

		if err := s.storage.Remove(ctx, key); err != nil {
			s.logger.Warn("Sweep failed to remove key", zap.String("key", key), zap.Error(err))
			continue
		}

		removed++
	}

	return removed, nil
}

const (
	resultHit     = "hit"
	resultMiss    = "miss"
	resultExpired = "expired"
	resultCorrupt = "corrupt"
	resultError   = "error"
)

func (s *Store) put(ctx context.Context, key string, data interface{}, ttl time.Duration) error {
	if key == "" {
		return types.ErrCacheKeyEmpty
	}

	if s.isReserved(key) {
		return types.Errorf(types.ErrCacheKeyReserved, "key: %s", key)
	}

	raw, err := utils.Marshal(&types.CacheEntry{
		Data:   data,
		Expiry: s.nowMillis() + ttl.Milliseconds(),
	})
	if err != nil {
		return types.Errorf(types.ErrCacheOperationFailed, "marshal %s: %v", key, err)
	}

	if err := s.storage.Write(ctx, key, raw); err != nil {
		return types.Errorf(types.ErrCacheOperationFailed, "write %s: %v", key, err)
	}

	return nil
}

func (s *Store) get(ctx context.Context, key string) ([]byte, string) {
	if key == "" || s.isReserved(key) {
		return nil, resultMiss
	}

	raw, ok, err := s.storage.Read(ctx, key)
	if err != nil {
		s.logger.Error("Failed to read cache entry", zap.String("key", key), zap.Error(err))
		return nil, resultError
	}
	if !ok {
		return nil, resultMiss
	}

	entry, err := decodeEnvelope(raw)
	if err != nil {
		s.logger.Warn("Dropping invalid cache entry", zap.String("key", key), zap.Error(err))
		s.Delete(ctx, key)
		return nil, resultCorrupt
	}

	if s.nowMillis() > entry.Expiry {
		s.Delete(ctx, key)
		return nil, resultExpired
	}

	return entry.Data, resultHit
}

func (s *Store) delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	if s.isReserved(key) {
		return types.Errorf(types.ErrCacheKeyReserved, "key: %s", key)
	}

	if err := s.storage.Remove(ctx, key); err != nil {
		return types.Errorf(types.ErrCacheOperationFailed, "remove %s: %v", key, err)
	}

	return nil
}

func decodeEnvelope(raw []byte) (envelope, error) {
	var entry envelope
	if err := utils.Unmarshal(raw, &entry); err != nil {
		return entry, types.Errorf(types.ErrCacheEntryInvalid, "%v", err)
	}

	if entry.Expiry == 0 {
		return entry, types.Errorf(types.ErrCacheEntryInvalid, "missing expiry")
	}

	return entry, nil
}

func (s *Store) isReserved(key string) bool {
	_, reserved := s.reserved[key]
	return reserved
}

func (s *Store) nowMillis() int64 {
	return s.now().UnixMilli()
}
