package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-stockwatch/lifecycle"
	"github.com/saiset-co/sai-stockwatch/types"
	"github.com/saiset-co/sai-stockwatch/utils"
)

// RedisConfig is decoded from storage.config. Durations accept strings such as "3s".
type RedisConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	Password           string        `yaml:"password"`
	DB                 int           `yaml:"db"`
	PoolSize           int           `yaml:"pool_size"`
	MinIdleConnections int           `yaml:"min_idle_connections"`
	DialTimeout        time.Duration `yaml:"dial_timeout"`
	ReadTimeout        time.Duration `yaml:"read_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	KeyPrefix          string        `yaml:"key_prefix"`
	ScanCount          int64         `yaml:"scan_count"`
}

// RedisStorage maps every key onto a prefixed redis string. Expiry stays in the
// cache envelope, so values are written without a redis TTL.
type RedisStorage struct {
	ctx    context.Context
	logger types.Logger
	config *RedisConfig
	client *redis.Client
	life   lifecycle.Machine
}

func NewRedisStorage(ctx context.Context, logger types.Logger, config *types.StorageConfig) (*RedisStorage, error) {
	redisConfig := &RedisConfig{
		Host:               "localhost",
		Port:               6379,
		PoolSize:           10,
		MinIdleConnections: 2,
		DialTimeout:        5 * time.Second,
		ReadTimeout:        3 * time.Second,
		WriteTimeout:       3 * time.Second,
		KeyPrefix:          "stockwatch",
		ScanCount:          100,
	}

	if err := utils.DecodeOptions(config.Config, redisConfig); err != nil {
		return nil, types.WrapError(err, "failed to decode redis storage config")
	}

	return &RedisStorage{
		ctx:    ctx,
		logger: logger,
		config: redisConfig,
		client: redis.NewClient(&redis.Options{
			Addr:         fmt.Sprintf("%s:%d", redisConfig.Host, redisConfig.Port),
			Password:     redisConfig.Password,
			DB:           redisConfig.DB,
			PoolSize:     redisConfig.PoolSize,
			MinIdleConns: redisConfig.MinIdleConnections,
			DialTimeout:  redisConfig.DialTimeout,
			ReadTimeout:  redisConfig.ReadTimeout,
			WriteTimeout: redisConfig.WriteTimeout,
		}),
	}, nil
}

// Start fails unless the server answers a ping within five seconds.
func (r *RedisStorage) Start() error {
	err := r.life.Run(types.ErrServerAlreadyRunning, func() error {
		ctx, cancel := context.WithTimeout(r.ctx, 5*time.Second)
		defer cancel()

		if err := r.client.Ping(ctx).Err(); err != nil {
			return types.Errorf(types.ErrStorageConnectFailed, "redis %s:%d: %v", r.config.Host, r.config.Port, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Info("Redis storage started",
		zap.String("host", r.config.Host),
		zap.Int("port", r.config.Port),
		zap.String("prefix", r.config.KeyPrefix))
	return nil
}

func (r *RedisStorage) Stop() error {
	return r.life.Halt(types.ErrServerNotRunning, func() error {
		if err := r.client.Close(); err != nil {
			return types.WrapError(err, "close redis client")
		}
		return nil
	})
}

func (r *RedisStorage) IsRunning() bool {
	return r.life.Running()
}

func (r *RedisStorage) Read(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, r.fullKey(key)).Bytes()
	if err != nil {
		if types.IsError(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, types.Errorf(types.ErrStorageOperationFailed, "get %s: %v", key, err)
	}

	return value, true, nil
}

func (r *RedisStorage) Write(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.fullKey(key), value, 0).Err(); err != nil {
		return types.Errorf(types.ErrStorageOperationFailed, "set %s: %v", key, err)
	}
	return nil
}

func (r *RedisStorage) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.fullKey(key)).Err(); err != nil {
		return types.Errorf(types.ErrStorageOperationFailed, "del %s: %v", key, err)
	}
	return nil
}

func (r *RedisStorage) Keys(ctx context.Context) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)

	pattern := r.fullKey("*")
	prefix := r.fullKey("")

	for {
		batch, next, err := r.client.Scan(ctx, cursor, pattern, r.config.ScanCount).Result()
		if err != nil {
			return nil, types.Errorf(types.ErrStorageOperationFailed, "scan: %v", err)
		}

		for _, fullKey := range batch {
			keys = append(keys, strings.TrimPrefix(fullKey, prefix))
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	sort.Strings(keys)
	return keys, nil
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStorage) fullKey(key string) string {
	if r.config.KeyPrefix == "" {
		return key
	}
	return r.config.KeyPrefix + ":" + key
}
