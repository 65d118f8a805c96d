package types

import (
	"context"
	"time"
)

type CacheManager interface {
	Put(ctx context.Context, key string, data interface{}, ttl time.Duration)
	PutDefault(ctx context.Context, key string, data interface{})
	Get(ctx context.Context, key string) ([]byte, bool)
	Delete(ctx context.Context, key string)
	Sweep(ctx context.Context) (int, error)
}

// CacheEntry is the persisted envelope. Expiry is epoch milliseconds.
type CacheEntry struct {
	Data   interface{} `json:"data"`
	Expiry int64       `json:"expiry"`
}
