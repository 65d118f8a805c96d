package types

import (
	"context"
)

// Storage is the durable key/value capability shared by the cache and the
// watchlist store. Read reports a missing key with ok == false and a nil error.
type Storage interface {
	LifecycleManager
	Read(ctx context.Context, key string) ([]byte, bool, error)
	Write(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}
