package cache

import (
	"context"

	"github.com/saiset-co/sai-stockwatch/types"
	"github.com/saiset-co/sai-stockwatch/utils"
)

// GetAs decodes a cached payload into T. A payload that does not decode is a miss.
func GetAs[T any](ctx context.Context, cache types.CacheManager, key string) (T, bool) {
	var value T

	raw, ok := cache.Get(ctx, key)
	if !ok {
		return value, false
	}

	if err := utils.Unmarshal(raw, &value); err != nil {
		var zero T
		return zero, false
	}

	return value, true
}
