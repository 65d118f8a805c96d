package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-stockwatch/types"
)

const SweepJobName = "cache-sweep"

// RegisterSweeper schedules a periodic Sweep on the cron manager.
func RegisterSweeper(ctx context.Context, cron types.CronManager, cache types.CacheManager, logger types.Logger, schedule string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = time.Minute
	}

	return cron.Add(SweepJobName, schedule, func() {
		sweepCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		removed, err := cache.Sweep(sweepCtx)
		if err != nil {
			logger.Error("Cache sweep failed", zap.Int("removed", removed), zap.Error(err))
			return
		}

		logger.Debug("Cache sweep finished", zap.Int("removed", removed))
	})
}
