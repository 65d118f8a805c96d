package health

import (
	"context"

	"github.com/saiset-co/sai-stockwatch/types"
)

// StorageChecker reports the storage backend as unhealthy when Ping fails.
func StorageChecker(storage types.Storage) types.HealthChecker {
	return func(ctx context.Context) types.HealthCheck {
		if err := storage.Ping(ctx); err != nil {
			return types.HealthCheck{Status: types.StatusUnhealthy, Message: err.Error()}
		}
		return types.HealthCheck{Status: types.StatusHealthy}
	}
}

// ProviderChecker marks the upstream unhealthy while its circuit breaker is open.
func ProviderChecker(provider types.QuoteProvider) types.HealthChecker {
	return func(ctx context.Context) types.HealthCheck {
		reporter, ok := provider.(types.BreakerReporter)
		if !ok {
			return types.HealthCheck{Status: types.StatusUnknown, Message: "provider does not report breaker state"}
		}

		state := reporter.BreakerState()
		check := types.HealthCheck{
			Status:  types.StatusHealthy,
			Details: map[string]interface{}{"circuit_breaker": state},
		}

		if state == "open" {
			check.Status = types.StatusUnhealthy
			check.Message = "upstream circuit breaker is open"
		}

		return check
	}
}

// WatchlistChecker fails when the persisted watchlist document cannot be read
// or decoded, and reports how many lists it holds.
func WatchlistChecker(lists types.WatchlistManager) types.HealthChecker {
	return func(ctx context.Context) types.HealthCheck {
		summaries, err := lists.Summaries(ctx)
		if err != nil {
			return types.HealthCheck{Status: types.StatusUnhealthy, Message: err.Error()}
		}

		return types.HealthCheck{
			Status:  types.StatusHealthy,
			Details: map[string]interface{}{"watchlists": len(summaries)},
		}
	}
}
