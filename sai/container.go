// Package sai publishes the components of a running stockwatch service to
// code embedding it as a library.
package sai

import (
	"sync/atomic"

	"github.com/saiset-co/sai-stockwatch/types"
)

type slot[T any] struct {
	name  string
	value atomic.Pointer[T]
}

func (s *slot[T]) set(value T) {
	s.value.Store(&value)
}

func (s *slot[T]) get() T {
	if ptr := s.value.Load(); ptr != nil {
		return *ptr
	}
	panic(s.name + " not initialized")
}

type Container struct {
	config     slot[types.ConfigManager]
	logger     slot[types.LoggerManager]
	metrics    slot[types.MetricsManager]
	cache      slot[types.CacheManager]
	watchlists slot[types.WatchlistManager]
	market     slot[types.MarketService]
	cron       slot[types.CronManager]
	health     slot[types.HealthManager]
}

func NewContainer() *Container {
	return &Container{
		config:     slot[types.ConfigManager]{name: "ConfigManager"},
		logger:     slot[types.LoggerManager]{name: "Logger"},
		metrics:    slot[types.MetricsManager]{name: "MetricsManager"},
		cache:      slot[types.CacheManager]{name: "CacheManager"},
		watchlists: slot[types.WatchlistManager]{name: "WatchlistManager"},
		market:     slot[types.MarketService]{name: "MarketService"},
		cron:       slot[types.CronManager]{name: "CronManager"},
		health:     slot[types.HealthManager]{name: "HealthManager"},
	}
}

var global atomic.Pointer[Container]

// Publish makes container the one the package accessors read from.
func Publish(container *Container) {
	global.Store(container)
}

func current() *Container {
	if container := global.Load(); container != nil {
		return container
	}
	panic("Container not initialized")
}

func Config() types.ConfigManager        { return current().config.get() }
func Logger() types.LoggerManager        { return current().logger.get() }
func Metrics() types.MetricsManager      { return current().metrics.get() }
func Cache() types.CacheManager          { return current().cache.get() }
func Watchlists() types.WatchlistManager { return current().watchlists.get() }
func Market() types.MarketService        { return current().market.get() }
func Cron() types.CronManager            { return current().cron.get() }
func Health() types.HealthManager        { return current().health.get() }

func (c *Container) SetConfig(config types.ConfigManager)       { c.config.set(config) }
func (c *Container) SetLogger(logger types.LoggerManager)       { c.logger.set(logger) }
func (c *Container) SetMetrics(metrics types.MetricsManager)    { c.metrics.set(metrics) }
func (c *Container) SetCache(cache types.CacheManager)          { c.cache.set(cache) }
func (c *Container) SetWatchlists(lists types.WatchlistManager) { c.watchlists.set(lists) }
func (c *Container) SetMarket(market types.MarketService)       { c.market.set(market) }
func (c *Container) SetCron(cron types.CronManager)             { c.cron.set(cron) }
func (c *Container) SetHealth(health types.HealthManager)       { c.health.set(health) }
