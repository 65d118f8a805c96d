package service

import (
	"context"
	"time"

	"github.com/saiset-co/sai-stockwatch/cache"
	"github.com/saiset-co/sai-stockwatch/config"
	"github.com/saiset-co/sai-stockwatch/cron"
	"github.com/saiset-co/sai-stockwatch/health"
	"github.com/saiset-co/sai-stockwatch/logger"
	"github.com/saiset-co/sai-stockwatch/market"
	"github.com/saiset-co/sai-stockwatch/metrics"
	"github.com/saiset-co/sai-stockwatch/provider"
	"github.com/saiset-co/sai-stockwatch/sai"
	"github.com/saiset-co/sai-stockwatch/storage"
	"github.com/saiset-co/sai-stockwatch/types"
	"github.com/saiset-co/sai-stockwatch/watchlist"
)

const sweepTimeout = time.Minute

type component struct {
	name    string
	manager types.LifecycleManager
}

// components is the wired object graph of one service instance.
type components struct {
	config     *config.ConfigurationManager
	logger     *logger.Manager
	metrics    types.MetricsManager
	storage    types.Storage
	cache      types.CacheManager
	provider   *provider.AlphaVantage
	watchlists *watchlist.Store
	market     *market.Service
	cron       *cron.Manager
	health     *health.Manager
}

// assemble builds every component from the file at configPath without
// starting any of them. Health stays nil when it is disabled.
func assemble(ctx context.Context, configPath string) (*components, error) {
	var (
		c   components
		err error
	)

	if c.config, err = config.NewConfigurationManager(ctx, configPath); err != nil {
		return nil, types.WrapError(err, "failed to build config manager")
	}
	settings := c.config.GetConfig()

	if c.logger, err = logger.NewManager(ctx, c.config); err != nil {
		return nil, types.WrapError(err, "failed to build logger")
	}

	if c.metrics, err = metrics.NewManager(ctx, c.config, c.logger); err != nil {
		return nil, types.WrapError(err, "failed to build metrics manager")
	}

	if c.storage, err = storage.NewManager(ctx, c.config, c.logger, c.metrics); err != nil {
		return nil, types.WrapError(err, "failed to build storage")
	}

	if c.cache, err = cache.NewCacheManager(c.config, c.logger, c.metrics, c.storage); err != nil {
		return nil, types.WrapError(err, "failed to build cache manager")
	}

	if c.provider, err = provider.NewAlphaVantage(ctx, c.logger, c.metrics, settings.Provider); err != nil {
		return nil, types.WrapError(err, "failed to build provider")
	}

	c.watchlists = watchlist.NewStore(c.storage, c.logger, c.metrics)
	c.market = market.NewService(c.cache, c.provider, c.logger, c.metrics, market.PolicyFromConfig(settings.Cache.TTL))

	if c.cron, err = cron.NewManager(ctx, c.config, c.logger, c.metrics); err != nil {
		return nil, types.WrapError(err, "failed to build cron manager")
	}

	if sweep := settings.Cache.Sweep; sweep != nil && sweep.Enabled {
		if err = cache.RegisterSweeper(ctx, c.cron, c.cache, c.logger, sweep.Schedule, sweepTimeout); err != nil {
			return nil, types.WrapError(err, "failed to schedule cache sweep")
		}
	}

	if settings.Health != nil && settings.Health.Enabled {
		if c.health, err = health.NewManager(ctx, c.config, c.logger); err != nil {
			return nil, types.WrapError(err, "failed to build health manager")
		}

		c.health.RegisterChecker(types.CheckStorage, health.StorageChecker(c.storage))
		c.health.RegisterChecker(types.CheckProvider, health.ProviderChecker(c.provider))
		c.health.RegisterChecker(types.CheckWatchlists, health.WatchlistChecker(c.watchlists))
	}

	return &c, nil
}

func (c *components) container() *sai.Container {
	container := sai.NewContainer()
	container.SetConfig(c.config)
	container.SetLogger(c.logger)
	container.SetMetrics(c.metrics)
	container.SetCache(c.cache)
	container.SetWatchlists(c.watchlists)
	container.SetMarket(c.market)
	container.SetCron(c.cron)
	if c.health != nil {
		container.SetHealth(c.health)
	}
	return container
}

// foundation lists the components a start must not proceed without, in
// start order.
func (c *components) foundation() []component {
	return []component{
		{"config manager", c.config},
		{"logger", c.logger},
		{"metrics manager", c.metrics},
		{"storage", c.storage},
		{"provider", c.provider},
	}
}

// shutdown groups components into stages stopped one after another.
// Components inside a stage stop concurrently. The logger is left for last.
func (c *components) shutdown() [][]component {
	schedulers := []component{{"cron manager", c.cron}}
	if c.health != nil {
		schedulers = append(schedulers, component{"health manager", c.health})
	}

	return [][]component{
		schedulers,
		{{"provider", c.provider}, {"storage", c.storage}},
		{{"metrics manager", c.metrics}, {"config manager", c.config}},
	}
}
