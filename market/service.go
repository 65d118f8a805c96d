package market

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/saiset-co/sai-stockwatch/cache"
	"github.com/saiset-co/sai-stockwatch/types"
	"github.com/saiset-co/sai-stockwatch/utils"
)

const (
	sourceCache    = "cache"
	sourceUpstream = "upstream"
	sourceError    = "error"
)

// Service answers market data questions from the cache first and falls
// back to the provider, storing what it fetched under the policy's TTL.
type Service struct {
	cache    types.CacheManager
	provider types.QuoteProvider
	logger   types.Logger
	metrics  types.MetricsManager
	policy   Policy
	group    singleflight.Group
}

func NewService(cache types.CacheManager, provider types.QuoteProvider, logger types.Logger, metrics types.MetricsManager, policy Policy) *Service {
	return &Service{
		cache:    cache,
		provider: provider,
		logger:   logger,
		metrics:  metrics,
		policy:   policy,
	}
}

// Movers returns the top gainers and losers. refresh drops the cached
// document before looking it up.
func (s *Service) Movers(ctx context.Context, refresh bool) (*types.Movers, error) {
	if refresh {
		s.cache.Delete(ctx, moversKey)
	}

	usable := func(m *types.Movers) bool {
		return m != nil && m.TopGainers != nil && m.TopLosers != nil
	}

	return cachedFetch(ctx, s, "movers", moversKey, s.policy.Movers, usable, func(ctx context.Context) (*types.Movers, error) {
		movers, err := s.provider.TopGainersLosers(ctx)
		if err != nil {
			return nil, err
		}

		if movers == nil || movers.TopGainers == nil {
			return nil, types.ErrNoMarketData
		}

		return movers, nil
	})
}

func (s *Service) Overview(ctx context.Context, symbol string) (types.Document, error) {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	usable := func(doc types.Document) bool {
		return hasSymbol(doc)
	}

	return cachedFetch(ctx, s, "overview", overviewKey(symbol), s.policy.Overview, usable, func(ctx context.Context) (types.Document, error) {
		doc, err := s.provider.CompanyOverview(ctx, symbol)
		if err != nil {
			return nil, err
		}

		if !hasSymbol(doc) {
			return nil, types.Errorf(types.ErrSymbolNotFound, "symbol: %s", symbol)
		}

		return doc, nil
	})
}

func (s *Service) Price(ctx context.Context, symbol string) (*types.PriceData, error) {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	usable := func(p *types.PriceData) bool {
		return p != nil
	}

	return cachedFetch(ctx, s, "price", priceKey(symbol), s.policy.Quote, usable, func(ctx context.Context) (*types.PriceData, error) {
		quote, err := s.provider.GlobalQuote(ctx, symbol)
		if err != nil {
			return nil, err
		}

		raw, ok := quote["05. price"]
		if !ok || raw == "" {
			return nil, types.Errorf(types.ErrNoPriceData, "symbol: %s", symbol)
		}

		return &types.PriceData{
			Price:         parseNumber(raw),
			Change:        parseNumber(quote["09. change"]),
			ChangePercent: parseNumber(strings.TrimSuffix(quote["10. change percent"], "%")),
		}, nil
	})
}

// Chart returns closing prices for the period. The cache key keeps the
// requested period even when an unknown one falls back to the hourly series.
func (s *Service) Chart(ctx context.Context, symbol string, period types.Period) (*types.ChartData, error) {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	spec, resolved := specFor(period)

	usable := func(c *types.ChartData) bool {
		return c != nil && len(c.Labels) > 0
	}

	return cachedFetch(ctx, s, "chart", chartKey(symbol, period), s.policy.Series, usable, func(ctx context.Context) (*types.ChartData, error) {
		doc, err := s.series(ctx, symbol, resolved)
		if err != nil {
			return nil, err
		}

		chart, ok := buildChart(doc, spec)
		if !ok {
			return nil, types.Errorf(types.ErrNoSeriesData, "symbol: %s, period: %s", symbol, period)
		}

		return chart, nil
	})
}

// Search is never cached. Blank keywords match nothing.
func (s *Service) Search(ctx context.Context, keywords string) ([]types.SymbolMatch, error) {
	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		return []types.SymbolMatch{}, nil
	}

	start := time.Now()
	matches, err := s.provider.SearchSymbols(ctx, keywords)
	if err != nil {
		s.record("search", sourceError, start)
		return nil, err
	}

	s.record("search", sourceUpstream, start)
	return matches, nil
}

func (s *Service) series(ctx context.Context, symbol string, period types.Period) (types.Document, error) {
	switch period {
	case types.Period1D:
		return s.provider.DailySeries(ctx, symbol)
	case types.Period1W:
		return s.provider.WeeklySeries(ctx, symbol)
	case types.Period1M:
		return s.provider.MonthlySeries(ctx, symbol)
	default:
		return s.provider.IntradaySeries(ctx, symbol, "60min")
	}
}

func (s *Service) record(operation, source string, start time.Time) {
	if s.metrics == nil {
		return
	}

	labels := map[string]string{
		"operation": operation,
		"source":    source,
	}

	s.metrics.Counter("market_requests_total", labels).Inc()
	s.metrics.Histogram("market_request_duration_seconds",
		[]float64{0.001, 0.01, 0.1, 0.5, 1.0, 5.0},
		map[string]string{"operation": operation},
	).ObserveDuration(start)
}

// cachedFetch serves key from the cache when usable accepts the stored value.
// Otherwise concurrent callers share a single fetch, whose result is cached
// for ttl.
func cachedFetch[T any](ctx context.Context, s *Service, operation, key string, ttl time.Duration, usable func(T) bool, fetch func(context.Context) (T, error)) (T, error) {
	start := time.Now()

	if value, ok := cache.GetAs[T](ctx, s.cache, key); ok && usable(value) {
		s.record(operation, sourceCache, start)
		return value, nil
	}

	result, err, shared := s.group.Do(key, func() (interface{}, error) {
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		s.cache.Put(ctx, key, value, ttl)
		return value, nil
	})
	if err != nil {
		var zero T
		s.record(operation, sourceError, start)
		s.logger.Debug("Market fetch failed", zap.String("key", key), zap.Error(err))
		return zero, err
	}

	if shared {
		s.logger.Debug("Market fetch shared", zap.String("key", key))
	}

	s.record(operation, sourceUpstream, start)
	return result.(T), nil
}

func normalizeSymbol(symbol string) (string, error) {
	symbol = utils.NormalizeSymbol(symbol)
	if symbol == "" {
		return "", types.ErrSymbolEmpty
	}
	return symbol, nil
}

func hasSymbol(doc types.Document) bool {
	if doc == nil {
		return false
	}

	symbol, ok := doc["Symbol"].(string)
	return ok && symbol != ""
}
