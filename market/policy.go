package market

import (
	"fmt"
	"time"

	"github.com/saiset-co/sai-stockwatch/types"
)

const (
	TTLMovers   = time.Hour
	TTLOverview = time.Hour
	TTLQuote    = 5 * time.Minute
	TTLSeries   = 5 * time.Minute
)

const moversKey = "explore"

// Policy is the expiry chosen for each class of cached market data.
type Policy struct {
	Movers   time.Duration
	Overview time.Duration
	Quote    time.Duration
	Series   time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		Movers:   TTLMovers,
		Overview: TTLOverview,
		Quote:    TTLQuote,
		Series:   TTLSeries,
	}
}

// PolicyFromConfig overrides the defaults with every positive configured TTL.
func PolicyFromConfig(config *types.CacheTTLConfig) Policy {
	policy := DefaultPolicy()
	if config == nil {
		return policy
	}

	if config.Movers > 0 {
		policy.Movers = config.Movers
	}
	if config.Overview > 0 {
		policy.Overview = config.Overview
	}
	if config.Quote > 0 {
		policy.Quote = config.Quote
	}
	if config.Series > 0 {
		policy.Series = config.Series
	}

	return policy
}

func overviewKey(symbol string) string {
	return fmt.Sprintf("stock_%s", symbol)
}

func priceKey(symbol string) string {
	return fmt.Sprintf("price_%s", symbol)
}

func chartKey(symbol string, period types.Period) string {
	return fmt.Sprintf("chart_%s_%s", symbol, period)
}
