package types

import (
	"context"
)

// Document is an upstream JSON object whose shape the cache does not know.
type Document map[string]interface{}

// QuoteProvider is the remote market data source. Every call is slow,
// rate limited and may fail.
type QuoteProvider interface {
	TopGainersLosers(ctx context.Context) (*Movers, error)
	CompanyOverview(ctx context.Context, symbol string) (Document, error)
	GlobalQuote(ctx context.Context, symbol string) (Quote, error)
	IntradaySeries(ctx context.Context, symbol, interval string) (Document, error)
	DailySeries(ctx context.Context, symbol string) (Document, error)
	WeeklySeries(ctx context.Context, symbol string) (Document, error)
	MonthlySeries(ctx context.Context, symbol string) (Document, error)
	SearchSymbols(ctx context.Context, keywords string) ([]SymbolMatch, error)
}

type ProviderManager interface {
	LifecycleManager
	QuoteProvider
}

// Quote is the "Global Quote" object, keys as sent upstream ("05. price").
type Quote map[string]string

type Movers struct {
	Metadata           string  `json:"metadata,omitempty"`
	LastUpdated        string  `json:"last_updated,omitempty"`
	TopGainers         []Mover `json:"top_gainers"`
	TopLosers          []Mover `json:"top_losers"`
	MostActivelyTraded []Mover `json:"most_actively_traded,omitempty"`
}

type Mover struct {
	Ticker           string `json:"ticker"`
	Price            string `json:"price"`
	ChangeAmount     string `json:"change_amount"`
	ChangePercentage string `json:"change_percentage"`
	Volume           string `json:"volume"`
}

type SymbolMatch struct {
	Symbol      string `json:"1. symbol"`
	Name        string `json:"2. name"`
	Type        string `json:"3. type"`
	Region      string `json:"4. region"`
	MarketOpen  string `json:"5. marketOpen"`
	MarketClose string `json:"6. marketClose"`
	Timezone    string `json:"7. timezone"`
	Currency    string `json:"8. currency"`
	MatchScore  string `json:"9. matchScore"`
}
