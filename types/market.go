package types

import (
	"context"
)

type Period string

const (
	Period1H Period = "1H"
	Period1D Period = "1D"
	Period1W Period = "1W"
	Period1M Period = "1M"
)

type MarketService interface {
	Movers(ctx context.Context, refresh bool) (*Movers, error)
	Overview(ctx context.Context, symbol string) (Document, error)
	Price(ctx context.Context, symbol string) (*PriceData, error)
	Chart(ctx context.Context, symbol string, period Period) (*ChartData, error)
	Search(ctx context.Context, keywords string) ([]SymbolMatch, error)
}

type PriceData struct {
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

type ChartData struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

type ChartDataset struct {
	Data []float64 `json:"data"`
}
