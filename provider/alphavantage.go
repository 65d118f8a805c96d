package provider

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-stockwatch/lifecycle"
	"github.com/saiset-co/sai-stockwatch/types"
	"github.com/saiset-co/sai-stockwatch/utils"
)

const upstreamName = "alphavantage"

// AlphaVantage implements QuoteProvider on top of the Alpha Vantage query API.
type AlphaVantage struct {
	logger types.Logger
	client *HTTPClient
	apiKey string
	life   lifecycle.Machine
}

func NewAlphaVantage(ctx context.Context, logger types.Logger, metrics types.MetricsManager, config *types.ProviderConfig) (*AlphaVantage, error) {
	if config == nil {
		return nil, types.Errorf(types.ErrConfigNotFound, "provider section")
	}

	if config.APIKey == "" {
		logger.Warn("Alpha Vantage API key is empty, upstream calls will be rejected")
	}

	return &AlphaVantage{
		logger: logger,
		client: NewHTTPClient(ctx, logger, metrics, upstreamName, config),
		apiKey: config.APIKey,
	}, nil
}

func (a *AlphaVantage) Start() error {
	if err := a.life.Run(types.ErrServerAlreadyRunning, nil); err != nil {
		return err
	}

	a.logger.Info("Alpha Vantage provider started", zap.String("base_url", a.client.baseURL))
	return nil
}

// Stop closes the HTTP client. A stopped provider cannot be restarted.
func (a *AlphaVantage) Stop() error {
	return a.life.Halt(types.ErrServerNotRunning, func() error {
		a.client.Close()
		a.logger.Info("Alpha Vantage provider stopped")
		return nil
	})
}

func (a *AlphaVantage) IsRunning() bool {
	return a.life.Running()
}

func (a *AlphaVantage) BreakerState() string {
	return a.client.BreakerState()
}

func (a *AlphaVantage) TopGainersLosers(ctx context.Context) (*types.Movers, error) {
	body, err := a.query(ctx, map[string]string{"function": "TOP_GAINERS_LOSERS"})
	if err != nil {
		return nil, err
	}

	var movers types.Movers
	if err := utils.Unmarshal(body, &movers); err != nil {
		return nil, types.Errorf(types.ErrProviderResponseInvalid, "TOP_GAINERS_LOSERS: %v", err)
	}

	return &movers, nil
}

func (a *AlphaVantage) CompanyOverview(ctx context.Context, symbol string) (types.Document, error) {
	return a.document(ctx, map[string]string{"function": "OVERVIEW", "symbol": symbol})
}

// GlobalQuote fails with ErrNoPriceData when the upstream knows no quote for symbol.
func (a *AlphaVantage) GlobalQuote(ctx context.Context, symbol string) (types.Quote, error) {
	body, err := a.query(ctx, map[string]string{"function": "GLOBAL_QUOTE", "symbol": symbol})
	if err != nil {
		return nil, err
	}

	var response struct {
		GlobalQuote types.Quote `json:"Global Quote"`
	}
	if err := utils.Unmarshal(body, &response); err != nil {
		return nil, types.Errorf(types.ErrProviderResponseInvalid, "GLOBAL_QUOTE %s: %v", symbol, err)
	}

	if len(response.GlobalQuote) == 0 {
		return nil, types.Errorf(types.ErrNoPriceData, "symbol: %s", symbol)
	}

	return response.GlobalQuote, nil
}

func (a *AlphaVantage) IntradaySeries(ctx context.Context, symbol, interval string) (types.Document, error) {
	if interval == "" {
		interval = "60min"
	}

	return a.document(ctx, map[string]string{
		"function": "TIME_SERIES_INTRADAY",
		"symbol":   symbol,
		"interval": interval,
	})
}

func (a *AlphaVantage) DailySeries(ctx context.Context, symbol string) (types.Document, error) {
	return a.document(ctx, map[string]string{"function": "TIME_SERIES_DAILY", "symbol": symbol})
}

func (a *AlphaVantage) WeeklySeries(ctx context.Context, symbol string) (types.Document, error) {
	return a.document(ctx, map[string]string{"function": "TIME_SERIES_WEEKLY", "symbol": symbol})
}

func (a *AlphaVantage) MonthlySeries(ctx context.Context, symbol string) (types.Document, error) {
	return a.document(ctx, map[string]string{"function": "TIME_SERIES_MONTHLY", "symbol": symbol})
}

func (a *AlphaVantage) SearchSymbols(ctx context.Context, keywords string) ([]types.SymbolMatch, error) {
	body, err := a.query(ctx, map[string]string{"function": "SYMBOL_SEARCH", "keywords": keywords})
	if err != nil {
		return nil, err
	}

	var response struct {
		BestMatches []types.SymbolMatch `json:"bestMatches"`
	}
	if err := utils.Unmarshal(body, &response); err != nil {
		return nil, types.Errorf(types.ErrProviderResponseInvalid, "SYMBOL_SEARCH: %v", err)
	}

	if response.BestMatches == nil {
		return []types.SymbolMatch{}, nil
	}

	return response.BestMatches, nil
}

func (a *AlphaVantage) document(ctx context.Context, params map[string]string) (types.Document, error) {
	body, err := a.query(ctx, params)
	if err != nil {
		return nil, err
	}

	var doc types.Document
	if err := utils.Unmarshal(body, &doc); err != nil {
		return nil, types.Errorf(types.ErrProviderResponseInvalid, "%s: %v", params["function"], err)
	}

	if doc == nil {
		doc = types.Document{}
	}

	return doc, nil
}

// query performs the call and turns the upstream's in-band error fields into
// sentinel errors. Alpha Vantage answers throttling and bad requests with 200.
func (a *AlphaVantage) query(ctx context.Context, params map[string]string) ([]byte, error) {
	if !a.IsRunning() {
		return nil, types.ErrProviderNotRunning
	}

	params["apikey"] = a.apiKey

	body, err := a.client.Get(ctx, params)
	if err != nil {
		return nil, err
	}

	var notice struct {
		Note         string `json:"Note"`
		Information  string `json:"Information"`
		ErrorMessage string `json:"Error Message"`
	}

	if err := utils.Unmarshal(body, &notice); err != nil {
		return nil, types.Errorf(types.ErrProviderResponseInvalid, "%s: %v", params["function"], err)
	}

	switch {
	case notice.ErrorMessage != "":
		return nil, types.Errorf(types.ErrProviderRejected, "%s: %s", params["function"], strings.TrimSpace(notice.ErrorMessage))
	case notice.Note != "":
		return nil, types.Errorf(types.ErrProviderRateLimited, "%s", strings.TrimSpace(notice.Note))
	case notice.Information != "":
		return nil, types.Errorf(types.ErrProviderRateLimited, "%s", strings.TrimSpace(notice.Information))
	}

	return body, nil
}
