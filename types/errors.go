package types

import (
	"errors"
	"fmt"
)

var (
	ErrConfigNotFound       = errors.New("config not found")
	ErrConfigInvalidPath    = errors.New("config invalid path")
	ErrConfigParseFailed    = errors.New("config parse failed")
	ErrConfigIsNil          = errors.New("config is nil")
	ErrConfigValidateFailed = errors.New("config validate failed")
)

var (
	ErrServerNotRunning     = errors.New("server not running")
	ErrServerAlreadyRunning = errors.New("server already running")
)

var (
	ErrCacheKeyEmpty        = errors.New("cache key empty")
	ErrCacheEntryInvalid    = errors.New("cache entry invalid")
	ErrCacheOperationFailed = errors.New("cache operation failed")
	ErrCacheKeyReserved     = errors.New("cache key reserved")
)

var (
	ErrStorageTypeUnknown     = errors.New("storage type unknown")
	ErrStorageConnectFailed   = errors.New("storage connection failed")
	ErrStorageOperationFailed = errors.New("storage operation failed")
	ErrStorageNotRunning      = errors.New("storage not running")
)

var (
	ErrWatchlistNameEmpty = errors.New("please enter a watchlist name")
	ErrWatchlistExists    = errors.New("watchlist already exists")
	ErrWatchlistNotFound  = errors.New("watchlist not found")
	ErrSymbolEmpty        = errors.New("symbol empty")
)

var (
	ErrProviderRequestFailed   = errors.New("provider request failed")
	ErrProviderResponseInvalid = errors.New("provider response invalid")
	ErrProviderRateLimited     = errors.New("provider rate limited")
	ErrProviderRejected        = errors.New("provider rejected request")
	ErrProviderNotRunning      = errors.New("provider not running")
	ErrCircuitBreakerOpen      = errors.New("circuit breaker open")
)

var (
	ErrSymbolNotFound = errors.New("stock not found")
	ErrNoPriceData    = errors.New("no price data available")
	ErrNoMarketData   = errors.New("no data received from API")
	ErrNoSeriesData   = errors.New("no time series data found")
)

var (
	ErrCronJobNameIsEmpty    = errors.New("cron job name is empty")
	ErrCronExpressionInvalid = errors.New("cron expression invalid")
	ErrCronJobIsNil          = errors.New("cron job is nil")
	ErrCronJobExists         = errors.New("cron job exists")
	ErrCronIsRunning         = errors.New("cron is running")
)

var (
	ErrMetricsTypeUnknown = errors.New("metrics type unknown")
	ErrMetricsNotRunning  = errors.New("metrics not running")
)

var (
	ErrLogFileIsEmpty      = errors.New("log file is empty")
	ErrLogFileWrongFormat  = errors.New("log file wrong format")
	ErrLoggerTypeUnknown   = errors.New("logger type unknown")
	ErrLoggerConfigInvalid = errors.New("logger config invalid")
)

var (
	ErrServiceIsRunning    = errors.New("service is running")
	ErrServiceIsNotRunning = errors.New("service is not running")
)

func Errorf(baseErr error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", baseErr, fmt.Sprintf(format, args...))
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func NewErrorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

func IsError(err, target error) bool {
	return errors.Is(err, target)
}
