package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/saiset-co/sai-stockwatch/types"
)

const DefaultProviderURL = "https://www.alphavantage.co/query"

type Loader struct {
	validator *validator.Validate
}

func NewLoader() (*Loader, error) {
	return &Loader{
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

// LoadFromFile reads the YAML file at configPath over the defaults. A .env
// file next to the config is loaded first and ${VAR} references are
// expanded from the environment before parsing.
func (l *Loader) LoadFromFile(ctx context.Context, configPath string) (*types.ServiceConfig, error) {
	if configPath == "" {
		return nil, types.ErrConfigNotFound
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, types.Errorf(types.ErrConfigInvalidPath, "file not found: %s", configPath)
	}

	if err := loadDotEnv(filepath.Join(filepath.Dir(configPath), ".env")); err != nil {
		return nil, types.WrapError(err, "failed to load .env file")
	}

	data, err := readFile(ctx, configPath)
	if err != nil {
		return nil, types.WrapError(err, "failed to read config file")
	}

	return l.Parse([]byte(os.ExpandEnv(string(data))))
}

// Parse decodes data over the defaults and validates the result.
func (l *Loader) Parse(data []byte) (*types.ServiceConfig, error) {
	config := l.Defaults()

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, types.Errorf(types.ErrConfigParseFailed, "%v", err)
	}

	if err := l.validator.Struct(config); err != nil {
		return nil, types.Errorf(types.ErrConfigValidateFailed, "%v", err)
	}

	return config, nil
}

// readFile gives up when ctx ends first, leaving the read to finish on its own.
func readFile(ctx context.Context, path string) ([]byte, error) {
	type read struct {
		data []byte
		err  error
	}

	done := make(chan read, 1)
	go func() {
		data, err := os.ReadFile(path)
		done <- read{data, err}
	}()

	select {
	case r := <-done:
		return r.data, r.err
	case <-ctx.Done():
		return nil, types.WrapError(ctx.Err(), "file read timeout")
	}
}

func (l *Loader) Defaults() *types.ServiceConfig {
	return &types.ServiceConfig{
		Name:    "stockwatch",
		Version: "dev",
		Logger: &types.LoggerConfig{
			Level: "info",
		},
		Storage: &types.StorageConfig{
			Type: "memory",
		},
		Cache: &types.CacheConfig{
			DefaultTTL: time.Hour,
			TTL: &types.CacheTTLConfig{
				Movers:   time.Hour,
				Overview: time.Hour,
				Quote:    5 * time.Minute,
				Series:   5 * time.Minute,
			},
			Sweep: &types.CacheSweepConfig{
				Enabled:  false,
				Schedule: "0 */15 * * * *",
			},
		},
		Provider: &types.ProviderConfig{
			BaseURL: DefaultProviderURL,
			Timeout: 15 * time.Second,
			Retries: 2,
			CircuitBreaker: &types.CircuitBreakerConfig{
				Enabled:          true,
				FailureThreshold: 5,
				RecoveryTimeout:  30 * time.Second,
				HalfOpenRequests: 1,
			},
		},
		Metrics: &types.MetricsConfig{
			Enabled: false,
			Type:    "prometheus",
		},
		Cron: &types.CronConfig{
			Timezone: "UTC",
		},
		Health: &types.HealthConfig{
			Enabled: true,
			Timeout: 5 * time.Second,
		},
	}
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}
