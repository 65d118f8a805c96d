package types

import (
	"time"
)

type ConfigManager interface {
	Load() error
	GetConfig() *ServiceConfig
}

type ServiceConfig struct {
	Name     string          `yaml:"name" json:"name" validate:"required"`
	Version  string          `yaml:"version" json:"version" validate:"required"`
	Logger   *LoggerConfig   `yaml:"logger" json:"logger"`
	Storage  *StorageConfig  `yaml:"storage" json:"storage" validate:"required"`
	Cache    *CacheConfig    `yaml:"cache" json:"cache" validate:"required"`
	Provider *ProviderConfig `yaml:"provider" json:"provider" validate:"required"`
	Metrics  *MetricsConfig  `yaml:"metrics" json:"metrics"`
	Cron     *CronConfig     `yaml:"cron" json:"cron"`
	Health   *HealthConfig   `yaml:"health" json:"health"`
}

type LoggerConfig struct {
	Type   string      `yaml:"type" json:"type"`
	Level  string      `yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn warning error fatal"`
	Config interface{} `yaml:"config" json:"config"`
}

type StorageConfig struct {
	Type   string      `yaml:"type" json:"type" validate:"required"`
	Path   string      `yaml:"path" json:"path" validate:"required_if=Type sqlite,required_if=Type clover"`
	Config interface{} `yaml:"config" json:"config"`
}

type CacheConfig struct {
	DefaultTTL time.Duration     `yaml:"default_ttl" json:"default_ttl" validate:"min=0"`
	TTL        *CacheTTLConfig   `yaml:"ttl" json:"ttl"`
	Sweep      *CacheSweepConfig `yaml:"sweep" json:"sweep"`
}

// CacheTTLConfig holds the per data class expiry policy.
type CacheTTLConfig struct {
	Movers   time.Duration `yaml:"movers" json:"movers" validate:"min=0"`
	Overview time.Duration `yaml:"overview" json:"overview" validate:"min=0"`
	Quote    time.Duration `yaml:"quote" json:"quote" validate:"min=0"`
	Series   time.Duration `yaml:"series" json:"series" validate:"min=0"`
}

type CacheSweepConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Schedule string `yaml:"schedule" json:"schedule" validate:"required_if=Enabled true"`
}

type ProviderConfig struct {
	BaseURL        string                `yaml:"base_url" json:"base_url" validate:"required,url"`
	APIKey         string                `yaml:"api_key" json:"api_key"`
	Timeout        time.Duration         `yaml:"timeout" json:"timeout" validate:"min=0"`
	Retries        int                   `yaml:"retries" json:"retries" validate:"min=0,max=10"`
	CircuitBreaker *CircuitBreakerConfig `yaml:"circuit_breaker" json:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled" json:"enabled"`
	FailureThreshold int           `yaml:"failure_threshold" json:"failure_threshold" validate:"min=0"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout" json:"recovery_timeout"`
	HalfOpenRequests int           `yaml:"half_open_requests" json:"half_open_requests" validate:"min=0"`
}

type MetricsConfig struct {
	Enabled   bool              `yaml:"enabled" json:"enabled"`
	Type      string            `yaml:"type" json:"type" validate:"required_if=Enabled true"`
	Namespace string            `yaml:"namespace" json:"namespace"`
	Labels    map[string]string `yaml:"labels" json:"labels"`
}

type CronConfig struct {
	Timezone string `yaml:"timezone" json:"timezone"`
}

type HealthConfig struct {
	Enabled bool          `yaml:"enabled" json:"enabled"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}
