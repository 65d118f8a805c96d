package types

import (
	"context"
	"time"
)

type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusUnknown   HealthStatus = "unknown"
)

const (
	CheckStorage    = "storage"
	CheckProvider   = "provider"
	CheckWatchlists = "watchlists"
)

// BreakerReporter is implemented by components guarded by a circuit breaker.
type BreakerReporter interface {
	BreakerState() string
}

type HealthManager interface {
	LifecycleManager
	RegisterChecker(name string, checker HealthChecker)
	Check(ctx context.Context) HealthReport
}

type HealthChecker func(ctx context.Context) HealthCheck

type HealthCheck struct {
	Name    string                 `json:"name"`
	Status  HealthStatus           `json:"status"`
	Message string                 `json:"message,omitempty"`
	Took    time.Duration          `json:"took"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthReport aggregates one round of checks. Checks are sorted by name.
type HealthReport struct {
	Status    HealthStatus  `json:"status"`
	CheckedAt time.Time     `json:"checked_at"`
	Uptime    time.Duration `json:"uptime"`
	Service   ServiceInfo   `json:"service"`
	Checks    []HealthCheck `json:"checks"`
	Summary   HealthSummary `json:"summary"`
}

func (r HealthReport) Check(name string) (HealthCheck, bool) {
	for _, check := range r.Checks {
		if check.Name == name {
			return check, true
		}
	}
	return HealthCheck{}, false
}

type ServiceInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Build   string `json:"build,omitempty"`
}

type HealthSummary struct {
	Total     int `json:"total"`
	Healthy   int `json:"healthy"`
	Unhealthy int `json:"unhealthy"`
	Unknown   int `json:"unknown"`
}
