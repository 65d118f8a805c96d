package health

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/saiset-co/sai-stockwatch/lifecycle"
	"github.com/saiset-co/sai-stockwatch/types"
)

const defaultCheckTimeout = 5 * time.Second

type namedChecker struct {
	name    string
	checker types.HealthChecker
}

// Manager runs the registered checkers in parallel under a shared timeout.
type Manager struct {
	service   types.ServiceInfo
	logger    types.Logger
	timeout   time.Duration
	mu        sync.RWMutex
	checkers  map[string]types.HealthChecker
	startedAt time.Time
	life      lifecycle.Machine
}

func NewManager(_ context.Context, config types.ConfigManager, logger types.Logger) (*Manager, error) {
	serviceConfig := config.GetConfig()

	timeout := defaultCheckTimeout
	if serviceConfig.Health != nil && serviceConfig.Health.Timeout > 0 {
		timeout = serviceConfig.Health.Timeout
	}

	return &Manager{
		service: types.ServiceInfo{
			Name:    serviceConfig.Name,
			Version: serviceConfig.Version,
			Build:   loadBuildInfo().String(),
		},
		logger:   logger,
		timeout:  timeout,
		checkers: make(map[string]types.HealthChecker),
	}, nil
}

// RegisterChecker adds checker under name, replacing any checker already there.
func (m *Manager) RegisterChecker(name string, checker types.HealthChecker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.checkers[name] = checker
}

func (m *Manager) Check(ctx context.Context) types.HealthReport {
	checkers := m.sortedCheckers()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	checks := make([]types.HealthCheck, len(checkers))

	var g errgroup.Group
	for i, named := range checkers {
		i, named := i, named
		g.Go(func() error {
			checks[i] = runCheck(ctx, named)
			return nil
		})
	}
	_ = g.Wait()

	report := m.report(checks)
	if report.Status != types.StatusHealthy {
		m.logger.Warn("Health check degraded",
			zap.String("status", string(report.Status)),
			zap.Int("unhealthy", report.Summary.Unhealthy),
			zap.Int("unknown", report.Summary.Unknown))
	}

	return report
}

func (m *Manager) Start() error {
	err := m.life.Run(types.ErrServerAlreadyRunning, func() error {
		m.mu.Lock()
		m.startedAt = time.Now()
		m.mu.Unlock()
		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Info("Health manager started", zap.String("build", m.service.Build))
	return nil
}

func (m *Manager) Stop() error {
	if err := m.life.Halt(types.ErrServerNotRunning, nil); err != nil {
		return err
	}

	m.logger.Info("Health manager stopped")
	return nil
}

func (m *Manager) IsRunning() bool {
	return m.life.Running()
}

func (m *Manager) sortedCheckers() []namedChecker {
	m.mu.RLock()
	defer m.mu.RUnlock()

	checkers := make([]namedChecker, 0, len(m.checkers))
	for name, checker := range m.checkers {
		checkers = append(checkers, namedChecker{name: name, checker: checker})
	}

	sort.Slice(checkers, func(i, j int) bool { return checkers[i].name < checkers[j].name })
	return checkers
}

// runCheck turns a panic or an expired deadline into an unhealthy result.
func runCheck(ctx context.Context, named namedChecker) types.HealthCheck {
	start := time.Now()
	done := make(chan types.HealthCheck, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- types.HealthCheck{
					Status:  types.StatusUnhealthy,
					Message: fmt.Sprintf("Health check panicked: %v", r),
				}
			}
		}()

		done <- named.checker(ctx)
	}()

	var check types.HealthCheck
	select {
	case check = <-done:
	case <-ctx.Done():
		check = types.HealthCheck{Status: types.StatusUnhealthy, Message: "Health check timeout"}
	}

	check.Name = named.name
	check.Took = time.Since(start)
	return check
}

func (m *Manager) report(checks []types.HealthCheck) types.HealthReport {
	report := types.HealthReport{
		Status:    types.StatusHealthy,
		CheckedAt: time.Now(),
		Service:   m.service,
		Checks:    checks,
		Summary:   types.HealthSummary{Total: len(checks)},
	}

	m.mu.RLock()
	if !m.startedAt.IsZero() {
		report.Uptime = time.Since(m.startedAt)
	}
	m.mu.RUnlock()

	for _, check := range checks {
		switch check.Status {
		case types.StatusHealthy:
			report.Summary.Healthy++
		case types.StatusUnhealthy:
			report.Summary.Unhealthy++
		default:
			report.Summary.Unknown++
		}
	}

	switch {
	case report.Summary.Unhealthy > 0:
		report.Status = types.StatusUnhealthy
	case report.Summary.Unknown > 0:
		report.Status = types.StatusUnknown
	}

	return report
}
