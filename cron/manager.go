package cron

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-stockwatch/lifecycle"
	"github.com/saiset-co/sai-stockwatch/types"
)

const drainTimeout = 10 * time.Second

// Manager schedules named jobs on a seconds-aware cron. Jobs are recovered
// and skipped while a previous run of the same job is still in flight.
type Manager struct {
	logger   types.Logger
	metrics  types.MetricsManager
	timezone *time.Location
	sched    *cron.Cron
	done     context.Context
	finish   context.CancelFunc
	mu       sync.RWMutex
	jobs     map[string]*job
	life     lifecycle.Machine
}

func NewManager(ctx context.Context, config types.ConfigManager, logger types.Logger, metrics types.MetricsManager) (*Manager, error) {
	timezone := resolveTimezone(config.GetConfig().Cron, logger)
	adapter := cronLogger{logger: logger}
	sched := cron.New(
		cron.WithLocation(timezone),
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
	)
	done, finish := context.WithCancel(ctx)

	return &Manager{
		logger:   logger,
		metrics:  metrics,
		timezone: timezone,
		sched:    sched,
		done:     done,
		finish:   finish,
		jobs:     make(map[string]*job),
	}, nil
}

func resolveTimezone(config *types.CronConfig, logger types.Logger) *time.Location {
	if config == nil || config.Timezone == "" {
		return time.UTC
	}

	location, err := time.LoadLocation(config.Timezone)
	if err != nil {
		logger.Warn("Unknown cron timezone, using UTC", zap.String("timezone", config.Timezone), zap.Error(err))
		return time.UTC
	}

	return location
}

// Add schedules fn under a unique name. Specs carry a leading seconds field.
func (m *Manager) Add(name, spec string, fn func()) error {
	switch {
	case name == "":
		return types.ErrCronJobNameIsEmpty
	case spec == "":
		return types.ErrCronExpressionInvalid
	case fn == nil:
		return types.ErrCronJobIsNil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[name]; exists {
		return types.Errorf(types.ErrCronJobExists, "job: %s", name)
	}

	j := &job{entry: types.JobEntry{Name: name, Spec: spec, Job: fn, AddedAt: time.Now()}}

	id, err := m.sched.AddFunc(spec, func() { m.execute(j) })
	if err != nil {
		return types.Errorf(types.ErrCronExpressionInvalid, "%s: %v", spec, err)
	}

	j.entry.ID = id
	j.entry.NextRun = m.sched.Entry(id).Next
	m.jobs[name] = j

	m.logger.Info("Cron job added", zap.String("job_name", name), zap.String("spec", spec))
	return nil
}

func (m *Manager) Remove(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, exists := m.jobs[name]
	if !exists {
		return false
	}

	m.sched.Remove(j.entry.ID)
	delete(m.jobs, name)

	m.logger.Info("Cron job removed", zap.String("job_name", name))
	return true
}

// Jobs returns a name-sorted snapshot of the registered jobs.
func (m *Manager) Jobs() []types.JobEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]types.JobEntry, 0, len(m.jobs))
	for _, j := range m.jobs {
		entries = append(entries, j.entry)
	}

	sort.Slice(entries, func(i, k int) bool { return entries[i].Name < entries[k].Name })
	return entries
}

func (m *Manager) Start() error {
	err := m.life.Run(types.ErrCronIsRunning, func() error {
		m.sched.Start()
		return nil
	})
	if err != nil {
		return err
	}

	m.schedulerGauge(1)
	m.logger.Info("Cron manager started", zap.String("timezone", m.timezone.String()))
	return nil
}

// Stop waits up to drainTimeout for running jobs before giving up on them.
func (m *Manager) Stop() error {
	return m.life.Halt(types.ErrServerNotRunning, func() error {
		select {
		case <-m.sched.Stop().Done():
			m.logger.Info("Cron scheduler stopped gracefully")
		case <-time.After(drainTimeout):
			m.logger.Warn("Cron scheduler stop timeout, running jobs were abandoned")
		}

		m.finish()
		m.schedulerGauge(0)
		return nil
	})
}

func (m *Manager) IsRunning() bool {
	return m.life.Running()
}

func (m *Manager) schedulerGauge(value float64) {
	if m.metrics != nil {
		m.metrics.Gauge("cron_scheduler_running", nil).Set(value)
	}
}
