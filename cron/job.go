package cron

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-stockwatch/types"
)

var durationBuckets = []float64{0.1, 1.0, 10.0, 60.0, 300.0}

type job struct {
	entry types.JobEntry
}

// execute runs one tick of j, converting a panic into a recorded failure.
func (m *Manager) execute(j *job) {
	if m.done.Err() != nil {
		return
	}

	name := j.entry.Name
	started := time.Now()
	m.logger.Debug("Cron job started", zap.String("job_name", name))

	err := invoke(j.entry.Job)
	took := time.Since(started)

	m.finished(j, started, took, err)

	result := "success"
	if err != nil {
		result = "error"
		m.logger.Error("Cron job failed", zap.String("job_name", name), zap.Duration("duration", took), zap.Error(err))
	} else {
		m.logger.Debug("Cron job completed", zap.String("job_name", name), zap.Duration("duration", took))
	}

	if m.metrics == nil {
		return
	}

	m.metrics.Counter("cron_job_executions_total", map[string]string{"job_name": name, "result": result}).Inc()
	m.metrics.Histogram("cron_job_duration_seconds", durationBuckets, map[string]string{"job_name": name}).Observe(took.Seconds())
}

func invoke(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = types.NewErrorf("job panic: %v", r)
		}
	}()

	fn()
	return nil
}

func (m *Manager) finished(j *job, started time.Time, took time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j.entry.LastRun = started
	j.entry.LastDuration = took
	j.entry.RunCount++
	j.entry.LastError = ""
	if err != nil {
		j.entry.LastError = err.Error()
	}

	if next := m.sched.Entry(j.entry.ID); next.ID != 0 {
		j.entry.NextRun = next.Next
	}
}

// cronLogger routes robfig/cron's logr-style calls into zap fields.
type cronLogger struct {
	logger types.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, fields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(fields(keysAndValues), zap.Error(err))...)
}

func fields(keysAndValues []interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out = append(out, zap.Any(fmt.Sprint(keysAndValues[i]), keysAndValues[i+1]))
	}
	return out
}
