package provider

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/saiset-co/sai-stockwatch/logger"
	"github.com/saiset-co/sai-stockwatch/types"
)

func TestBreakerLifecycle(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	b := NewBreaker(&types.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 3,
		RecoveryTimeout:  time.Minute,
		HalfOpenRequests: 2,
	}, logger.NewNop(), "test")
	b.now = func() time.Time { return now }

	assert.Equal(t, "closed", b.State())

	b.Failure()
	b.Failure()
	b.Success()
	b.Failure()
	b.Failure()
	assert.Equal(t, "closed", b.State(), "success resets the failure streak")

	b.Failure()
	assert.Equal(t, "open", b.State())
	assert.False(t, b.Allow())

	now = now.Add(time.Minute + time.Second)
	assert.True(t, b.Allow())
	assert.Equal(t, "half-open", b.State())

	b.Failure()
	assert.Equal(t, "open", b.State(), "a failed trial reopens the breaker")
	assert.False(t, b.Allow(), "cooldown restarts when the breaker reopens")

	now = now.Add(2 * time.Minute)
	assert.True(t, b.Allow())
	b.Success()
	assert.Equal(t, "half-open", b.State())
	b.Success()
	assert.Equal(t, "closed", b.State())
}

func TestBreakerDisabled(t *testing.T) {
	b := NewBreaker(nil, logger.NewNop(), "test")

	for i := 0; i < 100; i++ {
		b.Failure()
	}

	assert.True(t, b.Allow())
	assert.Equal(t, "disabled", b.State())
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		status int
		err    error
		trips  bool
		retry  bool
	}{
		{status: 503, trips: true, retry: true},
		{status: 502, trips: true, retry: true},
		{status: 501, trips: false, retry: true},
		{status: 429, trips: true, retry: true},
		{status: 408, trips: true, retry: true},
		{status: 404},
		{status: 401},
		{status: 200},
		{err: errors.New("dial tcp: connection refused"), trips: true, retry: true},
	}

	for _, tt := range tests {
		trips, retry := outcome(tt.status, tt.err)
		assert.Equal(t, tt.trips, trips, "status %d", tt.status)
		assert.Equal(t, tt.retry, retry, "status %d", tt.status)
	}
}
