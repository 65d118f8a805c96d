package provider

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-stockwatch/types"
)

const (
	breakerClosed   = "closed"
	breakerOpen     = "open"
	breakerHalfOpen = "half-open"
	breakerDisabled = "disabled"
)

// Breaker stops calling the upstream after a run of consecutive failures and
// lets trial requests through once the cooldown has passed.
type Breaker struct {
	logger    types.Logger
	upstream  string
	threshold int
	cooldown  time.Duration
	trials    int
	now       func() time.Time

	mu       sync.Mutex
	state    string
	streak   int
	openedAt time.Time
}

func NewBreaker(config *types.CircuitBreakerConfig, logger types.Logger, upstream string) *Breaker {
	b := &Breaker{logger: logger, upstream: upstream, now: time.Now, state: breakerDisabled}
	if config == nil || !config.Enabled {
		return b
	}

	b.state = breakerClosed
	b.threshold = positive(config.FailureThreshold, 5)
	b.cooldown = config.RecoveryTimeout
	if b.cooldown <= 0 {
		b.cooldown = 30 * time.Second
	}
	b.trials = positive(config.HalfOpenRequests, 1)

	return b
}

func positive(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

// Allow reports whether a request may go out. An open breaker whose cooldown
// has passed moves to half-open and lets the caller through.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != breakerOpen {
		return true
	}

	if b.now().Sub(b.openedAt) <= b.cooldown {
		return false
	}

	b.move(breakerHalfOpen)
	return true
}

// Success ends a failure streak, or counts towards closing a half-open breaker.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed:
		b.streak = 0
	case breakerHalfOpen:
		if b.streak++; b.streak >= b.trials {
			b.move(breakerClosed)
		}
	}
}

// Failure extends the streak while closed. Any failure while half-open
// reopens the breaker.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed:
		if b.streak++; b.streak >= b.threshold {
			b.move(breakerOpen)
		}
	case breakerHalfOpen:
		b.move(breakerOpen)
	}
}

func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

// move must be called with mu held.
func (b *Breaker) move(to string) {
	from := b.state
	b.state = to
	b.streak = 0

	if to == breakerOpen {
		b.openedAt = b.now()
		b.logger.Warn("Circuit breaker opened",
			zap.String("upstream", b.upstream),
			zap.String("from", from),
			zap.Int("threshold", b.threshold))
		return
	}

	b.logger.Info("Circuit breaker state changed",
		zap.String("upstream", b.upstream),
		zap.String("from", from),
		zap.String("to", to))
}

// outcome classifies a finished attempt. trips reports whether it counts
// against the breaker, retry whether another attempt may help.
func outcome(status int, err error) (trips, retry bool) {
	if err != nil {
		return true, true
	}

	switch {
	case status == 408, status == 429:
		return true, true
	case status >= 500:
		return status <= 504 && status != 501, true
	default:
		return false, false
	}
}
