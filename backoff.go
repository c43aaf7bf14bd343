package wsnotify

import (
	"math"
	"time"
)

const (
	DefaultBaseDelay       = time.Second
	DefaultMaxAttempts     = 5
	DefaultMaxDisplayDelay = 3 * time.Second
)

type BackoffCalculator func(attempt int) time.Duration

// ReconnectPolicy describes how the manager retries after a close. The attempt counter itself is
// owned by the state machine.
type ReconnectPolicy struct {
	// BaseDelay is the wait before the first reconnect. Every further attempt doubles it.
	BaseDelay time.Duration
	// MaxAttempts bounds the consecutive reconnects without a successful open. Zero disables reconnection.
	MaxAttempts int
	// MaxDisplayDelay caps the delay reported to the sink. It never alters the scheduled delay.
	MaxDisplayDelay time.Duration
}

func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		BaseDelay:       DefaultBaseDelay,
		MaxAttempts:     DefaultMaxAttempts,
		MaxDisplayDelay: DefaultMaxDisplayDelay,
	}
}

// Delay returns BaseDelay * 2^attempt, saturating at the largest representable duration.
func (p ReconnectPolicy) Delay(attempt int) time.Duration {
	return ExponentialBackoff(p.BaseDelay)(attempt)
}

// DisplayDelay is the delay as it should be reported to a human.
func (p ReconnectPolicy) DisplayDelay(attempt int) time.Duration {
	d := p.Delay(attempt)
	if p.MaxDisplayDelay > 0 && d > p.MaxDisplayDelay {
		return p.MaxDisplayDelay
	}
	return d
}

// ExponentialBackoff returns a calculator doubling base on every attempt, starting at attempt 0.
func ExponentialBackoff(base time.Duration) BackoffCalculator {
	return func(attempt int) time.Duration {
		if attempt < 0 {
			attempt = 0
		}
		factor := math.Pow(2.0, float64(attempt))
		d := float64(base) * factor
		if d >= math.MaxInt64 {
			return time.Duration(math.MaxInt64)
		}
		return time.Duration(d)
	}
}
