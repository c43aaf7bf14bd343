package wsnotify

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReconnectPolicy_Delay(t *testing.T) {
	p := ReconnectPolicy{BaseDelay: time.Second, MaxAttempts: 5}

	var delays []time.Duration
	for attempt := 0; attempt < 5; attempt++ {
		delays = append(delays, p.Delay(attempt))
	}

	assert.Equal(t, []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}, delays)
}

func TestReconnectPolicy_DisplayDelayIsCapped(t *testing.T) {
	p := DefaultReconnectPolicy()

	assert.Equal(t, time.Second, p.DisplayDelay(0))
	assert.Equal(t, 2*time.Second, p.DisplayDelay(1))
	assert.Equal(t, 3*time.Second, p.DisplayDelay(2))
	assert.Equal(t, 4*time.Second, p.Delay(2), "display cap must not alter the real delay")
}

func TestReconnectPolicy_DisplayDelayUncapped(t *testing.T) {
	p := ReconnectPolicy{BaseDelay: time.Second}

	assert.Equal(t, 16*time.Second, p.DisplayDelay(4))
}

func TestExponentialBackoff_Saturates(t *testing.T) {
	calc := ExponentialBackoff(time.Second)

	assert.Equal(t, time.Duration(math.MaxInt64), calc(200))
	assert.Equal(t, time.Second, calc(-1))
}
