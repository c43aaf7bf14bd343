package wsnotify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func effectKinds(effects []effect) []effectKind {
	out := make([]effectKind, 0, len(effects))
	for _, e := range effects {
		out = append(out, e.kind)
	}
	return out
}

func published(effects []effect) []ConnectionStatus {
	var out []ConnectionStatus
	for _, e := range effects {
		if e.kind == effPublish {
			out = append(out, e.status)
		}
	}
	return out
}

func scheduled(effects []effect) (time.Duration, bool) {
	for _, e := range effects {
		if e.kind == effSchedule {
			return e.delay, true
		}
	}
	return 0, false
}

func TestMachine_StartFromIdle(t *testing.T) {
	m, effects := machine{}.step(evStart, nil, DefaultReconnectPolicy())

	assert.Equal(t, StatusConnecting, m.status)
	assert.True(t, m.connected)
	assert.Equal(t, []effectKind{effPublish, effDial}, effectKinds(effects))
}

func TestMachine_StartIsNoopWhileConnected(t *testing.T) {
	for _, status := range []ConnectionStatus{StatusConnecting, StatusOpen, StatusError} {
		t.Run(status.String(), func(t *testing.T) {
			before := machine{status: status, connected: true}
			after, effects := before.step(evStart, nil, DefaultReconnectPolicy())

			assert.Equal(t, before, after)
			assert.Empty(t, effects)
		})
	}
}

func TestMachine_StartWhileReconnectPendingCancelsTimer(t *testing.T) {
	before := machine{status: StatusClosed, attempt: 2, pending: true}
	after, effects := before.step(evStart, nil, DefaultReconnectPolicy())

	assert.False(t, after.pending)
	assert.Equal(t, 2, after.attempt)
	assert.Equal(t, []effectKind{effCancelTimer, effPublish, effDial}, effectKinds(effects))
}

func TestMachine_BackoffSequence(t *testing.T) {
	p := ReconnectPolicy{BaseDelay: time.Second, MaxAttempts: 5}
	m, _ := machine{}.step(evStart, nil, p)

	var delays []time.Duration
	for {
		var effects []effect
		m, _ = m.step(evError, ErrCannotConnect, p)
		m, effects = m.step(evClose, ErrCannotConnect, p)

		delay, ok := scheduled(effects)
		if !ok {
			assert.Equal(t, []ConnectionStatus{StatusClosed, StatusError}, published(effects))
			break
		}
		delays = append(delays, delay)

		m, effects = m.step(evReconnect, nil, p)
		require.Equal(t, []effectKind{effPublish, effDial}, effectKinds(effects))
	}

	assert.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
	}, delays)
	assert.Equal(t, StatusError, m.status)
	assert.True(t, m.exhausted)

	// Nothing revives the machine but an explicit start.
	after, effects := m.step(evReconnect, nil, p)
	assert.Equal(t, m, after)
	assert.Empty(t, effects)
}

func TestMachine_OpenResetsAttempts(t *testing.T) {
	p := ReconnectPolicy{BaseDelay: time.Second, MaxAttempts: 5}
	m := machine{status: StatusConnecting, connected: true, attempt: 3}

	m, effects := m.step(evOpen, nil, p)
	assert.Equal(t, 0, m.attempt)
	assert.Equal(t, []ConnectionStatus{StatusOpen}, published(effects))

	m, effects = m.step(evClose, ErrConnectionClosed, p)
	delay, ok := scheduled(effects)
	require.True(t, ok)
	assert.Equal(t, time.Second, delay)
	assert.Equal(t, 1, m.attempt)
}

func TestMachine_SchedulingDoesNotResetAttempts(t *testing.T) {
	p := ReconnectPolicy{BaseDelay: time.Second, MaxAttempts: 5}
	m := machine{status: StatusClosed, attempt: 2, pending: true}

	m, _ = m.step(evReconnect, nil, p)
	assert.Equal(t, 2, m.attempt)
}

func TestMachine_ErrorDoesNotSchedule(t *testing.T) {
	m := machine{status: StatusOpen, connected: true}
	m, effects := m.step(evError, ErrConnectionLost, DefaultReconnectPolicy())

	assert.Equal(t, StatusError, m.status)
	assert.True(t, m.connected, "the socket is still held until it closes")
	assert.Equal(t, []effectKind{effPublish, effReport}, effectKinds(effects))
	assert.Equal(t, ReportConnectionFailed, effects[1].report.Kind)
}

func TestMachine_CloseReportsDisplayDelay(t *testing.T) {
	p := ReconnectPolicy{BaseDelay: time.Second, MaxAttempts: 5, MaxDisplayDelay: 3 * time.Second}
	m := machine{status: StatusClosed, attempt: 3}
	m.connected = true

	_, effects := m.step(evClose, nil, p)

	last := effects[len(effects)-1]
	require.Equal(t, effReport, last.kind)
	assert.Equal(t, ReportReconnecting, last.report.Kind)
	assert.Equal(t, 4, last.report.Attempt)
	assert.Equal(t, 8*time.Second, last.report.Delay)
	assert.Equal(t, 3*time.Second, last.report.DisplayDelay)
}

func TestMachine_StartAfterExhaustedResetsAttempts(t *testing.T) {
	m := machine{status: StatusError, attempt: 5, exhausted: true}

	m, effects := m.step(evStart, nil, DefaultReconnectPolicy())

	assert.Equal(t, 0, m.attempt)
	assert.False(t, m.exhausted)
	assert.Equal(t, []ConnectionStatus{StatusConnecting}, published(effects))
}

func TestMachine_ZeroMaxAttemptsNeverSchedules(t *testing.T) {
	p := ReconnectPolicy{BaseDelay: time.Second}
	m := machine{status: StatusOpen, connected: true}

	m, effects := m.step(evClose, nil, p)

	_, ok := scheduled(effects)
	assert.False(t, ok)
	assert.Equal(t, StatusError, m.status)
}
