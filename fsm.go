package wsnotify

import (
	"time"
)

// ConnectionStatus is the externally observable state of the feed connection.
type ConnectionStatus int

const (
	StatusIdle ConnectionStatus = iota
	StatusConnecting
	StatusOpen
	StatusClosed
	StatusError
)

func (s ConnectionStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

type eventKind int

const (
	evStart eventKind = iota
	evReconnect
	evOpen
	evMessage
	evError
	evClose
)

func (k eventKind) String() string {
	switch k {
	case evStart:
		return "start"
	case evReconnect:
		return "reconnect"
	case evOpen:
		return "open"
	case evMessage:
		return "message"
	case evError:
		return "error"
	case evClose:
		return "close"
	default:
		return "unknown"
	}
}

type effectKind int

const (
	effPublish effectKind = iota
	effDial
	effSchedule
	effCancelTimer
	effReport
)

type effect struct {
	kind   effectKind
	status ConnectionStatus
	delay  time.Duration
	report StatusReport
}

func publish(s ConnectionStatus) effect { return effect{kind: effPublish, status: s} }

func report(r StatusReport) effect { return effect{kind: effReport, report: r} }

// machine is the reconnection state machine. step is pure: it never touches sockets, timers or
// subscribers, it only describes what the manager must do.
type machine struct {
	status ConnectionStatus
	// attempt counts reconnects scheduled since the last successful open.
	attempt int
	// connected is set while a socket is held, from dial until its close.
	connected bool
	// pending is set while a reconnect timer is armed.
	pending bool
	// exhausted is set once the retry budget is spent; only an explicit start clears it.
	exhausted bool
}

func (m machine) step(ev eventKind, err error, p ReconnectPolicy) (machine, []effect) {
	switch ev {
	case evStart:
		if m.connected {
			return m, nil
		}
		var effects []effect
		if m.pending {
			m.pending = false
			effects = append(effects, effect{kind: effCancelTimer})
		}
		if m.exhausted {
			m.exhausted = false
			m.attempt = 0
		}
		m.status = StatusConnecting
		m.connected = true
		return m, append(effects, publish(m.status), effect{kind: effDial})

	case evReconnect:
		if !m.pending {
			return m, nil
		}
		m.pending = false
		if m.connected {
			return m, nil
		}
		m.status = StatusConnecting
		m.connected = true
		return m, []effect{publish(m.status), {kind: effDial}}

	case evOpen:
		m.attempt = 0
		m.exhausted = false
		m.status = StatusOpen
		return m, []effect{publish(m.status), report(StatusReport{Kind: ReportConnected})}

	case evError:
		m.status = StatusError
		return m, []effect{
			publish(m.status),
			report(StatusReport{Kind: ReportConnectionFailed, Err: err}),
		}

	case evClose:
		m.connected = false
		m.status = StatusClosed
		effects := []effect{publish(m.status)}

		if m.attempt < p.MaxAttempts {
			delay := p.Delay(m.attempt)
			shown := p.DisplayDelay(m.attempt)
			m.attempt++
			m.pending = true
			return m, append(effects,
				effect{kind: effSchedule, delay: delay},
				report(StatusReport{
					Kind:         ReportReconnecting,
					Attempt:      m.attempt,
					Delay:        delay,
					DisplayDelay: shown,
					Err:          err,
				}),
			)
		}

		m.status = StatusError
		m.exhausted = true
		return m, append(effects,
			publish(m.status),
			report(StatusReport{Kind: ReportRetriesExhausted, Attempt: m.attempt, Err: ErrRetriesExhausted}),
		)
	}

	return m, nil
}
