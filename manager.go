package wsnotify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	eventQueueSize = 64
	recvBufferSize = 32
)

type (
	timer interface {
		Stop() bool
	}

	afterFunc func(d time.Duration, f func()) timer

	NotificationHandler func(Notification)

	ReportHandler func(StatusReport)
)

func timeAfterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}

// event is anything the loop reacts to. seq identifies the socket (open, message, error, close)
// or the timer (reconnect) that produced it, so events from a superseded source are inert.
type event struct {
	kind eventKind
	seq  uint64
	conn Connection
	msg  Message
	err  error
}

// ConnectionManager owns one logical connection to the feed and drives the reconnection state
// machine. All of its state is confined to a single loop goroutine: socket pumps and timers only
// post events to it. Once Stop has been called no status is published, no notification is
// forwarded and no socket is dialed, whatever is still in flight.
type ConnectionManager struct {
	logger         Logger
	factory        ConnectionFactory
	policy         ReconnectPolicy
	pingInterval   time.Duration
	afterFunc      afterFunc
	status         *StatusPublisher
	onNotification NotificationHandler
	onReport       ReportHandler
	// onTeardown runs once, after the last callback and before Done is closed.
	onTeardown func()

	events chan event
	// startC coalesces Start requests; it never blocks, so Start is safe from the loop itself.
	startC     chan struct{}
	stopped    chan struct{}
	finished   chan struct{}
	alive      atomic.Bool
	launchOnce sync.Once
	stopOnce   sync.Once

	ctx    context.Context
	cancel context.CancelFunc

	// owned by the loop goroutine
	state    machine
	conn     Connection
	connSeq  uint64
	timer    timer
	timerSeq uint64
}

func NewConnectionManager(
	logger Logger,
	factory ConnectionFactory,
	policy ReconnectPolicy,
	pingInterval time.Duration,
	status *StatusPublisher,
	onNotification NotificationHandler,
	onReport ReportHandler,
) *ConnectionManager {
	ctx, cancel := context.WithCancel(context.Background())

	m := &ConnectionManager{
		logger:         logger.WithField("type", "connection_manager"),
		factory:        factory,
		policy:         policy,
		pingInterval:   pingInterval,
		afterFunc:      timeAfterFunc,
		status:         status,
		onNotification: onNotification,
		onReport:       onReport,
		events:         make(chan event, eventQueueSize),
		startC:         make(chan struct{}, 1),
		stopped:        make(chan struct{}),
		finished:       make(chan struct{}),
		ctx:            ctx,
		cancel:         cancel,
	}
	m.alive.Store(true)

	return m
}

// Start connects unless a connection is already being established or open, or the manager has
// been stopped. After the retry budget was exhausted, Start begins a fresh backoff sequence.
func (m *ConnectionManager) Start() {
	if !m.alive.Load() {
		return
	}

	m.launchOnce.Do(func() {
		go m.run()
	})

	select {
	case m.startC <- struct{}{}:
	default:
		// A start is already queued.
	}
}

// Stop tears the manager down. It is idempotent, never blocks and may be called from any
// callback, including status subscribers and sinks. Done is closed once teardown completes.
func (m *ConnectionManager) Stop() {
	m.stopOnce.Do(func() {
		m.alive.Store(false)
		close(m.stopped)

		// Never started: there is no loop to do the teardown.
		m.launchOnce.Do(func() {
			m.cancel()
			m.release()
			close(m.finished)
		})
	})
}

func (m *ConnectionManager) Done() <-chan struct{} {
	return m.finished
}

func (m *ConnectionManager) Status() ConnectionStatus {
	return m.status.Current()
}

// isAlive reports whether Stop has not been called yet. Callbacks fanning out to several
// collaborators check it between each of them.
func (m *ConnectionManager) isAlive() bool {
	return m.alive.Load()
}

func (m *ConnectionManager) post(ev event) bool {
	select {
	case <-m.stopped:
		return false
	default:
	}

	select {
	case m.events <- ev:
		return true
	case <-m.stopped:
		return false
	}
}

func (m *ConnectionManager) run() {
	defer close(m.finished)
	defer m.teardown()

	for {
		select {
		case <-m.stopped:
			return
		case <-m.startC:
			if !m.alive.Load() {
				return
			}
			m.handle(event{kind: evStart})
		case ev := <-m.events:
			if !m.alive.Load() {
				m.discard(ev)
				return
			}
			m.handle(ev)
		}
	}
}

func (m *ConnectionManager) handle(ev event) {
	switch ev.kind {
	case evStart:
		m.apply(ev)
	case evReconnect:
		if ev.seq != m.timerSeq {
			return
		}
		m.timer = nil
		m.apply(ev)
	case evOpen:
		if ev.seq != m.connSeq || m.conn == nil {
			m.discard(ev)
			return
		}
		m.apply(ev)
	case evMessage:
		if ev.seq != m.connSeq || m.conn == nil {
			return
		}
		m.handleMessage(ev.msg)
	case evError:
		if ev.seq != m.connSeq || m.conn == nil {
			return
		}
		m.logger.Errorf("connection error: %s", ev.err)
		m.apply(ev)
	case evClose:
		if ev.seq != m.connSeq || m.conn == nil {
			return
		}
		m.logger.Infof("connection closed: %v", ev.err)
		m.conn = nil
		m.apply(ev)
	}
}

// discard drops an event that arrived after teardown or from a superseded socket. A socket that
// managed to open anyway is closed right away.
func (m *ConnectionManager) discard(ev event) {
	if ev.kind == evOpen && ev.conn != nil {
		m.logger.Debugln("closing stale connection")
		ev.conn.Close()
	}
}

func (m *ConnectionManager) apply(ev event) {
	next, effects := m.state.step(ev.kind, ev.err, m.policy)
	m.state = next

	for _, e := range effects {
		if !m.alive.Load() {
			return
		}

		switch e.kind {
		case effPublish:
			m.logger.Infof("status %s on %s", e.status, ev.kind)
			m.status.Publish(e.status)
		case effDial:
			m.dial()
		case effSchedule:
			m.schedule(e.delay)
		case effCancelTimer:
			m.cancelTimer()
		case effReport:
			m.onReport(e.report)
		}
	}
}

func (m *ConnectionManager) handleMessage(msg Message) {
	n, ok, err := DecodeNotification(msg.Data())
	if err != nil {
		m.logger.Warnf("dropping invalid frame %q: %s", msg.Data(), err)
		return
	}
	if !ok {
		m.logger.Debugf("ignoring frame %q", msg.Data())
		return
	}
	if !m.alive.Load() {
		return
	}

	m.onNotification(n)
}

func (m *ConnectionManager) dial() {
	m.connSeq++

	var (
		seq    = m.connSeq
		recv   = make(chan Message, recvBufferSize)
		logger = m.logger.WithField("conn_id", uuid.NewString())
		conn   = m.factory(m.ctx, recv)
	)

	m.conn = conn
	logger.Debugf("dialing attempt %d", m.state.attempt)

	go m.pump(logger, seq, conn, recv)
}

func (m *ConnectionManager) schedule(delay time.Duration) {
	m.timerSeq++
	seq := m.timerSeq

	m.logger.Infof("reconnecting in %s (attempt %d/%d)", delay, m.state.attempt, m.policy.MaxAttempts)

	m.timer = m.afterFunc(delay, func() {
		m.post(event{kind: evReconnect, seq: seq})
	})
}

func (m *ConnectionManager) cancelTimer() {
	m.timerSeq++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *ConnectionManager) teardown() {
	m.cancelTimer()

	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}

	m.cancel()
	m.release()
	m.logger.Infoln("connection manager stopped")
}

// release drops every subscriber once nothing can be published anymore.
func (m *ConnectionManager) release() {
	m.status.Close()
	if m.onTeardown != nil {
		m.onTeardown()
	}
}

// pump turns the lifetime of a single socket into loop events: open (or error and close when the
// dial fails), then every text frame in arrival order, then error if the socket failed, then close.
func (m *ConnectionManager) pump(logger Logger, seq uint64, conn Connection, recv <-chan Message) {
	if err := conn.Open(m.ctx); err != nil {
		logger.Errorf("cannot open connection: %s", err)
		conn.Close()
		if m.post(event{kind: evError, seq: seq, err: err}) {
			m.post(event{kind: evClose, seq: seq, err: err})
		}
		return
	}

	if !m.post(event{kind: evOpen, seq: seq, conn: conn}) {
		logger.Debugln("closing connection opened after stop")
		conn.Close()
		return
	}

	ka := newKeepAlive(logger, conn, m.pingInterval)
	defer ka.stop()

	closeC := conn.CloseChan()

	for {
		select {
		case msg := <-recv:
			if !m.forward(logger, ka, seq, msg) {
				return
			}
		case <-ka.ticks():
			ka.ping()
		case <-closeC:
			for drained := false; !drained; {
				select {
				case msg := <-recv:
					if !m.forward(logger, ka, seq, msg) {
						return
					}
				default:
					drained = true
				}
			}

			reason := conn.CloseErr()
			if isTransportFailure(reason) {
				if !m.post(event{kind: evError, seq: seq, err: reason}) {
					return
				}
			}
			m.post(event{kind: evClose, seq: seq, err: reason})
			return
		}
	}
}

func (m *ConnectionManager) forward(logger Logger, ka *keepAlive, seq uint64, msg Message) bool {
	if ka.reply(msg) {
		return true
	}
	if !msg.Type().IsText() {
		logger.Debugf("ignoring %s frame", msg.Type())
		return true
	}
	return m.post(event{kind: evMessage, seq: seq, msg: msg})
}
