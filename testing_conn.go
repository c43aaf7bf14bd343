package wsnotify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// mockConnection is an in-memory Connection driven by tests.
type mockConnection struct {
	OpenFunc func(ctx context.Context) error

	recv      chan<- Message
	closeC    CloseChan
	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool

	mu      sync.Mutex
	written []Message
}

func newMockConnection(recv chan<- Message) *mockConnection {
	return &mockConnection{recv: recv, closeC: make(CloseChan)}
}

func (m *mockConnection) Open(ctx context.Context) error {
	if m.OpenFunc != nil {
		return m.OpenFunc(ctx)
	}
	return nil
}

func (m *mockConnection) Write(msg Message) error {
	if m.closed.Load() {
		return ErrConnectionClosed
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, msg)
	return nil
}

func (m *mockConnection) Close() {
	m.CloseWith(ErrTerminated)
}

// CloseWith closes the connection as if the transport failed (or finished) with reason.
func (m *mockConnection) CloseWith(reason error) {
	m.closeOnce.Do(func() {
		m.closeErr = reason
		m.closed.Store(true)
		close(m.closeC)
	})
}

func (m *mockConnection) CloseErr() error {
	select {
	case <-m.closeC:
		return m.closeErr
	default:
		return nil
	}
}

func (m *mockConnection) CloseChan() CloseChan {
	return m.closeC
}

func (m *mockConnection) Closed() bool {
	return m.closed.Load()
}

// Push delivers a frame as if it had been read from the wire.
func (m *mockConnection) Push(msg Message) {
	select {
	case m.recv <- msg:
	case <-m.closeC:
	}
}

func (m *mockConnection) Written() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.written))
	copy(out, m.written)
	return out
}

// mockConnectionFactory hands out mockConnections and lets tests configure each dial.
type mockConnectionFactory struct {
	// OpenFunc, when set, is installed on the n-th (0 based) connection.
	OpenFunc func(n int) func(ctx context.Context) error

	mu     sync.Mutex
	conns  []*mockConnection
	dialed chan *mockConnection
}

func newMockConnectionFactory() *mockConnectionFactory {
	return &mockConnectionFactory{dialed: make(chan *mockConnection, 64)}
}

func (f *mockConnectionFactory) Factory() ConnectionFactory {
	return func(_ context.Context, recv chan<- Message) Connection {
		f.mu.Lock()
		conn := newMockConnection(recv)
		if f.OpenFunc != nil {
			conn.OpenFunc = f.OpenFunc(len(f.conns))
		}
		f.conns = append(f.conns, conn)
		f.mu.Unlock()

		f.dialed <- conn
		return conn
	}
}

func (f *mockConnectionFactory) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

func (f *mockConnectionFactory) Next(timeout time.Duration) *mockConnection {
	select {
	case conn := <-f.dialed:
		return conn
	case <-time.After(timeout):
		return nil
	}
}

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped atomic.Bool
}

func (t *fakeTimer) Stop() bool {
	return !t.stopped.Swap(true)
}

// Fire runs the callback unless the timer was stopped, like a real timer expiring.
func (t *fakeTimer) Fire() {
	if !t.stopped.Load() {
		t.fn()
	}
}

// ForceFire runs the callback regardless, as when the timer expired concurrently with Stop.
func (t *fakeTimer) ForceFire() {
	t.fn()
}

func (t *fakeTimer) Stopped() bool {
	return t.stopped.Load()
}

// fakeClock records every scheduled reconnect instead of waiting for it.
type fakeClock struct {
	mu        sync.Mutex
	timers    []*fakeTimer
	scheduled chan *fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{scheduled: make(chan *fakeTimer, 64)}
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) timer {
	t := &fakeTimer{delay: d, fn: f}
	c.mu.Lock()
	c.timers = append(c.timers, t)
	c.mu.Unlock()
	c.scheduled <- t
	return t
}

func (c *fakeClock) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *fakeClock) Next(timeout time.Duration) *fakeTimer {
	select {
	case t := <-c.scheduled:
		return t
	case <-time.After(timeout):
		return nil
	}
}
