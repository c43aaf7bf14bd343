package wsnotify

import (
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	frameAB = `{"type":"notification","title":"A","body":"B"}`
	frameCD = `{"type":"notification","title":"C","body":"D"}`
)

func TestClient_DeduplicatesNotifications(t *testing.T) {
	h := newHarness(t, testConfig(), nil)

	var (
		mu       sync.Mutex
		received []Notification
	)
	h.client.SubscribeToNotifications(func(n Notification) {
		mu.Lock()
		received = append(received, n)
		mu.Unlock()
	})

	h.client.Start()
	conn := h.nextConn(t)
	h.waitStatus(t, StatusOpen)

	conn.Push(textFrame(frameAB))
	require.Eventually(t, func() bool { return len(h.client.Notifications()) == 1 }, waitFor, tick)
	assert.Equal(t, []Notification{{Title: "A", Body: "B"}}, h.sink.Notifications())

	conn.Push(textFrame(frameAB))
	conn.Push(textFrame(frameCD))
	require.Eventually(t, func() bool { return len(h.client.Notifications()) == 2 }, waitFor, tick)

	want := []Notification{{Title: "A", Body: "B"}, {Title: "C", Body: "D"}}
	assert.Equal(t, want, h.client.Notifications())
	assert.Equal(t, want, h.sink.Notifications(), "the sink sees every notification exactly once")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, want, received)
}

func TestClient_IgnoresUnrelatedAndMalformedFrames(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	h.client.Start()

	conn := h.nextConn(t)
	h.waitStatus(t, StatusOpen)

	conn.Push(textFrame(`{"type":"ping"}`))
	conn.Push(textFrame(`{"type":"notification"`))
	conn.Push(textFrame(`{"type":"notification","title":"A"}`))
	conn.Push(NewBinaryMessage([]byte(frameCD)))
	conn.Push(textFrame(frameAB))

	require.Eventually(t, func() bool { return len(h.client.Notifications()) == 1 }, waitFor, tick)

	assert.Equal(t, []Notification{{Title: "A", Body: "B"}}, h.client.Notifications())
	assert.Equal(t, []ConnectionStatus{StatusConnecting, StatusOpen}, h.Statuses())
	assert.Equal(t, StatusOpen, h.client.Status())
	assert.Nil(t, h.clock.Next(20*tick), "malformed frames never trigger a reconnect")
}

func TestClient_ClearNotifications(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	h.client.Start()

	conn := h.nextConn(t)
	h.waitStatus(t, StatusOpen)

	conn.Push(textFrame(frameAB))
	require.Eventually(t, func() bool { return len(h.client.Notifications()) == 1 }, waitFor, tick)

	h.client.ClearNotifications()
	assert.Empty(t, h.client.Notifications())

	conn.Push(textFrame(frameAB))
	require.Eventually(t, func() bool { return len(h.client.Notifications()) == 1 }, waitFor, tick)
	assert.Len(t, h.sink.Notifications(), 2)
}

func TestClient_UnsubscribeFromNotifications(t *testing.T) {
	h := newHarness(t, testConfig(), nil)

	var (
		mu    sync.Mutex
		calls int
	)
	unsubscribe := h.client.SubscribeToNotifications(func(Notification) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	h.client.Start()
	conn := h.nextConn(t)
	h.waitStatus(t, StatusOpen)

	conn.Push(textFrame(frameAB))
	require.Eventually(t, func() bool { return len(h.client.Notifications()) == 1 }, waitFor, tick)

	unsubscribe()
	conn.Push(textFrame(frameCD))
	require.Eventually(t, func() bool { return len(h.client.Notifications()) == 2 }, waitFor, tick)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestClient_SinkFailuresDoNotAffectState(t *testing.T) {
	sink := &mockSink{}
	sink.On("Report", mock.Anything).Return()
	sink.On("Notify", Notification{Title: "A", Body: "B"}).Return(errors.New("toast failed"))
	sink.On("Notify", Notification{Title: "C", Body: "D"}).
		Run(func(mock.Arguments) { panic("toast crashed") }).
		Return(nil)

	factory := newMockConnectionFactory()
	client := NewClient(testConfig(), WithConnectionFactory(factory.Factory()), WithSink(sink))
	t.Cleanup(client.Stop)

	client.Start()
	conn := factory.Next(waitFor)
	require.NotNil(t, conn)
	require.Eventually(t, func() bool { return client.Status() == StatusOpen }, waitFor, tick)

	conn.Push(textFrame(frameAB))
	conn.Push(textFrame(frameCD))
	conn.Push(textFrame(frameCD))

	require.Eventually(t, func() bool { return len(client.Notifications()) == 2 }, waitFor, tick)
	assert.Equal(t, StatusOpen, client.Status())

	sink.On("Notify", Notification{Title: "E", Body: "F"}).Return(nil)
	conn.Push(textFrame(`{"type":"notification","title":"E","body":"F"}`))
	require.Eventually(t, func() bool { return len(client.Notifications()) == 3 }, waitFor, tick)

	sink.AssertNumberOfCalls(t, "Notify", 3)
	sink.AssertCalled(t, "Report", StatusReport{Kind: ReportConnected})
}

func TestClient_StopFromSinkSkipsSubscribers(t *testing.T) {
	var client *Client

	sink := &mockSink{}
	sink.On("Report", mock.Anything).Return()
	sink.On("Notify", Notification{Title: "A", Body: "B"}).
		Run(func(mock.Arguments) { client.Stop() }).
		Return(nil)

	factory := newMockConnectionFactory()
	client = NewClient(testConfig(), WithConnectionFactory(factory.Factory()), WithSink(sink))
	t.Cleanup(client.Stop)

	var (
		mu    sync.Mutex
		calls int
	)
	client.SubscribeToNotifications(func(Notification) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	client.Start()
	conn := factory.Next(waitFor)
	require.NotNil(t, conn)
	require.Eventually(t, func() bool { return client.Status() == StatusOpen }, waitFor, tick)

	conn.Push(textFrame(frameAB))

	select {
	case <-client.Done():
	case <-time.After(waitFor):
		t.Fatal("client did not stop")
	}

	sink.AssertNumberOfCalls(t, "Notify", 1)
	assert.Equal(t, []Notification{{Title: "A", Body: "B"}}, client.Notifications())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, calls)
}

func TestClient_String(t *testing.T) {
	client := NewClient(testConfig(), WithConnectionFactory(newMockConnectionFactory().Factory()))
	defer client.Stop()

	assert.Equal(t, "Client{status=idle,notifications=0}", client.String())
}
