// Package wsnotify keeps a durable connection to a push-notification feed over a websocket,
// reconnecting with exponential backoff, and exposes the deduplicated notifications and the
// connection status to consumers.
package wsnotify

import (
	"fmt"

	"github.com/fasthttp/websocket"
)

const topicNotification = "notification"

type (
	// Option customises a Client.
	Option func(*options)

	options struct {
		logger    Logger
		sink      NotificationSink
		factory   ConnectionFactory
		dialer    *websocket.Dialer
		afterFunc afterFunc
	}
)

func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSink sets the collaborator presenting notifications and connection reports. Defaults to a
// sink writing to the logger.
func WithSink(sink NotificationSink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

// WithConnectionFactory replaces the websocket transport.
func WithConnectionFactory(factory ConnectionFactory) Option {
	return func(o *options) {
		o.factory = factory
	}
}

// WithDialer sets the dialer used by the default websocket transport.
func WithDialer(dialer *websocket.Dialer) Option {
	return func(o *options) {
		o.dialer = dialer
	}
}

func withAfterFunc(fn afterFunc) Option {
	return func(o *options) {
		o.afterFunc = fn
	}
}

// Client is the consumer-facing facade. It wires a ConnectionManager to a NotificationStore and a
// StatusPublisher, and forwards every newly stored notification to the sink and to subscribers.
type Client struct {
	logger        Logger
	sink          NotificationSink
	store         *NotificationStore
	status        *StatusPublisher
	notifications *EventEmitterCallback[string, Notification]
	manager       *ConnectionManager
}

func NewClient(cfg Config, opts ...Option) *Client {
	o := options{logger: NopLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	if o.sink == nil {
		o.sink = NewLogSink(o.logger)
	}

	if o.factory == nil {
		dialer := o.dialer
		if dialer == nil {
			dialer = &websocket.Dialer{
				Proxy:            websocket.DefaultDialer.Proxy,
				HandshakeTimeout: cfg.HandshakeTimeout,
			}
		}
		o.factory = NewWebsocketFactory(
			o.logger,
			dialer,
			NewOpenConnectionParamsRepo(o.logger, StaticOpenConnectionParams(cfg.ResolveEndpoint(), nil)),
			ErrorAdapters{},
		)
	}

	c := &Client{
		logger:        o.logger.WithField("type", "client"),
		sink:          o.sink,
		store:         NewNotificationStore(),
		status:        NewStatusPublisher(),
		notifications: NewEventEmitter[string, Notification](),
	}

	c.manager = NewConnectionManager(
		o.logger,
		o.factory,
		cfg.ReconnectPolicy(),
		cfg.PingInterval,
		c.status,
		c.receive,
		c.report,
	)
	if o.afterFunc != nil {
		c.manager.afterFunc = o.afterFunc
	}
	c.manager.onTeardown = c.notifications.Close

	return c
}

func (c *Client) Start() {
	c.manager.Start()
}

// Stop tears the connection down for good. Notifications received so far stay available.
func (c *Client) Stop() {
	c.manager.Stop()
}

// Done is closed once the client has fully stopped.
func (c *Client) Done() <-chan struct{} {
	return c.manager.Done()
}

// Notifications returns the stored notifications in the order they were first received.
func (c *Client) Notifications() []Notification {
	return c.store.All()
}

func (c *Client) Status() ConnectionStatus {
	return c.status.Current()
}

func (c *Client) ClearNotifications() {
	c.store.Clear()
}

// SubscribeToNotifications calls fn for every newly stored notification until unsubscribe is called.
func (c *Client) SubscribeToNotifications(fn func(Notification)) (unsubscribe func()) {
	return c.notifications.Subscribe(topicNotification, fn)
}

// SubscribeToStatus calls fn on every status transition until unsubscribe is called.
func (c *Client) SubscribeToStatus(fn func(ConnectionStatus)) (unsubscribe func()) {
	return c.status.Subscribe(fn)
}

func (c *Client) receive(n Notification) {
	if !c.store.Add(n) {
		c.logger.Debugf("duplicate notification %q dropped", n.Title)
		return
	}

	c.deliver(n)
	// The sink may have stopped the client.
	if !c.manager.isAlive() {
		return
	}
	c.notifications.Emit(topicNotification, n)
}

func (c *Client) deliver(n Notification) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Errorf("sink panicked on notify: %v", r)
		}
	}()

	if err := c.sink.Notify(n); err != nil {
		c.logger.Warnf("sink failed on notify: %s", err)
	}
}

func (c *Client) report(r StatusReport) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Errorf("sink panicked on report %s: %v", r.Kind, rec)
		}
	}()

	c.sink.Report(r)
}

func (c *Client) String() string {
	return fmt.Sprintf("Client{status=%s,notifications=%d}", c.Status(), c.store.Len())
}
