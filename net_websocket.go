package wsnotify

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/pkg/errors"
)

const writeWait = time.Second

type (
	openConnectionParamsRepo interface {
		Get(ctx context.Context) (OpenConnectionParams, error)
	}

	ErrAdapter func(*websocket.Conn, *http.Response, error) error

	ErrorAdapters struct {
		OnDial ErrAdapter
	}

	// WsConnection is the websocket implementation of Connection.
	WsConnection struct {
		errAdapters              ErrorAdapters
		openConnectionParamsRepo openConnectionParamsRepo
		logger                   Logger
		dialer                   *websocket.Dialer
		conn                     *websocket.Conn
		connMu                   sync.Mutex
		closeChan                CloseChan
		closeOnce                sync.Once
		closeReason              error
		closeReasonOnce          sync.Once
		recv                     chan<- Message // recv messages to be received over the wire
		send                     chan Message   // send messages to be sent over the wire
	}
)

func NewWebsocketConnection(
	dialer *websocket.Dialer,
	openParamsRepo openConnectionParamsRepo,
	logger Logger,
	recvChan chan<- Message,
	errorHandlers ErrorAdapters,
) *WsConnection {
	return &WsConnection{
		errAdapters:              errorHandlers,
		dialer:                   dialer,
		openConnectionParamsRepo: openParamsRepo,
		recv:                     recvChan,
		send:                     make(chan Message),
		closeChan:                make(CloseChan),
		logger:                   logger.WithField("net", "ws_connection"),
	}
}

func NewWebsocketFactory(
	logger Logger,
	dialer *websocket.Dialer,
	openConnectionParamsRepo OpenConnectionParamsRepo,
	errorHandlers ErrorAdapters,
) ConnectionFactory {
	return func(_ context.Context, recvChan chan<- Message) Connection {
		return NewWebsocketConnection(
			dialer,
			openConnectionParamsRepo,
			logger,
			recvChan,
			errorHandlers,
		)
	}
}

// Write queues m for the write pump. It fails once the connection is closed.
func (w *WsConnection) Write(m Message) error {
	select {
	case w.send <- m:
		return nil
	case <-w.closeChan:
		return ErrConnectionClosed
	}
}

// Close terminates the connection from our side.
func (w *WsConnection) Close() {
	w.setCloseReason(ErrTerminated)
	w.safeClose()
}

// Open dials the endpoint. It returns once the handshake completed or failed.
func (w *WsConnection) Open(ctx context.Context) error {
	return w.start(ctx)
}

func (w *WsConnection) CloseChan() CloseChan {
	return w.closeChan
}

// CloseErr is ErrTerminated when we closed the connection, ErrConnectionClosed on a normal close
// from the server and ErrConnectionLost for anything else.
func (w *WsConnection) CloseErr() error {
	select {
	case <-w.closeChan:
		return w.closeReason
	default:
		return nil
	}
}

func (w *WsConnection) start(ctx context.Context) error {
	p, err := w.openConnectionParamsRepo.Get(ctx)
	if err != nil {
		return err
	}

	conn, resp, err := w.dialer.DialContext(ctx, p.URL.String(), p.Header)

	if err = w.handleDialError(conn, resp, err); err != nil {
		w.logger.Errorf("connection err to %s: %s", p.URL.String(), err)
		return err
	}

	w.logger.Debugf("success opening connection to %s", p.URL.String())

	w.connMu.Lock()
	select {
	case <-w.closeChan:
		// Closed while dialing.
		w.connMu.Unlock()
		_ = conn.Close()
		return ErrTerminated
	default:
	}
	w.conn = conn
	w.connMu.Unlock()

	// Control frames are forwarded so that the keep-alive logic above owns ping/pong replies.
	conn.SetPingHandler(func(appData string) error {
		w.logger.Debugln("<= [PING]")
		w.deliver(NewPingMessage([]byte(appData)))
		return nil
	})

	conn.SetPongHandler(func(appData string) error {
		w.logger.Debugln("<= [PONG]")
		w.deliver(NewPongMessage([]byte(appData)))
		return nil
	})

	// The close reply is written by close() once read returns the close error.
	conn.SetCloseHandler(func(code int, text string) error {
		w.logger.Debugf("<= [CLOSE] %d", code)
		w.deliver(NewCloseMessage(code, []byte(text)))
		return nil
	})

	go w.read(ctx)
	go w.write(ctx)

	return nil
}

func (w *WsConnection) deliver(m Message) {
	select {
	case w.recv <- m:
	case <-w.closeChan:
	}
}

func (w *WsConnection) read(ctx context.Context) {
	defer w.safeClose()

	for {
		select {
		case <-w.closeChan:
			w.setCloseReason(ErrTerminated)
			return
		case <-ctx.Done():
			w.setCloseReason(ErrTerminated)
			return
		default:
			messageType, bts, err := w.conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					w.logger.Infof("connection closed by server: %s", err)
					w.setCloseReason(ErrConnectionClosed)
					return
				}

				w.logger.Errorf("error occurred on websocket read: %s", err)
				w.setCloseReason(errors.Wrap(ErrConnectionLost, "websocket read: "+err.Error()))
				return
			}
			// message types from ReadMessage are either binary or text
			switch messageType {
			case websocket.BinaryMessage:
				w.logger.Debugln("<= [BIN]")
				w.deliver(NewBinaryMessage(bts))
			default:
				w.logger.Debugf("<= [TEXT] %s", string(bts))
				w.deliver(NewTextMessage(bts))
			}
		}
	}
}

func (w *WsConnection) write(ctx context.Context) {
	defer w.safeClose()

	for {
		select {
		case <-w.closeChan:
			w.setCloseReason(ErrTerminated)
			return
		case <-ctx.Done():
			w.setCloseReason(ErrTerminated)
			return
		case msg := <-w.send:
			deadline := time.Now().Add(writeWait)
			_ = w.conn.SetWriteDeadline(deadline)

			var err error

			switch msg.Type() {
			case PingMessage:
				w.logger.Debugln("=> [PING]")
				err = w.conn.WriteControl(websocket.PingMessage, msg.Data(), deadline)
			case PongMessage:
				w.logger.Debugln("=> [PONG]")
				err = w.conn.WriteControl(websocket.PongMessage, msg.Data(), deadline)
			case TextMessage:
				w.logger.Debugf("=> [TEXT] %s", msg.Data())
				err = w.conn.WriteMessage(websocket.TextMessage, msg.Data())
			case BinaryMessage:
				w.logger.Debugln("=> [BIN]")
				err = w.conn.WriteMessage(websocket.BinaryMessage, msg.Data())
			}

			if err != nil {
				w.logger.Errorf("error occurred on websocket write: %s", err)
				w.setCloseReason(errors.Wrap(ErrConnectionLost, "websocket write: "+err.Error()))
				return
			}
		}
	}
}

func (w *WsConnection) safeClose() {
	w.closeOnce.Do(w.close)
}

func (w *WsConnection) close() {
	w.connMu.Lock()
	defer w.connMu.Unlock()

	if w.conn != nil {
		_ = w.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		_ = w.conn.Close()
	}
	close(w.closeChan)
}

func (w *WsConnection) setCloseReason(err error) {
	w.closeReasonOnce.Do(func() {
		w.closeReason = err
	})
}

func (w *WsConnection) handleDialError(conn *websocket.Conn, resp *http.Response, err error) error {
	if w.errAdapters.OnDial != nil {
		return w.errAdapters.OnDial(conn, resp, err)
	}

	if err == nil {
		return nil
	}

	// 1. Check HTTP errors first
	var msg string

	if resp != nil {
		if resp.Body != nil {
			bts, readErr := io.ReadAll(resp.Body)
			if readErr == nil {
				msg = string(bts)
			}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return errors.Wrap(ErrRateLimit, msg)
		}
	}

	// 2. Network errors
	return errors.Wrap(ErrCannotConnect, err.Error())
}
