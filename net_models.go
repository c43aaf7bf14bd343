package wsnotify

import (
	"context"
)

type (
	// CloseChan is closed once a Connection has been torn down.
	CloseChan chan struct{}

	// Connection is a single socket to the feed. It is opened once and never reused after closing.
	Connection interface {
		// Write queues a frame to be sent to the server.
		Write(m Message) error
		// Open dials the endpoint. It blocks until the connection is established or fails.
		Open(ctx context.Context) error
		// Close tears the connection down. It is safe to call more than once and before Open.
		Close()
		// CloseErr explains why the connection closed. ErrTerminated means we closed it.
		CloseErr() error
		// CloseChan is closed once the connection is no longer usable.
		CloseChan() CloseChan
	}

	// ConnectionFactory builds a fresh Connection delivering inbound frames on recvChan.
	ConnectionFactory func(ctx context.Context, recvChan chan<- Message) Connection
)
