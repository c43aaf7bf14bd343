package wsnotify

import (
	"github.com/pkg/errors"
)

var (
	ErrConnectionClosed = errors.New("connection has been closed")
	ErrConnectionLost   = errors.New("connection lost")
	ErrCannotConnect    = errors.New("connection cannot be established")
	ErrTerminated       = errors.New("program exit")
	ErrRateLimit        = errors.New("rate limit exceeded")
	ErrRetriesExhausted = errors.New("max reconnect attempts reached")

	ErrMalformedFrame = errors.New("malformed frame")
	ErrMissingField   = errors.New("missing field")

	ErrInvalidConfig = errors.New("invalid config")
)

// MalformedFrameError is returned for frames that cannot be decoded. It matches ErrMalformedFrame
// and unwraps to the decoding cause.
type MalformedFrameError struct {
	err error
}

func (e MalformedFrameError) Error() string {
	return "malformed frame: " + e.err.Error()
}

func (e MalformedFrameError) Unwrap() error { return e.err }

func (e MalformedFrameError) Is(target error) bool { return target == ErrMalformedFrame }

func wrapMalformedFrame(err error) *MalformedFrameError {
	return &MalformedFrameError{err: err}
}

// isTransportFailure reports whether a close reason should be surfaced as a socket-level error
// before the close is processed. Clean closes from either side are not failures.
func isTransportFailure(reason error) bool {
	if reason == nil {
		return false
	}
	return !errors.Is(reason, ErrConnectionClosed) && !errors.Is(reason, ErrTerminated)
}
