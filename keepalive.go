package wsnotify

import (
	"time"
)

// keepAlive bundles the active and passive keep-alive behaviour of a single connection. The
// active side sends a ping every interval; the passive side answers server pings with pongs.
type keepAlive struct {
	conn   Connection
	logger Logger
	ticker *time.Ticker
}

func newKeepAlive(logger Logger, conn Connection, interval time.Duration) *keepAlive {
	k := &keepAlive{conn: conn, logger: logger}
	if interval > 0 {
		k.ticker = time.NewTicker(interval)
	}
	return k
}

// ticks is nil when active keep-alive is disabled, which blocks forever in a select.
func (k *keepAlive) ticks() <-chan time.Time {
	if k.ticker == nil {
		return nil
	}
	return k.ticker.C
}

func (k *keepAlive) ping() {
	if err := k.conn.Write(NewPingMessage(nil)); err != nil {
		k.logger.Warnf("cannot send keep-alive ping: %s", err)
	}
}

// reply answers m if it is a ping and reports whether m was a control frame consumed here.
func (k *keepAlive) reply(m Message) bool {
	if !m.Type().IsControl() {
		return false
	}

	switch m.Type() {
	case PingMessage:
		if err := k.conn.Write(NewPongMessage(m.Data())); err != nil {
			k.logger.Warnf("cannot reply to ping: %s", err)
		}
	case CloseMessage:
		if cm, ok := m.(closeMessage); ok {
			k.logger.Infof("server sent close frame, code %d: %q", cm.Code, cm.Data())
		}
	}
	return true
}

func (k *keepAlive) stop() {
	if k.ticker != nil {
		k.ticker.Stop()
	}
}
