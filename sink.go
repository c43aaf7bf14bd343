package wsnotify

import (
	"time"
)

type ReportKind int

const (
	ReportConnected ReportKind = iota
	ReportConnectionFailed
	ReportReconnecting
	ReportRetriesExhausted
)

func (k ReportKind) String() string {
	switch k {
	case ReportConnected:
		return "connected"
	case ReportConnectionFailed:
		return "connection_failed"
	case ReportReconnecting:
		return "reconnecting"
	case ReportRetriesExhausted:
		return "retries_exhausted"
	default:
		return "unknown"
	}
}

// StatusReport is a connection-level event meant for humans: the feed connected, failed,
// will be retried, or gave up.
type StatusReport struct {
	Kind ReportKind
	// Attempt is the reconnect attempt number being scheduled, starting at 1.
	Attempt int
	// Delay is the real wait before the reconnect fires.
	Delay time.Duration
	// DisplayDelay is Delay capped by ReconnectPolicy.MaxDisplayDelay.
	DisplayDelay time.Duration
	Err          error
}

// NotificationSink presents notifications and connection reports to a human. The client calls
// Notify exactly once per newly stored notification. Errors and panics raised by a sink are
// logged and otherwise ignored.
type NotificationSink interface {
	Notify(n Notification) error
	Report(r StatusReport)
}

type logSink struct {
	logger Logger
}

// NewLogSink returns a sink writing everything to the logger.
func NewLogSink(logger Logger) NotificationSink {
	return logSink{logger: logger.WithField("component", "sink")}
}

func (s logSink) Notify(n Notification) error {
	s.logger.Infof("%s: %s", n.Title, n.Body)
	return nil
}

func (s logSink) Report(r StatusReport) {
	switch r.Kind {
	case ReportConnected:
		s.logger.Info("connected to notifications")
	case ReportConnectionFailed:
		s.logger.Errorf("notification connection failed: %v", r.Err)
	case ReportReconnecting:
		s.logger.Warnf("reconnecting in %s (attempt %d)", r.DisplayDelay, r.Attempt)
	case ReportRetriesExhausted:
		s.logger.Error("max reconnects reached, start again to retry")
	}
}
