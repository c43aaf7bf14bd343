package wsnotify

import (
	"sync"

	"github.com/stretchr/testify/mock"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Notify(n Notification) error {
	args := m.Called(n)
	return args.Error(0)
}

func (m *mockSink) Report(r StatusReport) {
	m.Called(r)
}

// recordingSink keeps everything it receives.
type recordingSink struct {
	mu            sync.Mutex
	notifications []Notification
	reports       []StatusReport
}

func (s *recordingSink) Notify(n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
	return nil
}

func (s *recordingSink) Report(r StatusReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
}

func (s *recordingSink) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

func (s *recordingSink) Reports() []StatusReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StatusReport, len(s.reports))
	copy(out, s.reports)
	return out
}

func (s *recordingSink) ReportKinds() []ReportKind {
	reports := s.Reports()
	out := make([]ReportKind, 0, len(reports))
	for _, r := range reports {
		out = append(out, r.Kind)
	}
	return out
}
