package wsnotify

import "sync"

// NotificationStore is an append-only, deduplicated sequence of notifications kept in insertion order.
// A notification equal to any already stored one is rejected until Clear is called.
type NotificationStore struct {
	mu    sync.RWMutex
	items []Notification
	seen  map[Notification]struct{}
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{seen: make(map[Notification]struct{})}
}

// Add appends n and returns true, unless an equal notification is already stored.
func (s *NotificationStore) Add(n Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.seen[n]; dup {
		return false
	}

	s.seen[n] = struct{}{}
	s.items = append(s.items, n)
	return true
}

// All returns a copy of the stored notifications in insertion order.
func (s *NotificationStore) All() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Notification, len(s.items))
	copy(out, s.items)
	return out
}

func (s *NotificationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.items)
}

func (s *NotificationStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.seen = make(map[Notification]struct{})
}
