package wsnotify

import (
	"sync"
)

type callback[T any] func(T)

type listener[V any] struct {
	id uint64
	fn callback[V]
}

// EventEmitterCallback maps events (of type K) to callbacks receiving values of type V.
// Listeners are invoked synchronously, outside the emitter lock, so a listener may subscribe
// or unsubscribe from within its own invocation.
type EventEmitterCallback[K comparable, V any] struct {
	listeners map[K][]listener[V]
	nextID    uint64
	lock      sync.RWMutex
}

// NewEventEmitter creates a new EventEmitterCallback and returns a pointer to it.
func NewEventEmitter[K comparable, V any]() *EventEmitterCallback[K, V] {
	return &EventEmitterCallback[K, V]{
		listeners: make(map[K][]listener[V]),
	}
}

// Subscribe registers fn for the given event and returns a function removing it. The returned
// function is idempotent.
func (e *EventEmitterCallback[K, V]) Subscribe(event K, fn callback[V]) (unsubscribe func()) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.nextID++
	id := e.nextID
	e.listeners[event] = append(e.listeners[event], listener[V]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { e.off(event, id) })
	}
}

func (e *EventEmitterCallback[K, V]) off(event K, id uint64) {
	e.lock.Lock()
	defer e.lock.Unlock()

	current := e.listeners[event]
	kept := make([]listener[V], 0, len(current))
	for _, l := range current {
		if l.id != id {
			kept = append(kept, l)
		}
	}

	if len(kept) == 0 {
		delete(e.listeners, event)
		return
	}
	e.listeners[event] = kept
}

// Emit calls every listener registered for the event, in registration order, and returns once all
// of them have returned. Listeners are snapshotted before the first call.
func (e *EventEmitterCallback[K, V]) Emit(event K, data V) {
	e.lock.RLock()
	listeners := e.listeners[event]
	e.lock.RUnlock()

	for _, l := range listeners {
		l.fn(data)
	}
}

// Len returns the number of listeners registered for the event.
func (e *EventEmitterCallback[K, V]) Len(event K) int {
	e.lock.RLock()
	defer e.lock.RUnlock()

	return len(e.listeners[event])
}

// Close removes all listeners to prevent memory leaks.
func (e *EventEmitterCallback[K, V]) Close() {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.listeners = make(map[K][]listener[V])
}
