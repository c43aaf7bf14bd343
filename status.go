package wsnotify

import "sync"

const topicStatus = "status"

// StatusPublisher holds the current ConnectionStatus and fans every change out to subscribers.
// Subscribers only see statuses published after they subscribed.
type StatusPublisher struct {
	mu      sync.RWMutex
	current ConnectionStatus
	emitter *EventEmitterCallback[string, ConnectionStatus]
}

func NewStatusPublisher() *StatusPublisher {
	return &StatusPublisher{
		current: StatusIdle,
		emitter: NewEventEmitter[string, ConnectionStatus](),
	}
}

func (p *StatusPublisher) Current() ConnectionStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.current
}

func (p *StatusPublisher) Subscribe(fn func(ConnectionStatus)) (unsubscribe func()) {
	return p.emitter.Subscribe(topicStatus, fn)
}

// Publish stores s and then notifies subscribers synchronously.
func (p *StatusPublisher) Publish(s ConnectionStatus) {
	p.mu.Lock()
	p.current = s
	p.mu.Unlock()

	p.emitter.Emit(topicStatus, s)
}

func (p *StatusPublisher) Close() {
	p.emitter.Close()
}
