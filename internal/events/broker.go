// Package events is the in-process fan-out for task events. The broker is
// injected, never package-global, and subscribers get their own buffered
// channel the moment Subscribe returns, so an event published between two
// reads is queued instead of lost. Delivery is per-process only; multiple
// server instances need an external broker.
package events

import "sync"

const (
	TaskAdded      = "TASK_ADDED"
	TaskUpdated    = "TASK_UPDATED"
	TaskUnassigned = "TASK_UNASSIGNED"
)

type Event struct {
	Type        string `json:"type"`
	TaskID      uint   `json:"task_id"`
	ProjectID   uint   `json:"project_id"`
	WorkspaceID uint   `json:"workspace_id"`
}

type Subscriber struct {
	// C receives events in emission order. It is closed by Close.
	C chan Event

	broker *Broker
	once   sync.Once
}

type Broker struct {
	mu   sync.RWMutex
	subs map[*Subscriber]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[*Subscriber]struct{})}
}

// Subscribe registers a subscriber with the given channel buffer. Events
// published while the subscriber is not reading queue up to the buffer; a
// full buffer drops events for that subscriber only.
func (b *Broker) Subscribe(buffer int) *Subscriber {
	sub := &Subscriber{C: make(chan Event, buffer), broker: b}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

func (b *Broker) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		select {
		case sub.C <- ev:
		default:
			// Slow subscriber; drop rather than block the publisher.
		}
	}
}

// Close unregisters the subscriber and closes its channel. Safe to call
// more than once.
func (s *Subscriber) Close() {
	s.once.Do(func() {
		s.broker.mu.Lock()
		delete(s.broker.subs, s)
		s.broker.mu.Unlock()
		close(s.C)
	})
}
