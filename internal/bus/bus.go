// Package bus fans observability events (connection status, QR rotations,
// processed turns) out to in-process listeners. The inbound message path
// never rides the bus: delivery is lossy under backpressure, which is fine
// for status consumers but would break per-user message ordering.
package bus

import (
	"sync"
	"time"
)

// Bus routes events to topic subscribers without blocking publishers.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]subscriber
}

type subscriber struct {
	topic string
	ch    chan Event
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[int]subscriber)}
}

// Publish delivers evt to every subscriber of its topic. A missing
// timestamp is filled in. Subscribers that cannot keep up lose events
// rather than stalling the publisher.
func (b *Bus) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	topic := evt.Kind.Topic()

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.topic != "" && sub.topic != topic {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
		}
	}
}

// Subscribe registers a buffered listener for one topic; an empty topic
// receives everything. The returned func removes the subscription.
func (b *Bus) Subscribe(topic string, bufSize int) (<-chan Event, func()) {
	ch := make(chan Event, bufSize)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = subscriber{topic: topic, ch: ch}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}
