package events

import (
	"sync"
	"sync/atomic"
)

const defaultBufferSize = 100

// Subscription is a subscriber's receive channel.
type Subscription struct {
	C  <-chan Event
	id uint64
}

// Bus is a non-blocking fan-out of events to subscribers.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[uint64]chan Event
	nextID      uint64
	bufferSize  int
	dropped     atomic.Uint64
	closed      bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[uint64]chan Event),
		bufferSize:  defaultBufferSize,
	}
}

// Subscribe registers a new subscriber. On a closed bus the returned channel is already closed.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)
	if b.closed {
		close(ch)
		return &Subscription{C: ch}
	}

	b.nextID++
	b.subscribers[b.nextID] = ch
	return &Subscription{C: ch, id: b.nextID}
}

// Unsubscribe removes sub and closes its channel.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[sub.id]; ok {
		delete(b.subscribers, sub.id)
		close(ch)
	}
}

// Publish delivers event to every subscriber with buffer space; for the others
// the event is dropped and counted.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes every subscriber channel. Later subscriptions receive a closed channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
