// Package eventbus provides a small typed publish/subscribe hub.
//
// Publishers never block: each subscriber owns a buffered channel and a
// full buffer drops the event for that subscriber only. Dropped events are
// counted so slow consumers show up in metrics rather than stalling the
// producer.
package eventbus

import (
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the channel capacity used when Subscribe is given a
// non-positive buffer size.
const DefaultBuffer = 64

// Bus fans each published value out to every current subscriber.
//
// Thread Safety: All methods are safe for concurrent use.
type Bus[T any] struct {
	mu      sync.RWMutex
	subs    map[uint64]chan T
	nextID  uint64
	closed  bool
	dropped atomic.Uint64

	// OnDrop, if set, is invoked whenever a subscriber misses an event.
	OnDrop func()
}

// New creates an empty bus.
func New[T any]() *Bus[T] {
	return &Bus[T]{subs: make(map[uint64]chan T)}
}

// Subscribe registers a new subscriber and returns its receive channel plus
// a cancel function. Cancel is idempotent and closes the channel.
// Subscribing to a closed bus returns an already-closed channel.
func (b *Bus[T]) Subscribe(buffer int) (<-chan T, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan T, buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Publish delivers v to every subscriber without blocking.
// Returns the number of subscribers that received the value.
func (b *Bus[T]) Publish(v T) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0
	}

	delivered := 0
	for _, ch := range b.subs {
		select {
		case ch <- v:
			delivered++
		default:
			b.dropped.Add(1)
			if b.OnDrop != nil {
				b.OnDrop()
			}
		}
	}
	return delivered
}

// Dropped returns how many deliveries were skipped because a subscriber's
// buffer was full.
func (b *Bus[T]) Dropped() uint64 {
	return b.dropped.Load()
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Later publishes are no-ops.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}
