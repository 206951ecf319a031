// Package changebus is the change-event stream shared by SymptomStore,
// MetricStore, and SettingsStore: a typed channel per subscription,
// with delivery in publish order so callers can drain the stream
// synchronously and rely on ordering.
package changebus

import "sync"

// Bus fans an event of type T out to every subscriber, synchronously
// and in publish order, so every subscriber observes the same total
// order.
type Bus[T any] struct {
	mu          sync.Mutex
	subscribers []chan T
}

// New creates an empty Bus.
func New[T any]() *Bus[T] {
	return &Bus[T]{}
}

// Subscribe registers a new receiver and returns its channel. buffer
// sizes the channel; a slow subscriber that doesn't keep up will block
// Publish. Ordering is preserved by making publish synchronous with
// delivery, never by dropping events.
func (b *Bus[T]) Subscribe(buffer int) <-chan T {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan T, buffer)
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Publish delivers event to every current subscriber, in registration
// order. Subscribers registered after Publish begins are not required
// to observe it.
func (b *Bus[T]) Publish(event T) {
	b.mu.Lock()
	subs := make([]chan T, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.Unlock()

	for _, ch := range subs {
		ch <- event
	}
}

// Close closes every subscriber channel. Callers must not Publish
// after Close.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
}
