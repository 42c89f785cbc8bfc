package pubsub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Handler receives events delivered by a Broker.
type Handler[T any] func(Event[T])

// Broker is a generic, synchronous pub/sub event broker.
// Publish delivers on the caller's goroutine to every subscriber in
// registration order. Nothing is buffered: an event published while nobody
// is subscribed is gone.
type Broker[T any] struct {
	mu     sync.RWMutex
	subs   []*Subscription
	closed bool
}

// Subscription is the disposable handle returned by Subscribe.
type Subscription struct {
	active  atomic.Bool
	deliver func(any)

	mu      sync.Mutex
	done    bool
	release func()
	stop    func() bool
}

// NewBroker creates a new broker.
func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{}
}

// Subscribe registers handler at the tail of the subscriber list.
// The subscription is released when ctx is cancelled or Unsubscribe is called,
// whichever happens first.
func (b *Broker[T]) Subscribe(ctx context.Context, handler Handler[T]) *Subscription {
	sub := &Subscription{
		deliver: func(v any) { handler(v.(Event[T])) },
	}

	sub.release = func() { b.remove(sub) }

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.done = true
		return sub
	}
	sub.active.Store(true)
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	stop := context.AfterFunc(ctx, sub.Unsubscribe)
	sub.mu.Lock()
	if sub.done {
		sub.mu.Unlock()
		stop()
		return sub
	}
	sub.stop = stop
	sub.mu.Unlock()
	return sub
}

// Publish sends an event to all current subscribers.
// Handlers may publish, subscribe or unsubscribe re-entrantly.
func (b *Broker[T]) Publish(eventType EventType, payload T) {
	b.mu.RLock()
	if b.closed || len(b.subs) == 0 {
		b.mu.RUnlock()
		return
	}
	snapshot := make([]*Subscription, len(b.subs))
	copy(snapshot, b.subs)
	b.mu.RUnlock()

	event := Event[T]{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	for _, sub := range snapshot {
		// Skip subscribers released by an earlier handler in this same publish
		// or by another goroutine since the snapshot was taken.
		if !sub.active.Load() {
			continue
		}
		sub.deliver(event)
	}
}

// Close shuts down the broker and releases every subscription.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return // Already closed
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broker[T]) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s == sub {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Unsubscribe releases the subscription. Safe to call more than once and
// from inside the handler.
//
// Once it returns, no Publish that starts afterwards reaches the handler,
// and neither does any later delivery of a publish running on the calling
// goroutine. A Publish already running on another goroutine may have
// passed the subscriber's check and can still call the handler once.
// Unsubscribe does not wait for it, because a handler that unsubscribes
// itself would then wait on its own delivery.
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	s.active.Store(false)
	release, stop := s.release, s.stop
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	if release != nil {
		release()
	}
}

// Active reports whether the subscription still receives events.
func (s *Subscription) Active() bool {
	return s.active.Load()
}
