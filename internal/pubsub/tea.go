package pubsub

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

const defaultBufferSize = 64

// ListenCmd creates a Bubble Tea command that listens for events on a channel.
// Returns the event as a tea.Msg when received.
// Returns nil if the context is cancelled or the channel is closed.
func ListenCmd[T any](ctx context.Context, ch <-chan Event[T]) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil // Channel closed
			}
			return event
		}
	}
}

// ContinuousListener maintains subscription state for the Bubble Tea update loop.
// Brokers deliver synchronously, so the listener parks events in a bounded
// buffer that the update loop drains one Listen at a time.
type ContinuousListener[T any] struct {
	ctx context.Context
	ch  chan Event[T]
	sub *Subscription
}

// NewContinuousListener creates a new listener that subscribes to the broker.
// The subscription is automatically cleaned up when the context is cancelled.
func NewContinuousListener[T any](ctx context.Context, broker *Broker[T]) *ContinuousListener[T] {
	return NewContinuousListenerWithBuffer(ctx, broker, defaultBufferSize)
}

// NewContinuousListenerWithBuffer is NewContinuousListener with a custom buffer size.
func NewContinuousListenerWithBuffer[T any](ctx context.Context, broker *Broker[T], size int) *ContinuousListener[T] {
	l := &ContinuousListener[T]{
		ctx: ctx,
		ch:  make(chan Event[T], size),
	}
	l.sub = broker.Subscribe(ctx, func(event Event[T]) {
		select {
		case l.ch <- event:
			// Delivered
		default:
			// Buffer full - drop to prevent blocking the publisher
		}
	})
	return l
}

// Listen returns a tea.Cmd that waits for the next event.
// Call this method in your Update function after handling an event
// to continue receiving events.
func (l *ContinuousListener[T]) Listen() tea.Cmd {
	return ListenCmd(l.ctx, l.ch)
}

// Close releases the underlying subscription.
func (l *ContinuousListener[T]) Close() {
	l.sub.Unsubscribe()
}
