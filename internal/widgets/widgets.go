// Package widgets implements the editor, shell and chart adapters that sit
// on the far side of the bus. Each adapter listens on exactly one input
// channel, keeps its own state, and announces state changes on a Changes
// broker for whichever UI is drawing it.
//
// Adapters start closed: until MarkReady is called only the most recent
// payload is kept, and it is applied when the adapter opens.
package widgets

import (
	"sync"

	"github.com/zjrosen/devdeck/internal/payload"
	"github.com/zjrosen/devdeck/internal/pubsub"
)

// Changed is the event type published on every adapter's Changes broker.
const Changed pubsub.EventType = "changed"

// Change names the adapter whose state changed.
type Change struct {
	Widget payload.Target
}

// gate holds back payloads until the adapter is ready, keeping only the last.
type gate[T any] struct {
	mu      sync.Mutex
	ready   bool
	pending *T
	apply   func(T)
}

func newGate[T any](apply func(T)) *gate[T] {
	return &gate[T]{apply: apply}
}

func (g *gate[T]) offer(v T) {
	g.mu.Lock()
	if !g.ready {
		g.pending = &v
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()
	g.apply(v)
}

func (g *gate[T]) open() {
	g.mu.Lock()
	if g.ready {
		g.mu.Unlock()
		return
	}
	g.ready = true
	p := g.pending
	g.pending = nil
	g.mu.Unlock()

	if p != nil {
		g.apply(*p)
	}
}

func (g *gate[T]) isReady() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready
}

func (g *gate[T]) hasPending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending != nil
}
