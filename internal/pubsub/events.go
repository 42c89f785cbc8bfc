// Package pubsub provides a generic, synchronous publish/subscribe broker
// and helpers that feed broker events into a Bubble Tea update loop.
package pubsub

import "time"

// EventType distinguishes events published on the same broker.
type EventType string

// Generic event types for brokers that do not define their own.
const (
	CreatedEvent EventType = "created"
	UpdatedEvent EventType = "updated"
)

// Event is one published value. Timestamp is set by the broker.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}
