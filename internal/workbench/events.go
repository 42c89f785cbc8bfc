package workbench

import (
	"github.com/zjrosen/devdeck/internal/pubsub"
	"github.com/zjrosen/devdeck/internal/sessions"
)

// SessionsChanged is emitted when the session list or the active session
// changes.
type SessionsChanged struct {
	ActiveID string `json:"active_id"`
}

// StateChanged is emitted on every lifecycle transition.
type StateChanged struct {
	State sessions.State `json:"state"`
}

// ReplyPending is emitted when a session's count of outstanding assistant
// replies changes.
type ReplyPending struct {
	SessionID string `json:"session_id"`
	Pending   int    `json:"pending"`
}

// eventBusAdapter adapts pubsub.Broker to the processor.EventPublisher interface.
type eventBusAdapter struct {
	broker *pubsub.Broker[any]
}

// Publish implements processor.EventPublisher.
func (a *eventBusAdapter) Publish(eventType string, payload any) {
	a.broker.Publish(pubsub.EventType(eventType), payload)
}
