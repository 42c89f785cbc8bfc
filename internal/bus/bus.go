// Package bus owns the five named channels that connect the chat core to
// the widget adapters.
package bus

import (
	"github.com/zjrosen/devdeck/internal/log"
	"github.com/zjrosen/devdeck/internal/message"
	"github.com/zjrosen/devdeck/internal/payload"
	"github.com/zjrosen/devdeck/internal/pubsub"
)

// Name identifies a channel on the bus.
type Name string

const (
	Chat            Name = "chat"
	Editor          Name = "editor"
	Shell           Name = "shell"
	Visualization   Name = "visualization"
	ExecutionResult Name = "executionResult"
)

// Names lists every channel in a stable order.
func Names() []Name {
	return []Name{Chat, Editor, Shell, Visualization, ExecutionResult}
}

// String returns the string representation of the channel name.
func (n Name) String() string {
	return string(n)
}

// Chat event types.
const (
	// MessagePosted asks the core to record a message in the active session.
	MessagePosted pubsub.EventType = "posted"
	// MessageAppended announces a message the core recorded in the active log.
	MessageAppended pubsub.EventType = "appended"
	// LogCleared announces that the visible log is about to be repopulated.
	LogCleared pubsub.EventType = "cleared"
)

// Bus is an explicitly owned set of typed channels. Adapters hold a *Bus and
// release their own subscriptions; Close releases everything that remains.
type Bus struct {
	chat            *pubsub.Broker[message.Message]
	editor          *pubsub.Broker[payload.Editor]
	shell           *pubsub.Broker[payload.Shell]
	visualization   *pubsub.Broker[payload.Chart]
	executionResult *pubsub.Broker[string]
}

// New creates a bus with all five channels open.
func New() *Bus {
	return &Bus{
		chat:            pubsub.NewBroker[message.Message](),
		editor:          pubsub.NewBroker[payload.Editor](),
		shell:           pubsub.NewBroker[payload.Shell](),
		visualization:   pubsub.NewBroker[payload.Chart](),
		executionResult: pubsub.NewBroker[string](),
	}
}

// Chat carries message.Message values.
func (b *Bus) Chat() *pubsub.Broker[message.Message] { return b.chat }

// Editor carries editor payloads.
func (b *Bus) Editor() *pubsub.Broker[payload.Editor] { return b.editor }

// Shell carries shell command lines.
func (b *Bus) Shell() *pubsub.Broker[payload.Shell] { return b.shell }

// Visualization carries chart data.
func (b *Bus) Visualization() *pubsub.Broker[payload.Chart] { return b.visualization }

// ExecutionResult carries program output text.
func (b *Bus) ExecutionResult() *pubsub.Broker[string] { return b.executionResult }

// Post asks the core to record msg in the active session.
func (b *Bus) Post(msg message.Message) {
	b.chat.Publish(MessagePosted, msg)
}

// Route publishes p on the channel matching its target.
func (b *Bus) Route(p payload.Payload) {
	switch v := p.(type) {
	case payload.Editor:
		b.editor.Publish(pubsub.UpdatedEvent, v)
	case payload.Shell:
		b.shell.Publish(pubsub.CreatedEvent, v)
	case payload.Chart:
		b.visualization.Publish(pubsub.UpdatedEvent, v)
	}
	log.Debug(log.CatBus, "routed payload", "target", p.Target())
}

// Stats returns the subscriber count of every channel.
func (b *Bus) Stats() map[Name]int {
	return map[Name]int{
		Chat:            b.chat.SubscriberCount(),
		Editor:          b.editor.SubscriberCount(),
		Shell:           b.shell.SubscriberCount(),
		Visualization:   b.visualization.SubscriberCount(),
		ExecutionResult: b.executionResult.SubscriberCount(),
	}
}

// Close shuts every channel down.
func (b *Bus) Close() {
	b.chat.Close()
	b.editor.Close()
	b.shell.Close()
	b.visualization.Close()
	b.executionResult.Close()
	log.Debug(log.CatBus, "bus closed")
}
