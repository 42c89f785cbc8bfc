// Package message defines the chat message value shared by the bus, the
// session manager and every widget adapter.
package message

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
	SenderSystem    Sender = "system"
)

// String returns the string representation of the sender.
func (s Sender) String() string {
	return string(s)
}

// IsValid returns true if the sender is a recognized sender.
func (s Sender) IsValid() bool {
	switch s {
	case SenderUser, SenderAssistant, SenderSystem:
		return true
	default:
		return false
	}
}

// Message is a single chat entry. It is a value type: once built it is
// only ever copied, never edited in place.
type Message struct {
	ID        string    `json:"id" yaml:"id"`
	Content   string    `json:"content" yaml:"content"`
	Sender    Sender    `json:"sender" yaml:"sender"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// New creates a message with a fresh id stamped with the current time.
func New(sender Sender, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Content:   content,
		Sender:    sender,
		Timestamp: time.Now(),
	}
}

// User is shorthand for New(SenderUser, content).
func User(content string) Message { return New(SenderUser, content) }

// Assistant is shorthand for New(SenderAssistant, content).
func Assistant(content string) Message { return New(SenderAssistant, content) }

// System is shorthand for New(SenderSystem, content).
func System(content string) Message { return New(SenderSystem, content) }
