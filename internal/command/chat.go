package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zjrosen/devdeck/internal/message"
)

// ===========================================================================
// Chat Commands
// ===========================================================================

// SendMessageCommand carries text typed by the user.
type SendMessageCommand struct {
	*BaseCommand
	Text string
}

// NewSendMessageCommand creates a new SendMessageCommand.
func NewSendMessageCommand(source CommandSource, text string) *SendMessageCommand {
	base := NewBaseCommand(CmdSendMessage, source)
	return &SendMessageCommand{BaseCommand: &base, Text: text}
}

// Validate rejects blank input.
func (c *SendMessageCommand) Validate() error {
	if strings.TrimSpace(c.Text) == "" {
		return errors.New("text is required")
	}
	return nil
}

// String returns a readable representation of the command.
func (c *SendMessageCommand) String() string {
	return fmt.Sprintf("SendMessage{text=%q}", truncate(c.Text, 50))
}

// PostMessageCommand records a message some adapter published on chat.
type PostMessageCommand struct {
	*BaseCommand
	Message message.Message
}

// NewPostMessageCommand creates a new PostMessageCommand.
func NewPostMessageCommand(source CommandSource, msg message.Message) *PostMessageCommand {
	base := NewBaseCommand(CmdPostMessage, source)
	return &PostMessageCommand{BaseCommand: &base, Message: msg}
}

// Validate checks the message has a known sender and content.
func (c *PostMessageCommand) Validate() error {
	if !c.Message.Sender.IsValid() {
		return fmt.Errorf("invalid sender %q", c.Message.Sender)
	}
	if c.Message.Content == "" {
		return errors.New("content is required")
	}
	return nil
}

// String returns a readable representation of the command.
func (c *PostMessageCommand) String() string {
	return fmt.Sprintf("PostMessage{sender=%s, content=%q}", c.Message.Sender, truncate(c.Message.Content, 50))
}

// DeliverReplyCommand carries the result of a responder call back into the
// processor. Err non-nil means the call failed.
type DeliverReplyCommand struct {
	*BaseCommand
	SessionID string
	Reply     string
	Err       error
}

// NewDeliverReplyCommand creates a new DeliverReplyCommand.
func NewDeliverReplyCommand(sessionID, reply string, err error) *DeliverReplyCommand {
	base := NewBaseCommand(CmdDeliverReply, SourceInternal)
	return &DeliverReplyCommand{BaseCommand: &base, SessionID: sessionID, Reply: reply, Err: err}
}

// Validate checks that SessionID is provided.
func (c *DeliverReplyCommand) Validate() error {
	if c.SessionID == "" {
		return errors.New("session_id is required")
	}
	return nil
}

// String returns a readable representation of the command.
func (c *DeliverReplyCommand) String() string {
	if c.Err != nil {
		return fmt.Sprintf("DeliverReply{session=%s, err=%v}", c.SessionID, c.Err)
	}
	return fmt.Sprintf("DeliverReply{session=%s, reply=%q}", c.SessionID, truncate(c.Reply, 50))
}

// truncate shortens a string to maxLen bytes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
