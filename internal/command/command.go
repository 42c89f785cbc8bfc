// Package command provides the foundational types for the workbench command
// pipeline. It defines the Command interface, CommandType constants, and the
// BaseCommand struct that every concrete command embeds.
package command

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Command represents an explicit intent entering the workbench.
// All commands must implement this interface to be processed by the FIFO processor.
type Command interface {
	// ID returns unique command identifier for tracing/correlation
	ID() string
	// Type returns the command type for routing to handlers
	Type() CommandType
	// Validate checks command preconditions before execution
	Validate() error
	// CreatedAt returns when command was created
	CreatedAt() time.Time
}

// CommandType identifies the kind of command for handler routing.
type CommandType string

const (
	// Chat Commands

	// CmdSendMessage records a user message and dispatches its directives.
	CmdSendMessage CommandType = "send_message"
	// CmdPostMessage records a message posted on the chat channel by an adapter.
	CmdPostMessage CommandType = "post_message"
	// CmdDeliverReply records the outcome of an assistant reply task.
	CmdDeliverReply CommandType = "deliver_reply"

	// Session Lifecycle Commands

	// CmdRequestNewChat opens the data-source picker.
	CmdRequestNewChat CommandType = "request_new_chat"
	// CmdConfirmNewChat creates a session from the picked data source.
	CmdConfirmNewChat CommandType = "confirm_new_chat"
	// CmdCancelNewChat closes the data-source picker.
	CmdCancelNewChat CommandType = "cancel_new_chat"
	// CmdSelectSession switches the active session.
	CmdSelectSession CommandType = "select_session"

	// Query Commands

	// CmdSnapshot returns a read-only view of the workbench state.
	CmdSnapshot CommandType = "snapshot"
)

// String returns the string representation of the CommandType.
func (ct CommandType) String() string {
	return string(ct)
}

// CommandSource identifies where the command originated.
type CommandSource string

const (
	// SourceUser indicates the command came from direct user input (TUI).
	SourceUser CommandSource = "user"
	// SourceAdapter indicates the command came from a widget adapter on the bus.
	SourceAdapter CommandSource = "adapter"
	// SourceRemote indicates the command came from the gateway or relay.
	SourceRemote CommandSource = "remote"
	// SourceInternal indicates the command was system-generated (e.g., a reply task).
	SourceInternal CommandSource = "internal"
)

// String returns the string representation of the CommandSource.
func (cs CommandSource) String() string {
	return string(cs)
}

// BaseCommand provides common fields for all commands.
// Concrete command types should embed this struct.
type BaseCommand struct {
	id          string
	cmdType     CommandType
	createdAt   time.Time
	source      CommandSource
	traceID     string
	spanContext trace.SpanContext
}

// NewBaseCommand creates a BaseCommand with a generated UUID and current timestamp.
func NewBaseCommand(cmdType CommandType, source CommandSource) BaseCommand {
	return BaseCommand{
		id:        uuid.New().String(),
		cmdType:   cmdType,
		createdAt: time.Now(),
		source:    source,
	}
}

// ID returns the unique command identifier.
func (b *BaseCommand) ID() string {
	return b.id
}

// Type returns the command type for handler routing.
func (b *BaseCommand) Type() CommandType {
	return b.cmdType
}

// CreatedAt returns when the command was created.
func (b *BaseCommand) CreatedAt() time.Time {
	return b.createdAt
}

// Source returns the origin of this command.
func (b *BaseCommand) Source() CommandSource {
	return b.source
}

// TraceID returns the correlation ID for related commands.
// If a valid SpanContext is set, the trace ID is derived from it.
func (b *BaseCommand) TraceID() string {
	if b.spanContext.IsValid() {
		return b.spanContext.TraceID().String()
	}
	return b.traceID
}

// SetTraceID sets the correlation ID for command tracing.
func (b *BaseCommand) SetTraceID(traceID string) {
	b.traceID = traceID
}

// SpanContext returns the OpenTelemetry span context for trace propagation.
func (b *BaseCommand) SpanContext() trace.SpanContext {
	return b.spanContext
}

// SetSpanContext sets the OpenTelemetry span context for trace propagation.
func (b *BaseCommand) SetSpanContext(sc trace.SpanContext) {
	b.spanContext = sc
}

// Validate is a no-op for BaseCommand. Concrete commands should override this.
func (b *BaseCommand) Validate() error {
	return nil
}

// CommandResult contains the outcome of command execution.
type CommandResult struct {
	// Success indicates whether the command executed successfully.
	Success bool
	// Events contains events to emit (for UI updates, etc.).
	Events []any
	// FollowUp contains commands to enqueue after the current one.
	FollowUp []Command
	// Error contains the error if Success is false.
	Error error
	// Data contains optional result data for the caller.
	Data any
}

// ErrQueueFull is returned when the command queue has reached capacity.
var ErrQueueFull = errors.New("command queue is full")
