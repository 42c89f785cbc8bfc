package command

import (
	"errors"
	"fmt"
	"strings"
)

// ===========================================================================
// Session Lifecycle Commands
// ===========================================================================

// RequestNewChatCommand opens the new-chat flow.
type RequestNewChatCommand struct {
	*BaseCommand
}

// NewRequestNewChatCommand creates a new RequestNewChatCommand.
func NewRequestNewChatCommand(source CommandSource) *RequestNewChatCommand {
	base := NewBaseCommand(CmdRequestNewChat, source)
	return &RequestNewChatCommand{BaseCommand: &base}
}

// CancelNewChatCommand closes the new-chat flow.
type CancelNewChatCommand struct {
	*BaseCommand
}

// NewCancelNewChatCommand creates a new CancelNewChatCommand.
func NewCancelNewChatCommand(source CommandSource) *CancelNewChatCommand {
	base := NewBaseCommand(CmdCancelNewChat, source)
	return &CancelNewChatCommand{BaseCommand: &base}
}

// ConfirmNewChatCommand names the catalog source and widget ids for a new
// session. Widget ids are resolved against the catalog by the handler.
type ConfirmNewChatCommand struct {
	*BaseCommand
	SourceID string
	Widgets  []string
}

// NewConfirmNewChatCommand creates a new ConfirmNewChatCommand.
func NewConfirmNewChatCommand(source CommandSource, sourceID string, widgets []string) *ConfirmNewChatCommand {
	base := NewBaseCommand(CmdConfirmNewChat, source)
	return &ConfirmNewChatCommand{BaseCommand: &base, SourceID: sourceID, Widgets: widgets}
}

// String returns a readable representation of the command.
func (c *ConfirmNewChatCommand) String() string {
	return fmt.Sprintf("ConfirmNewChat{source=%s, widgets=%s}", c.SourceID, strings.Join(c.Widgets, ","))
}

// SelectSessionCommand switches the active session.
type SelectSessionCommand struct {
	*BaseCommand
	SessionID string
}

// NewSelectSessionCommand creates a new SelectSessionCommand.
func NewSelectSessionCommand(source CommandSource, sessionID string) *SelectSessionCommand {
	base := NewBaseCommand(CmdSelectSession, source)
	return &SelectSessionCommand{BaseCommand: &base, SessionID: sessionID}
}

// Validate checks that SessionID is provided.
func (c *SelectSessionCommand) Validate() error {
	if c.SessionID == "" {
		return errors.New("session_id is required")
	}
	return nil
}

// String returns a readable representation of the command.
func (c *SelectSessionCommand) String() string {
	return fmt.Sprintf("SelectSession{session=%s}", c.SessionID)
}

// SnapshotCommand asks for a read-only copy of the workbench state.
type SnapshotCommand struct {
	*BaseCommand
}

// NewSnapshotCommand creates a new SnapshotCommand.
func NewSnapshotCommand(source CommandSource) *SnapshotCommand {
	base := NewBaseCommand(CmdSnapshot, source)
	return &SnapshotCommand{BaseCommand: &base}
}
