package command

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/devdeck/internal/message"
)

func TestNewBaseCommand(t *testing.T) {
	a := NewBaseCommand(CmdSendMessage, SourceUser)
	b := NewBaseCommand(CmdSendMessage, SourceUser)

	require.NotEmpty(t, a.ID())
	require.NotEqual(t, a.ID(), b.ID())
	require.Equal(t, CmdSendMessage, a.Type())
	require.Equal(t, SourceUser, a.Source())
	require.False(t, a.CreatedAt().IsZero())
	require.NoError(t, a.Validate())
}

func TestBaseCommand_TraceID(t *testing.T) {
	base := NewBaseCommand(CmdSnapshot, SourceInternal)
	require.Empty(t, base.TraceID())

	base.SetTraceID("abc123")
	require.Equal(t, "abc123", base.TraceID())
}

func TestSendMessageCommand_Validate(t *testing.T) {
	require.NoError(t, NewSendMessageCommand(SourceUser, "hi").Validate())
	require.Error(t, NewSendMessageCommand(SourceUser, "   ").Validate())
}

func TestPostMessageCommand_Validate(t *testing.T) {
	tests := []struct {
		name    string
		msg     message.Message
		wantErr bool
	}{
		{"valid system", message.System("Code saved successfully!"), false},
		{"empty content", message.System(""), true},
		{"bad sender", message.New("robot", "x"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewPostMessageCommand(SourceAdapter, tt.msg).Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestDeliverReplyCommand(t *testing.T) {
	cmd := NewDeliverReplyCommand("s1", "hello", nil)
	require.NoError(t, cmd.Validate())
	require.Equal(t, SourceInternal, cmd.Source())
	require.Contains(t, cmd.String(), "hello")

	failed := NewDeliverReplyCommand("s1", "", errors.New("boom"))
	require.Contains(t, failed.String(), "boom")

	require.Error(t, NewDeliverReplyCommand("", "x", nil).Validate())
}

func TestSelectSessionCommand_Validate(t *testing.T) {
	require.NoError(t, NewSelectSessionCommand(SourceUser, "s1").Validate())
	require.Error(t, NewSelectSessionCommand(SourceUser, "").Validate())
}

func TestStringTruncates(t *testing.T) {
	cmd := NewSendMessageCommand(SourceUser, strings.Repeat("x", 200))
	require.Contains(t, cmd.String(), "...")
	require.Less(t, len(cmd.String()), 80)
}
