package message

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_AssignsUniqueIDs(t *testing.T) {
	a := User("hello")
	b := User("hello")

	require.NotEmpty(t, a.ID)
	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, SenderUser, a.Sender)
	require.Equal(t, "hello", a.Content)
	require.False(t, a.Timestamp.IsZero())
}

func TestSender_IsValid(t *testing.T) {
	tests := []struct {
		sender Sender
		want   bool
	}{
		{SenderUser, true},
		{SenderAssistant, true},
		{SenderSystem, true},
		{Sender("bot"), false},
		{Sender(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.sender), func(t *testing.T) {
			require.Equal(t, tt.want, tt.sender.IsValid())
		})
	}
}

func TestShorthands(t *testing.T) {
	require.Equal(t, SenderAssistant, Assistant("x").Sender)
	require.Equal(t, SenderSystem, System("x").Sender)
}
