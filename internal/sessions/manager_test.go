package sessions

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/devdeck/internal/message"
	"github.com/zjrosen/devdeck/internal/sessions/domain"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	return NewManager(append([]Option{WithIDGenerator(sequentialIDs())}, opts...)...)
}

var mysql = domain.DataSourceRef{ID: "mysql", Name: "MySQL", Category: "Databases"}

func TestNewManager_SeedsDefaultSession(t *testing.T) {
	m := newTestManager(t)

	require.Equal(t, StateIdle, m.State())
	require.Equal(t, "id-1", m.ActiveID())
	require.Len(t, m.List(), 1)

	active := m.Active()
	require.Equal(t, DefaultTitle, active.Title())
	require.Equal(t, DefaultWidgets, active.Widgets())
	msgs := active.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, message.SenderAssistant, msgs[0].Sender)
}

func TestNewManager_WithSamples(t *testing.T) {
	m := newTestManager(t, WithSamples(SampleSessions(time.Now())...))

	list := m.List()
	require.Len(t, list, 1+len(samples))
	require.Equal(t, "id-1", list[0].ID(), "default session stays on top")
	require.Equal(t, "Angular Component Help", list[1].Title())
	require.Equal(t, "id-1", m.ActiveID())
}

func TestRequestAndCancelNewChat(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.RequestNewChat())
	require.Equal(t, StateAwaitingDataSourceChoice, m.State())
	require.Len(t, m.List(), 1, "no session mutation yet")

	require.NoError(t, m.CancelNewChat())
	require.Equal(t, StateIdle, m.State())
	require.Len(t, m.List(), 1)
	require.Equal(t, "id-1", m.ActiveID())
}

func TestInvalidTransitions(t *testing.T) {
	m := newTestManager(t)

	err := m.CancelNewChat()
	require.True(t, errors.Is(err, ErrInvalidTransition))

	_, err = m.ConfirmNewChat(mysql, nil)
	require.True(t, errors.Is(err, ErrInvalidTransition))

	require.NoError(t, m.RequestNewChat())
	err = m.RequestNewChat()
	require.True(t, errors.Is(err, ErrInvalidTransition))

	_, err = m.SelectSession("id-1")
	require.True(t, errors.Is(err, ErrInvalidTransition))
	require.Equal(t, StateAwaitingDataSourceChoice, m.State())
}

func TestConfirmNewChat(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.AppendActive(message.User("first question")))
	before := m.Active().Messages()

	require.NoError(t, m.RequestNewChat())
	session, err := m.ConfirmNewChat(mysql, []string{"chat", "code"})
	require.NoError(t, err)

	require.Equal(t, StateIdle, m.State())
	require.Equal(t, session.ID(), m.ActiveID())
	require.Equal(t, "id-2", session.ID())
	require.Equal(t, "MySQL Chat", session.Title())
	require.Equal(t, "Connected to MySQL", session.LastPreview())
	require.Equal(t, &mysql, session.DataSource())
	require.Equal(t, []string{"chat", "code"}, session.Widgets())

	msgs := session.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, message.SenderAssistant, msgs[0].Sender)
	require.Equal(t, Welcome("MySQL"), msgs[0].Content)

	list := m.List()
	require.Equal(t, session.ID(), list[0].ID(), "new session at head")

	// Previous session is untouched and still selectable.
	changed, err := m.SelectSession("id-1")
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, before, m.Active().Messages())
}

func TestConfirmNewChat_NoDataSource(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.RequestNewChat())

	_, err := m.ConfirmNewChat(domain.DataSourceRef{}, []string{"chat"})
	require.True(t, errors.Is(err, ErrNoDataSource))
	require.Equal(t, StateAwaitingDataSourceChoice, m.State(), "rejection leaves state unchanged")
	require.Len(t, m.List(), 1)
	require.Equal(t, "id-1", m.ActiveID())
}

func TestSelectSession(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.RequestNewChat())
	_, err := m.ConfirmNewChat(mysql, nil)
	require.NoError(t, err)

	t.Run("unknown id leaves active unchanged", func(t *testing.T) {
		changed, err := m.SelectSession("missing")
		require.True(t, errors.Is(err, ErrSessionNotFound))
		require.False(t, changed)
		require.Equal(t, "id-2", m.ActiveID())
	})

	t.Run("same id is a no-op", func(t *testing.T) {
		changed, err := m.SelectSession("id-2")
		require.NoError(t, err)
		require.False(t, changed)
	})

	t.Run("switch does not touch history", func(t *testing.T) {
		left := m.Active().Messages()
		changed, err := m.SelectSession("id-1")
		require.NoError(t, err)
		require.True(t, changed)

		other, err := m.Get("id-2")
		require.NoError(t, err)
		require.Equal(t, left, other.Messages())
	})
}

func TestAppend_PreviewTracksUserMessages(t *testing.T) {
	m := newTestManager(t, WithPreviewWidth(10))

	require.NoError(t, m.AppendActive(message.User("short")))
	require.Equal(t, "short", m.Active().LastPreview())

	require.NoError(t, m.AppendActive(message.Assistant("assistant text does not move the preview")))
	require.Equal(t, "short", m.Active().LastPreview())

	require.NoError(t, m.AppendActive(message.User("a much\nlonger question here")))
	preview := m.Active().LastPreview()
	require.True(t, strings.HasSuffix(preview, "…"))
	require.NotContains(t, preview, "\n")
}

func TestAppend_UnknownSession(t *testing.T) {
	m := newTestManager(t)
	err := m.Append("nope", message.System("x"))
	require.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestReplyBookkeeping(t *testing.T) {
	m := newTestManager(t)
	id := m.ActiveID()

	require.False(t, m.Awaiting(id))
	m.BeginReply(id)
	m.BeginReply(id)
	require.True(t, m.Awaiting(id))
	require.Equal(t, 2, m.PendingReplies(id))

	m.EndReply(id)
	require.True(t, m.Awaiting(id))
	m.EndReply(id)
	require.False(t, m.Awaiting(id))

	m.EndReply(id)
	require.Zero(t, m.PendingReplies(id), "extra EndReply does not go negative")
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{time.Hour, "Today"},
		{26 * time.Hour, "Yesterday"},
		{3 * 24 * time.Hour, "3 days ago"},
		{10 * 24 * time.Hour, "Jun 5, 2024"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			require.Equal(t, tt.want, FormatAge(now.Add(-tt.ago), now))
		})
	}
}

func TestMemoryRepository_Duplicate(t *testing.T) {
	repo := NewMemoryRepository()
	s := domain.NewSession("x", "X", nil, nil)

	require.NoError(t, repo.Insert(s))
	require.True(t, errors.Is(repo.Insert(s), domain.ErrDuplicateSession))
	require.True(t, errors.Is(repo.Append(s), domain.ErrDuplicateSession))
	require.Equal(t, 1, repo.Len())
}
