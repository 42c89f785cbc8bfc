package workbench

import (
	"time"

	"github.com/zjrosen/devdeck/internal/message"
	"github.com/zjrosen/devdeck/internal/sessions"
	"github.com/zjrosen/devdeck/internal/sessions/domain"
)

// SessionSummary is a read-only view of one session for lists.
type SessionSummary struct {
	ID           string                `json:"id" yaml:"id"`
	Title        string                `json:"title" yaml:"title"`
	Preview      string                `json:"preview" yaml:"preview"`
	CreatedAt    time.Time             `json:"created_at" yaml:"created_at"`
	MessageCount int                   `json:"message_count" yaml:"message_count"`
	Widgets      []string              `json:"widgets" yaml:"widgets"`
	DataSource   *domain.DataSourceRef `json:"data_source,omitempty" yaml:"data_source,omitempty"`
	Pending      int                   `json:"pending" yaml:"pending"`
	Active       bool                  `json:"active" yaml:"active"`
}

// Snapshot is a consistent copy of the workbench state taken on the
// processor goroutine.
type Snapshot struct {
	State    sessions.State    `json:"state" yaml:"state"`
	ActiveID string            `json:"active_id" yaml:"active_id"`
	Sessions []SessionSummary  `json:"sessions" yaml:"sessions"`
	Messages []message.Message `json:"messages" yaml:"messages"`
}

// Active returns the summary of the active session.
func (s Snapshot) Active() (SessionSummary, bool) {
	for _, sum := range s.Sessions {
		if sum.ID == s.ActiveID {
			return sum, true
		}
	}
	return SessionSummary{}, false
}

func summarize(m *sessions.Manager, s *domain.Session) SessionSummary {
	return SessionSummary{
		ID:           s.ID(),
		Title:        s.Title(),
		Preview:      s.LastPreview(),
		CreatedAt:    s.CreatedAt(),
		MessageCount: s.MessageCount(),
		Widgets:      s.Widgets(),
		DataSource:   s.DataSource(),
		Pending:      m.PendingReplies(s.ID()),
		Active:       s.ID() == m.ActiveID(),
	}
}

func takeSnapshot(m *sessions.Manager) Snapshot {
	list := m.List()
	snap := Snapshot{
		State:    m.State(),
		ActiveID: m.ActiveID(),
		Sessions: make([]SessionSummary, 0, len(list)),
	}
	for _, s := range list {
		snap.Sessions = append(snap.Sessions, summarize(m, s))
	}
	if active := m.Active(); active != nil {
		snap.Messages = active.Messages()
	}
	return snap
}
