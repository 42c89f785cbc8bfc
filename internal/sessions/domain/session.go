// Package domain provides the pure domain layer for chat sessions with no
// infrastructure dependencies.
//
// It defines:
//   - the Session entity with encapsulated state and behavior
//   - the DataSourceRef value a session was created from
//   - the SessionRepository interface for storage abstraction
//   - domain error values
package domain

import (
	"errors"
	"slices"
	"time"

	"github.com/zjrosen/devdeck/internal/message"
)

var (
	// ErrSessionNotFound is returned when no session has the requested ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrDuplicateSession is returned when a session ID is already stored.
	ErrDuplicateSession = errors.New("session already exists")
)

// DataSourceRef points at the catalog entry a session was created from.
type DataSourceRef struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
}

// IsZero returns true if the reference names no data source.
func (r DataSourceRef) IsZero() bool {
	return r.ID == "" && r.Name == ""
}

// Session represents an isolated conversation with its own message history
// and widget configuration. All fields are unexported to enforce
// encapsulation; use the constructors and getters to access data.
type Session struct {
	id          string
	title       string
	createdAt   time.Time
	lastPreview string
	messages    []message.Message
	widgets     []string
	dataSource  *DataSourceRef
}

// NewSession creates an empty Session with createdAt set to the current time.
// Duplicate widget ids are dropped, keeping the first occurrence.
func NewSession(id, title string, widgets []string, dataSource *DataSourceRef) *Session {
	return &Session{
		id:         id,
		title:      title,
		createdAt:  time.Now(),
		widgets:    dedupe(widgets),
		dataSource: copyRef(dataSource),
	}
}

// ReconstituteSession creates a Session from existing data, such as seeded
// sample history. All fields are provided explicitly.
func ReconstituteSession(
	id, title string,
	createdAt time.Time,
	lastPreview string,
	messages []message.Message,
	widgets []string,
	dataSource *DataSourceRef,
) *Session {
	return &Session{
		id:          id,
		title:       title,
		createdAt:   createdAt,
		lastPreview: lastPreview,
		messages:    slices.Clone(messages),
		widgets:     dedupe(widgets),
		dataSource:  copyRef(dataSource),
	}
}

// ID returns the opaque identifier of this session.
func (s *Session) ID() string {
	return s.id
}

// Title returns the display title of this session.
func (s *Session) Title() string {
	return s.title
}

// CreatedAt returns when this session was created.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// LastPreview returns the short preview shown in session lists.
func (s *Session) LastPreview() string {
	return s.lastPreview
}

// Messages returns a copy of the stored history in append order.
func (s *Session) Messages() []message.Message {
	return slices.Clone(s.messages)
}

// MessageCount returns the number of stored messages.
func (s *Session) MessageCount() int {
	return len(s.messages)
}

// LastMessage returns the most recent message, if any.
func (s *Session) LastMessage() (message.Message, bool) {
	if len(s.messages) == 0 {
		return message.Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// Widgets returns a copy of the enabled widget ids in selection order.
func (s *Session) Widgets() []string {
	return slices.Clone(s.widgets)
}

// HasWidget returns true if the widget id is enabled for this session.
func (s *Session) HasWidget(id string) bool {
	return slices.Contains(s.widgets, id)
}

// DataSource returns a copy of the data-source reference, or nil.
func (s *Session) DataSource() *DataSourceRef {
	return copyRef(s.dataSource)
}

// Append adds msg to the end of the history.
func (s *Session) Append(msg message.Message) {
	s.messages = append(s.messages, msg)
}

// SetPreview sets the list preview text.
func (s *Session) SetPreview(preview string) {
	s.lastPreview = preview
}

// SetTitle sets the display title.
func (s *Session) SetTitle(title string) {
	s.title = title
}

func copyRef(r *DataSourceRef) *DataSourceRef {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
