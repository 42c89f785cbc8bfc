// Package sessions implements the chat-session state machine: which sessions
// exist, which one is active, and whether a new-chat flow is in progress.
//
// A Manager is not safe for concurrent use. It is owned by a single
// goroutine (the workbench command processor) and every method runs to
// completion before the next one starts.
package sessions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"

	"github.com/zjrosen/devdeck/internal/log"
	"github.com/zjrosen/devdeck/internal/message"
	"github.com/zjrosen/devdeck/internal/sessions/domain"
)

// State is the state of the session lifecycle machine.
type State string

const (
	// StateIdle means a session is active and no new-chat flow is open.
	StateIdle State = "idle"

	// StateAwaitingDataSourceChoice means the user asked for a new chat and
	// has not yet confirmed or cancelled a data source.
	StateAwaitingDataSourceChoice State = "awaiting_data_source_choice"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

var (
	// ErrInvalidTransition is returned when an operation is not allowed in
	// the current state.
	ErrInvalidTransition = errors.New("invalid session transition")

	// ErrSessionNotFound is returned when no session has the requested ID.
	ErrSessionNotFound = domain.ErrSessionNotFound

	// ErrNoDataSource is returned when a new chat is confirmed without a
	// data source.
	ErrNoDataSource = errors.New("no data source selected")
)

const (
	// DefaultTitle is the title of the session seeded at startup.
	DefaultTitle = "New Chat"

	// DefaultWelcome greets the user in the seeded session.
	DefaultWelcome = "Hello! I'm your AI assistant. How can I help you today? " +
		"You can use @code, @shell, or @chart commands to interact with the development environment."

	defaultPreviewWidth = 48
)

// DefaultWidgets are enabled in the seeded session.
var DefaultWidgets = []string{"chat", "code", "shell", "chart"}

// Welcome returns the greeting appended to a session created for source.
func Welcome(source string) string {
	return fmt.Sprintf("Connected to %s. How can I help you today? "+
		"You can use @code, @shell, or @chart commands to interact with the widgets.", source)
}

// Manager owns the session list, the active session pointer and the
// lifecycle state.
type Manager struct {
	repo         domain.SessionRepository
	state        State
	activeID     string
	pending      map[string]int
	newID        func() string
	previewWidth int
}

type options struct {
	repo         domain.SessionRepository
	newID        func() string
	previewWidth int
	samples      []*domain.Session
}

// Option configures a Manager.
type Option func(*options)

// WithRepository sets the session store. Defaults to a MemoryRepository.
func WithRepository(repo domain.SessionRepository) Option {
	return func(o *options) {
		o.repo = repo
	}
}

// WithIDGenerator overrides how new session ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		o.newID = fn
	}
}

// WithPreviewWidth sets the maximum display width of session previews.
func WithPreviewWidth(width int) Option {
	return func(o *options) {
		if width > 0 {
			o.previewWidth = width
		}
	}
}

// WithSamples appends seeded sample sessions below the default one.
func WithSamples(samples ...*domain.Session) Option {
	return func(o *options) {
		o.samples = append(o.samples, samples...)
	}
}

// NewManager creates a Manager in StateIdle with one default session active.
func NewManager(opts ...Option) *Manager {
	o := options{
		newID:        uuid.NewString,
		previewWidth: defaultPreviewWidth,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.repo == nil {
		o.repo = NewMemoryRepository()
	}

	m := &Manager{
		repo:         o.repo,
		state:        StateIdle,
		pending:      make(map[string]int),
		newID:        o.newID,
		previewWidth: o.previewWidth,
	}

	def := domain.NewSession(m.newID(), DefaultTitle, DefaultWidgets, nil)
	def.Append(message.Assistant(DefaultWelcome))
	if err := m.repo.Insert(def); err != nil {
		log.ErrorErr(log.CatSession, "seeding default session failed", err)
	}
	m.activeID = def.ID()

	for _, s := range o.samples {
		if err := m.repo.Append(s); err != nil {
			log.Warn(log.CatSession, "skipping sample session", "id", s.ID(), "error", err)
		}
	}
	return m
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return m.state
}

// ActiveID returns the id of the active session.
func (m *Manager) ActiveID() string {
	return m.activeID
}

// Active returns the active session.
func (m *Manager) Active() *domain.Session {
	s, err := m.repo.FindByID(m.activeID)
	if err != nil {
		// The active id is only ever set to a stored session.
		log.ErrorErr(log.CatSession, "active session missing", err, "id", m.activeID)
		return nil
	}
	return s
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*domain.Session, error) {
	return m.repo.FindByID(id)
}

// List returns all sessions, newest first.
func (m *Manager) List() []*domain.Session {
	return m.repo.List()
}

// RequestNewChat opens the new-chat flow. Idle -> AwaitingDataSourceChoice.
func (m *Manager) RequestNewChat() error {
	if m.state != StateIdle {
		return fmt.Errorf("request new chat in %s: %w", m.state, ErrInvalidTransition)
	}
	m.state = StateAwaitingDataSourceChoice
	log.Debug(log.CatSession, "new chat requested")
	return nil
}

// CancelNewChat closes the new-chat flow without creating anything.
// AwaitingDataSourceChoice -> Idle.
func (m *Manager) CancelNewChat() error {
	if m.state != StateAwaitingDataSourceChoice {
		return fmt.Errorf("cancel new chat in %s: %w", m.state, ErrInvalidTransition)
	}
	m.state = StateIdle
	log.Debug(log.CatSession, "new chat cancelled")
	return nil
}

// ConfirmNewChat creates a session for ref with the given widgets, puts it
// at the head of the list and makes it active. AwaitingDataSourceChoice ->
// Idle. On error nothing changes.
func (m *Manager) ConfirmNewChat(ref domain.DataSourceRef, widgets []string) (*domain.Session, error) {
	if m.state != StateAwaitingDataSourceChoice {
		return nil, fmt.Errorf("confirm new chat in %s: %w", m.state, ErrInvalidTransition)
	}
	if ref.IsZero() {
		return nil, fmt.Errorf("confirm new chat: %w", ErrNoDataSource)
	}

	name := ref.Name
	if name == "" {
		name = ref.ID
	}
	session := domain.NewSession(m.newID(), name+" Chat", widgets, &ref)
	session.SetPreview("Connected to " + name)
	session.Append(message.Assistant(Welcome(name)))

	if err := m.repo.Insert(session); err != nil {
		return nil, fmt.Errorf("confirm new chat: %w", err)
	}
	m.activeID = session.ID()
	m.state = StateIdle
	log.Info(log.CatSession, "session created", "id", session.ID(), "source", ref.ID, "widgets", len(session.Widgets()))
	return session, nil
}

// SelectSession makes id the active session. It reports whether the active
// session changed. Selecting the active session is a no-op.
func (m *Manager) SelectSession(id string) (bool, error) {
	if m.state != StateIdle {
		return false, fmt.Errorf("select session in %s: %w", m.state, ErrInvalidTransition)
	}
	if _, err := m.repo.FindByID(id); err != nil {
		return false, fmt.Errorf("select session: %w", err)
	}
	if id == m.activeID {
		return false, nil
	}
	log.Debug(log.CatSession, "session selected", "from", m.activeID, "to", id)
	m.activeID = id
	return true, nil
}

// Append adds msg to the stored history of session id. A user message also
// becomes the session preview.
func (m *Manager) Append(id string, msg message.Message) error {
	session, err := m.repo.FindByID(id)
	if err != nil {
		return fmt.Errorf("append: %w", err)
	}
	session.Append(msg)
	if msg.Sender == message.SenderUser {
		session.SetPreview(m.preview(msg.Content))
	}
	return nil
}

// AppendActive adds msg to the active session.
func (m *Manager) AppendActive(msg message.Message) error {
	return m.Append(m.activeID, msg)
}

// BeginReply records an outstanding assistant reply for session id.
func (m *Manager) BeginReply(id string) {
	m.pending[id]++
}

// EndReply records that one outstanding reply for session id resolved.
func (m *Manager) EndReply(id string) {
	if m.pending[id] <= 1 {
		delete(m.pending, id)
		return
	}
	m.pending[id]--
}

// Awaiting reports whether session id has a reply outstanding.
func (m *Manager) Awaiting(id string) bool {
	return m.pending[id] > 0
}

// PendingReplies returns the number of outstanding replies for session id.
func (m *Manager) PendingReplies(id string) int {
	return m.pending[id]
}

func (m *Manager) preview(content string) string {
	flat := strings.Join(strings.Fields(content), " ")
	return runewidth.Truncate(flat, m.previewWidth, "…")
}
