// Package app contains the root Bubble Tea model: a session sidebar, the
// chat pane and the editor, shell and chart widgets, all driven by the
// workbench.
package app

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/devdeck/internal/keys"
	"github.com/zjrosen/devdeck/internal/log"
	"github.com/zjrosen/devdeck/internal/message"
	"github.com/zjrosen/devdeck/internal/pubsub"
	"github.com/zjrosen/devdeck/internal/sessions"
	"github.com/zjrosen/devdeck/internal/ui/markdown"
	"github.com/zjrosen/devdeck/internal/ui/picker"
	"github.com/zjrosen/devdeck/internal/ui/toaster"
	"github.com/zjrosen/devdeck/internal/widgets"
	"github.com/zjrosen/devdeck/internal/workbench"
)

const (
	// chatBuffer is large enough for a session switch to replay a long
	// history without dropping events.
	chatBuffer   = 1024
	logBuffer    = 256
	maxLogLines  = 200
	sidebarWidth = 26
)

type pane int

const (
	paneChat pane = iota
	paneEditor
	paneShell
	paneCount
)

// Config wires the model to its collaborators.
type Config struct {
	Workbench *workbench.Workbench
	Editor    *widgets.Editor
	Shell     *widgets.Shell
	Chart     *widgets.Chart

	// MarkdownStyle is passed to glamour: "dark", "light" or "auto".
	MarkdownStyle string
	// ConfigPath is where UI preferences (chart kind) are saved. Empty
	// disables saving.
	ConfigPath string
	// Debug enables the log pane (ctrl+x).
	Debug bool
}

// Model is the root application state.
type Model struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc

	keys     keys.KeyMap
	help     help.Model
	showHelp bool

	focus      pane
	input      textinput.Model
	shellInput textinput.Model
	editor     textarea.Model

	messages []message.Message
	snapshot workbench.Snapshot
	picker   *picker.Model
	toaster  toaster.Model

	md      *markdown.Renderer
	mdWidth int

	chatListener   *pubsub.ContinuousListener[message.Message]
	eventListener  *pubsub.ContinuousListener[any]
	editorListener *pubsub.ContinuousListener[widgets.Change]
	shellListener  *pubsub.ContinuousListener[widgets.Change]
	chartListener  *pubsub.ContinuousListener[widgets.Change]

	logListener *log.LogListener
	logLines    []string
	showLog     bool

	width  int
	height int
}

// New creates the model and subscribes it to the workbench and widgets.
// Close releases the subscriptions.
func New(cfg Config) Model {
	ctx, cancel := context.WithCancel(context.Background())
	wb := cfg.Workbench

	input := textinput.New()
	input.Placeholder = "Message, or @code / @shell / @chart ..."
	input.Prompt = "› "
	input.Focus()

	shellInput := textinput.New()
	shellInput.Prompt = "$ "

	editor := textarea.New()
	editor.ShowLineNumbers = true
	editor.SetValue(cfg.Editor.Content())

	m := Model{
		cfg:            cfg,
		ctx:            ctx,
		cancel:         cancel,
		keys:           keys.DefaultKeyMap(),
		help:           help.New(),
		input:          input,
		shellInput:     shellInput,
		editor:         editor,
		toaster:        toaster.New(),
		chatListener:   pubsub.NewContinuousListenerWithBuffer(ctx, wb.Bus().Chat(), chatBuffer),
		eventListener:  pubsub.NewContinuousListener(ctx, wb.Events()),
		editorListener: pubsub.NewContinuousListener(ctx, cfg.Editor.Changes()),
		shellListener:  pubsub.NewContinuousListener(ctx, cfg.Shell.Changes()),
		chartListener:  pubsub.NewContinuousListener(ctx, cfg.Chart.Changes()),
	}
	if cfg.Debug {
		m.logListener = log.NewListener(ctx)
	}
	return m
}

// Init implements tea.Model. It loads the first snapshot and opens the
// widgets for traffic that was buffered while the UI started.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.chatListener.Listen(),
		m.eventListener.Listen(),
		m.editorListener.Listen(),
		m.shellListener.Listen(),
		m.chartListener.Listen(),
		snapshotCmd(m.ctx, m.cfg.Workbench),
		markReadyCmd(m.cfg),
		textinput.Blink,
	}
	if m.logListener != nil {
		cmds = append(cmds, m.logListener.Listen())
	}
	return tea.Batch(cmds...)
}

// Close releases every subscription held by the model.
func (m Model) Close() {
	m.cancel()
	m.chatListener.Close()
	m.eventListener.Close()
	m.editorListener.Close()
	m.shellListener.Close()
	m.chartListener.Close()
	if m.logListener != nil {
		m.logListener.Close()
	}
}

// Messages returns the visible chat log.
func (m Model) Messages() []message.Message {
	return m.messages
}

// Snapshot returns the last workbench snapshot the model received.
func (m Model) Snapshot() workbench.Snapshot {
	return m.snapshot
}

// Picking reports whether the data-source picker is open.
func (m Model) Picking() bool {
	return m.picker != nil
}

func (m Model) awaiting() bool {
	return m.snapshot.State == sessions.StateAwaitingDataSourceChoice
}
