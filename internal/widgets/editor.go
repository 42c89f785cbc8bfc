package widgets

import (
	"context"
	"fmt"
	"sync"

	"github.com/zjrosen/devdeck/internal/bus"
	"github.com/zjrosen/devdeck/internal/log"
	"github.com/zjrosen/devdeck/internal/message"
	"github.com/zjrosen/devdeck/internal/payload"
	"github.com/zjrosen/devdeck/internal/pubsub"
)

const (
	// DefaultEditorContent is shown before any code arrives.
	DefaultEditorContent = "// Start coding here"
	// DefaultEditorLanguage is the language until content says otherwise.
	DefaultEditorLanguage = "javascript"
	// SavedNotice is posted to chat when the editor content is saved.
	SavedNotice = "Code saved successfully!"
)

// EditorLanguages lists the languages the editor can be switched to.
var EditorLanguages = []string{"javascript", "typescript", "python", "html", "json"}

// Editor is the code editor adapter. It replaces its content with each
// editor payload and keeps the current language unless the payload names one.
type Editor struct {
	bus     *bus.Bus
	gate    *gate[payload.Editor]
	sub     *pubsub.Subscription
	changes *pubsub.Broker[Change]

	mu       sync.RWMutex
	content  string
	language string
}

// NewEditor subscribes a new editor to the editor channel.
func NewEditor(ctx context.Context, b *bus.Bus) *Editor {
	e := &Editor{
		bus:      b,
		changes:  pubsub.NewBroker[Change](),
		content:  DefaultEditorContent,
		language: DefaultEditorLanguage,
	}
	e.gate = newGate(e.apply)
	e.sub = b.Editor().Subscribe(ctx, func(ev pubsub.Event[payload.Editor]) {
		e.gate.offer(ev.Payload)
	})
	return e
}

func (e *Editor) apply(p payload.Editor) {
	e.mu.Lock()
	e.content = p.Content
	if p.Language != "" {
		e.language = p.Language
	}
	lang := e.language
	e.mu.Unlock()

	log.Debug(log.CatWidget, "editor updated", "language", lang, "bytes", len(p.Content))
	e.notify()
}

// MarkReady opens the editor, applying the last payload received while closed.
func (e *Editor) MarkReady() {
	e.gate.open()
}

// Ready reports whether MarkReady has been called.
func (e *Editor) Ready() bool {
	return e.gate.isReady()
}

// Content returns the current editor text.
func (e *Editor) Content() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.content
}

// Language returns the current language.
func (e *Editor) Language() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.language
}

// SetContent replaces the text as if the user had typed it.
func (e *Editor) SetContent(content string) {
	e.mu.Lock()
	e.content = content
	e.mu.Unlock()
	e.notify()
}

// SetLanguage switches the editor language.
func (e *Editor) SetLanguage(lang string) {
	e.mu.Lock()
	e.language = lang
	e.mu.Unlock()
	e.notify()
}

// Run sends a status line to the shell and the code to the execution
// result channel.
func (e *Editor) Run() {
	e.mu.RLock()
	code, lang := e.content, e.language
	e.mu.RUnlock()

	e.bus.Shell().Publish(pubsub.CreatedEvent, payload.Shell{Command: RunningLine(lang)})
	e.bus.ExecutionResult().Publish(pubsub.CreatedEvent, code)
}

// Save posts a confirmation to chat.
func (e *Editor) Save() {
	e.bus.Post(message.System(SavedNotice))
}

// Changes publishes after every content or language change.
func (e *Editor) Changes() *pubsub.Broker[Change] {
	return e.changes
}

// Close releases the editor's subscription.
func (e *Editor) Close() {
	e.sub.Unsubscribe()
	e.changes.Close()
}

func (e *Editor) notify() {
	e.changes.Publish(Changed, Change{Widget: payload.TargetEditor})
}

// RunningLine is the shell status line for running code in lang.
func RunningLine(lang string) string {
	return fmt.Sprintf("Running %s code...", lang)
}
