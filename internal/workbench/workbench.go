// Package workbench wires the chat core together behind a single owner.
//
// A Workbench runs one command processor goroutine. Every change to the
// session list, the active session pointer or a session's history happens
// on that goroutine, so bus deliveries and state transitions triggered by
// one command run to completion before the next command starts. Assistant
// replies and other slow work run on a task group and re-enter the
// processor as commands.
package workbench

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zjrosen/devdeck/internal/bus"
	"github.com/zjrosen/devdeck/internal/catalog"
	"github.com/zjrosen/devdeck/internal/command"
	"github.com/zjrosen/devdeck/internal/dispatch"
	"github.com/zjrosen/devdeck/internal/log"
	"github.com/zjrosen/devdeck/internal/message"
	"github.com/zjrosen/devdeck/internal/processor"
	"github.com/zjrosen/devdeck/internal/pubsub"
	"github.com/zjrosen/devdeck/internal/responder"
	"github.com/zjrosen/devdeck/internal/sessions"
	"github.com/zjrosen/devdeck/internal/sessions/domain"
	"github.com/zjrosen/devdeck/internal/tasks"
)

// ErrClosed is returned by operations on a closed workbench.
var ErrClosed = errors.New("workbench closed")

// deliverRetry is how long a finished reply waits before retrying a full
// command queue.
const deliverRetry = 5 * time.Millisecond

// CatalogSource supplies the catalog in effect when a session is created.
type CatalogSource interface {
	Current() *catalog.Catalog
}

type staticCatalog struct{ c *catalog.Catalog }

func (s staticCatalog) Current() *catalog.Catalog { return s.c }

type options struct {
	responder     responder.Responder
	catalog       CatalogSource
	replyToOrigin bool
	queueCapacity int
	taskLimit     int
	middleware    []processor.Middleware
	sessionOpts   []sessions.Option
}

// Option configures a Workbench.
type Option func(*options)

// WithResponder sets the assistant. Defaults to a Scripted responder with
// no latency.
func WithResponder(r responder.Responder) Option {
	return func(o *options) {
		o.responder = r
	}
}

// WithCatalog sets where data sources and widgets are looked up.
func WithCatalog(src CatalogSource) Option {
	return func(o *options) {
		o.catalog = src
	}
}

// WithReplyToOrigin delivers each assistant reply to the session that asked
// for it instead of the session active when the reply arrives.
func WithReplyToOrigin(enabled bool) Option {
	return func(o *options) {
		o.replyToOrigin = enabled
	}
}

// WithQueueCapacity sets the command queue size.
func WithQueueCapacity(n int) Option {
	return func(o *options) {
		o.queueCapacity = n
	}
}

// WithTaskLimit caps concurrently running background tasks.
func WithTaskLimit(n int) Option {
	return func(o *options) {
		o.taskLimit = n
	}
}

// WithMiddleware wraps every command handler. These run outside the
// built-in logging middleware.
func WithMiddleware(mw ...processor.Middleware) Option {
	return func(o *options) {
		o.middleware = append(o.middleware, mw...)
	}
}

// WithSessionOptions passes options to the session manager.
func WithSessionOptions(opts ...sessions.Option) Option {
	return func(o *options) {
		o.sessionOpts = append(o.sessionOpts, opts...)
	}
}

// Workbench is the single owner of the chat core.
type Workbench struct {
	bus        *bus.Bus
	events     *pubsub.Broker[any]
	processor  *processor.CommandProcessor
	tasks      *tasks.Group
	catalog    CatalogSource
	responder  responder.Responder
	chatSub    *pubsub.Subscription
	originMode bool

	// Owned by the processor goroutine.
	sessions   *sessions.Manager
	dispatcher *dispatch.Dispatcher
	queued     []any

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	started   atomic.Bool
	closeOnce sync.Once
}

// New builds a Workbench on b. Call Start before submitting anything.
func New(b *bus.Bus, opts ...Option) *Workbench {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.responder == nil {
		o.responder = responder.NewScripted(0)
	}
	if o.catalog == nil {
		o.catalog = staticCatalog{c: catalog.Default()}
	}

	ctx, cancel := context.WithCancel(context.Background())
	events := pubsub.NewBroker[any]()

	middleware := append([]processor.Middleware{}, o.middleware...)
	middleware = append(middleware,
		processor.NewLoggingMiddleware(),
		processor.NewCommandLogMiddleware(&eventBusAdapter{broker: events}),
		processor.NewTimeoutMiddleware(processor.DefaultTimeoutWarningThreshold),
	)
	procOpts := []processor.Option{
		processor.WithEventBus(events),
		processor.WithMiddleware(middleware...),
	}
	if o.queueCapacity > 0 {
		procOpts = append(procOpts, processor.WithQueueCapacity(o.queueCapacity))
	}

	w := &Workbench{
		bus:        b,
		events:     events,
		processor:  processor.NewCommandProcessor(procOpts...),
		tasks:      tasks.New(ctx, o.taskLimit),
		catalog:    o.catalog,
		responder:  o.responder,
		originMode: o.replyToOrigin,
		sessions:   sessions.NewManager(o.sessionOpts...),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	w.dispatcher = dispatch.New(b, w, w)
	w.registerHandlers()
	return w
}

func (w *Workbench) registerHandlers() {
	w.processor.RegisterHandler(command.CmdSendMessage, w.handler(w.handleSend))
	w.processor.RegisterHandler(command.CmdPostMessage, w.handler(w.handlePost))
	w.processor.RegisterHandler(command.CmdDeliverReply, w.handler(w.handleDeliverReply))
	w.processor.RegisterHandler(command.CmdRequestNewChat, w.handler(w.handleRequestNewChat))
	w.processor.RegisterHandler(command.CmdCancelNewChat, w.handler(w.handleCancelNewChat))
	w.processor.RegisterHandler(command.CmdConfirmNewChat, w.handler(w.handleConfirmNewChat))
	w.processor.RegisterHandler(command.CmdSelectSession, w.handler(w.handleSelectSession))
	w.processor.RegisterHandler(command.CmdSnapshot, w.handler(w.handleSnapshot))
}

// handler adapts fn to the processor. Events emitted by fn are attached to
// the result only when fn succeeds.
func (w *Workbench) handler(fn func(command.Command) (any, error)) processor.HandlerFunc {
	return func(_ context.Context, cmd command.Command) (*command.CommandResult, error) {
		w.queued = nil
		data, err := fn(cmd)
		events := w.queued
		w.queued = nil
		if err != nil {
			return nil, err
		}
		return &command.CommandResult{Success: true, Events: events, Data: data}, nil
	}
}

// Start runs the processor and begins accepting chat posts from adapters.
func (w *Workbench) Start() error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("workbench already started")
	}
	go func() {
		defer close(w.done)
		w.processor.Run(w.ctx)
	}()
	if err := w.processor.WaitForReady(w.ctx); err != nil {
		return fmt.Errorf("waiting for command processor: %w", err)
	}

	w.chatSub = w.bus.Chat().Subscribe(w.ctx, func(ev pubsub.Event[message.Message]) {
		if ev.Type != bus.MessagePosted {
			return
		}
		if err := w.processor.Submit(command.NewPostMessageCommand(command.SourceAdapter, ev.Payload)); err != nil {
			log.ErrorErr(log.CatSession, "dropping posted chat message", err, "sender", ev.Payload.Sender)
		}
	})
	log.Info(log.CatSession, "workbench started")
	return nil
}

// Bus returns the bus the workbench publishes on.
func (w *Workbench) Bus() *bus.Bus {
	return w.bus
}

// Events carries SessionsChanged, StateChanged, ReplyPending and processor
// events for UIs.
func (w *Workbench) Events() *pubsub.Broker[any] {
	return w.events
}

// Tasks is the group background work runs on. Closing the workbench
// cancels and waits for everything started on it.
func (w *Workbench) Tasks() *tasks.Group {
	return w.tasks
}

// Catalog returns the catalog currently in effect.
func (w *Workbench) Catalog() *catalog.Catalog {
	return w.catalog.Current()
}

// Send records text from the user in the active session and dispatches it.
func (w *Workbench) Send(ctx context.Context, text string) (dispatch.Outcome, error) {
	return w.SendFrom(ctx, command.SourceUser, text)
}

// SendFrom is Send for input arriving from a remote surface.
func (w *Workbench) SendFrom(ctx context.Context, source command.CommandSource, text string) (dispatch.Outcome, error) {
	res, err := w.submit(ctx, command.NewSendMessageCommand(source, text))
	if err != nil {
		return dispatch.Outcome{}, err
	}
	outcome, _ := res.Data.(dispatch.Outcome)
	return outcome, nil
}

// Post records msg in the active session as if an adapter had published it.
func (w *Workbench) Post(ctx context.Context, source command.CommandSource, msg message.Message) error {
	_, err := w.submit(ctx, command.NewPostMessageCommand(source, msg))
	return err
}

// RequestNewChat opens the new-chat flow.
func (w *Workbench) RequestNewChat(ctx context.Context) error {
	_, err := w.submit(ctx, command.NewRequestNewChatCommand(command.SourceUser))
	return err
}

// CancelNewChat closes the new-chat flow.
func (w *Workbench) CancelNewChat(ctx context.Context) error {
	_, err := w.submit(ctx, command.NewCancelNewChatCommand(command.SourceUser))
	return err
}

// ConfirmNewChat creates a session for the catalog source and widgets and
// makes it active. A nil widgets selection uses the catalog defaults.
func (w *Workbench) ConfirmNewChat(ctx context.Context, sourceID string, widgets []string) (SessionSummary, error) {
	res, err := w.submit(ctx, command.NewConfirmNewChatCommand(command.SourceUser, sourceID, widgets))
	if err != nil {
		return SessionSummary{}, err
	}
	sum, _ := res.Data.(SessionSummary)
	return sum, nil
}

// SelectSession makes id the active session.
func (w *Workbench) SelectSession(ctx context.Context, id string) error {
	_, err := w.submit(ctx, command.NewSelectSessionCommand(command.SourceUser, id))
	return err
}

// Snapshot returns a copy of the current state.
func (w *Workbench) Snapshot(ctx context.Context) (Snapshot, error) {
	res, err := w.submit(ctx, command.NewSnapshotCommand(command.SourceUser))
	if err != nil {
		return Snapshot{}, err
	}
	snap, _ := res.Data.(Snapshot)
	return snap, nil
}

// Submit queues cmd without waiting. Safe to call from bus handlers.
func (w *Workbench) Submit(cmd command.Command) error {
	return w.processor.Submit(cmd)
}

// Close stops accepting input, cancels and waits for background tasks, then
// drains the commands already queued and stops the processor. Nothing the
// workbench started is running once Close returns.
func (w *Workbench) Close() {
	w.closeOnce.Do(func() {
		if w.chatSub != nil {
			w.chatSub.Unsubscribe()
		}
		w.tasks.Close()
		if w.started.Load() {
			w.processor.Drain()
		} else {
			w.processor.Stop()
		}
		w.cancel()
		if w.started.Load() {
			<-w.done
		}
		w.events.Close()
		log.Info(log.CatSession, "workbench closed",
			"processed", w.processor.ProcessedCount(), "failed", w.processor.ErrorCount())
	})
}

func (w *Workbench) submit(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
	if !w.processor.IsRunning() {
		return nil, ErrClosed
	}
	res, err := w.processor.SubmitAndWait(ctx, cmd)
	if err != nil {
		if errors.Is(err, processor.ErrProcessorNotRunning) {
			return nil, ErrClosed
		}
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("%s: no result", cmd.Type())
	}
	if !res.Success {
		return res, res.Error
	}
	return res, nil
}

// ===========================================================================
// Handlers (processor goroutine only)
// ===========================================================================

func (w *Workbench) handleSend(cmd command.Command) (any, error) {
	c := cmd.(*command.SendMessageCommand)
	if err := w.AppendActive(message.User(c.Text)); err != nil {
		return nil, err
	}
	outcome := w.dispatcher.Dispatch(c.Text)
	return outcome, nil
}

func (w *Workbench) handlePost(cmd command.Command) (any, error) {
	c := cmd.(*command.PostMessageCommand)
	if err := w.AppendActive(c.Message); err != nil {
		return nil, err
	}
	return nil, nil
}

func (w *Workbench) handleDeliverReply(cmd command.Command) (any, error) {
	c := cmd.(*command.DeliverReplyCommand)

	w.sessions.EndReply(c.SessionID)
	w.emit(ReplyPending{SessionID: c.SessionID, Pending: w.sessions.PendingReplies(c.SessionID)})

	msg := message.Assistant(c.Reply)
	if c.Err != nil {
		log.ErrorErr(log.CatResponder, "assistant reply failed", c.Err, "session", c.SessionID)
		msg = message.Assistant(responder.Apology)
	}

	target := w.sessions.ActiveID()
	if w.originMode {
		target = c.SessionID
	}
	if err := w.append(target, msg); err != nil {
		return nil, err
	}
	w.emit(SessionsChanged{ActiveID: w.sessions.ActiveID()})
	return nil, nil
}

func (w *Workbench) handleRequestNewChat(command.Command) (any, error) {
	if err := w.sessions.RequestNewChat(); err != nil {
		return nil, err
	}
	w.emit(StateChanged{State: w.sessions.State()})
	return nil, nil
}

func (w *Workbench) handleCancelNewChat(command.Command) (any, error) {
	if err := w.sessions.CancelNewChat(); err != nil {
		return nil, err
	}
	w.emit(StateChanged{State: w.sessions.State()})
	return nil, nil
}

func (w *Workbench) handleConfirmNewChat(cmd command.Command) (any, error) {
	c := cmd.(*command.ConfirmNewChatCommand)
	cat := w.catalog.Current()

	// An empty source id is left for the session manager to reject.
	var ref domain.DataSourceRef
	if c.SourceID != "" {
		var err error
		if ref, err = cat.Ref(c.SourceID); err != nil {
			return nil, err
		}
	}
	widgets, err := cat.ResolveWidgets(c.Widgets)
	if err != nil {
		return nil, err
	}

	session, err := w.sessions.ConfirmNewChat(ref, widgets)
	if err != nil {
		return nil, err
	}
	w.reload()
	w.emit(StateChanged{State: w.sessions.State()})
	w.emit(SessionsChanged{ActiveID: session.ID()})
	return summarize(w.sessions, session), nil
}

func (w *Workbench) handleSelectSession(cmd command.Command) (any, error) {
	c := cmd.(*command.SelectSessionCommand)
	changed, err := w.sessions.SelectSession(c.SessionID)
	if err != nil {
		return nil, err
	}
	if changed {
		w.reload()
		w.emit(SessionsChanged{ActiveID: c.SessionID})
	}
	return changed, nil
}

func (w *Workbench) handleSnapshot(command.Command) (any, error) {
	return takeSnapshot(w.sessions), nil
}

// ===========================================================================
// dispatch.Appender and dispatch.ReplyStarter
// ===========================================================================

// AppendActive records msg in the active session and announces it on chat.
// Processor goroutine only.
func (w *Workbench) AppendActive(msg message.Message) error {
	return w.append(w.sessions.ActiveID(), msg)
}

// StartReply asks the responder for a reply to text on a background task.
// Processor goroutine only.
func (w *Workbench) StartReply(text string) {
	origin := w.sessions.ActiveID()
	w.sessions.BeginReply(origin)
	w.emit(ReplyPending{SessionID: origin, Pending: w.sessions.PendingReplies(origin)})

	err := w.tasks.Go("reply", func(ctx context.Context) error {
		reply, err := w.responder.Respond(ctx, text)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if subErr := w.deliver(ctx, command.NewDeliverReplyCommand(origin, reply, err)); subErr != nil {
			log.ErrorErr(log.CatResponder, "reply dropped on close", subErr, "session", origin)
		}
		return nil
	})
	if err != nil {
		// No task slot: fail the reply now rather than leave it pending.
		w.sessions.EndReply(origin)
		w.emit(ReplyPending{SessionID: origin, Pending: w.sessions.PendingReplies(origin)})
		if appendErr := w.append(origin, message.Assistant(responder.Apology)); appendErr != nil {
			log.ErrorErr(log.CatResponder, "append apology failed", appendErr)
		}
	}
}

// deliver queues cmd from a background task, waiting while the queue is
// full. It fails only when ctx ends or the processor has stopped.
func (w *Workbench) deliver(ctx context.Context, cmd command.Command) error {
	for attempt := 0; ; attempt++ {
		err := w.processor.Submit(cmd)
		if !errors.Is(err, command.ErrQueueFull) {
			return err
		}
		if attempt == 0 {
			log.Warn(log.CatSession, "command queue full, waiting to deliver",
				"command_type", cmd.Type().String(), "queued", w.processor.QueueLength())
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(deliverRetry):
		}
	}
}

func (w *Workbench) append(id string, msg message.Message) error {
	if err := w.sessions.Append(id, msg); err != nil {
		return err
	}
	if id == w.sessions.ActiveID() {
		w.bus.Chat().Publish(bus.MessageAppended, msg)
	}
	return nil
}

// reload replaces the visible log with the active session's stored history.
func (w *Workbench) reload() {
	w.bus.Chat().Publish(bus.LogCleared, message.Message{})
	if active := w.sessions.Active(); active != nil {
		for _, msg := range active.Messages() {
			w.bus.Chat().Publish(bus.MessageAppended, msg)
		}
	}
}

func (w *Workbench) emit(event any) {
	w.queued = append(w.queued, event)
}
