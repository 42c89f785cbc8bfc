// Package processor provides the FIFO command processor that owns all
// workbench state. A single goroutine processes commands in strict arrival
// order, so handlers never need locks around the state they touch.
package processor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/zjrosen/devdeck/internal/command"
	"github.com/zjrosen/devdeck/internal/log"
	"github.com/zjrosen/devdeck/internal/pubsub"
)

// DefaultQueueCapacity is the default buffer size for the command queue.
const DefaultQueueCapacity = 256

var (
	// ErrUnknownCommandType is returned when no handler is registered for a command type.
	ErrUnknownCommandType = errors.New("unknown command type")

	// ErrProcessorNotRunning is returned when submitting to a stopped processor.
	ErrProcessorNotRunning = errors.New("processor is not running")
)

// CommandHandler executes one command type.
type CommandHandler interface {
	Handle(ctx context.Context, cmd command.Command) (*command.CommandResult, error)
}

// HandlerFunc adapts a function to CommandHandler.
type HandlerFunc func(ctx context.Context, cmd command.Command) (*command.CommandResult, error)

// Handle calls f(ctx, cmd).
func (f HandlerFunc) Handle(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
	return f(ctx, cmd)
}

// Option configures the CommandProcessor.
type Option func(*CommandProcessor)

// WithQueueCapacity sets the command queue buffer capacity.
func WithQueueCapacity(capacity int) Option {
	return func(p *CommandProcessor) {
		p.queueCapacity = capacity
	}
}

// WithEventBus sets the event bus for publishing command results.
func WithEventBus(bus *pubsub.Broker[any]) Option {
	return func(p *CommandProcessor) {
		p.eventBus = bus
	}
}

// WithMiddleware adds middleware to be applied to all handlers.
// Middleware is applied in order: first middleware wraps outermost.
func WithMiddleware(middlewares ...Middleware) Option {
	return func(p *CommandProcessor) {
		p.middlewares = append(p.middlewares, middlewares...)
	}
}

// CommandProcessor processes commands sequentially in FIFO order.
type CommandProcessor struct {
	queue         chan queueItem
	queueCapacity int
	queueMu       sync.RWMutex // guards sends against close in Drain
	draining      bool         // under queueMu; follow-ups are dropped once set

	handlers    map[command.CommandType]CommandHandler
	middlewares []Middleware
	eventBus    *pubsub.Broker[any]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	running   atomic.Bool
	started   atomic.Bool
	readyCh   chan struct{}
	readyOnce sync.Once

	processedCount atomic.Int64
	errorCount     atomic.Int64
}

// queueItem wraps a command with an optional result channel for SubmitAndWait.
type queueItem struct {
	cmd      command.Command
	resultCh chan *commandResponse // nil for fire-and-forget Submit
}

type commandResponse struct {
	result *command.CommandResult
	err    error
}

// NewCommandProcessor creates a new CommandProcessor with the given options.
func NewCommandProcessor(opts ...Option) *CommandProcessor {
	p := &CommandProcessor{
		queueCapacity: DefaultQueueCapacity,
		handlers:      make(map[command.CommandType]CommandHandler),
		readyCh:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.queue = make(chan queueItem, p.queueCapacity)
	return p
}

// RegisterHandler registers a handler for a command type.
// Must be called before Run() is called.
// The handler is wrapped with all configured middleware.
func (p *CommandProcessor) RegisterHandler(cmdType command.CommandType, handler CommandHandler) {
	p.handlers[cmdType] = ChainMiddleware(handler, p.middlewares...)
}

// Run starts the command processing loop.
// This method blocks until the context is cancelled or Stop() is called.
// Run can only be called once - subsequent calls return immediately.
func (p *CommandProcessor) Run(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}

	p.ctx, p.cancel = context.WithCancel(ctx)

	// Add to wait group BEFORE setting running to avoid race with Drain()
	p.wg.Add(1)
	p.running.Store(true)

	p.readyOnce.Do(func() { close(p.readyCh) })

	defer func() {
		p.running.Store(false)
		p.wg.Done()
	}()

	for {
		select {
		case <-p.ctx.Done():
			return
		case item, ok := <-p.queue:
			if !ok {
				// Queue closed during Drain
				return
			}
			p.processItem(item)
		}
	}
}

// WaitForReady blocks until the processor is ready to accept commands.
func (p *CommandProcessor) WaitForReady(ctx context.Context) error {
	select {
	case <-p.readyCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit adds a command to the queue for asynchronous processing.
// It never blocks, so it is safe to call from inside a handler.
// Returns ErrQueueFull if the queue is at capacity.
func (p *CommandProcessor) Submit(cmd command.Command) error {
	p.queueMu.RLock()
	defer p.queueMu.RUnlock()

	if !p.running.Load() {
		return ErrProcessorNotRunning
	}

	select {
	case p.queue <- queueItem{cmd: cmd}:
		return nil
	default:
		return command.ErrQueueFull
	}
}

// SubmitAndWait adds a command to the queue and waits for the result.
// Must not be called from inside a handler.
func (p *CommandProcessor) SubmitAndWait(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
	resultCh := make(chan *commandResponse, 1)

	p.queueMu.RLock()
	if !p.running.Load() {
		p.queueMu.RUnlock()
		return nil, ErrProcessorNotRunning
	}
	select {
	case p.queue <- queueItem{cmd: cmd, resultCh: resultCh}:
	case <-ctx.Done():
		p.queueMu.RUnlock()
		return nil, ctx.Err()
	default:
		p.queueMu.RUnlock()
		return nil, command.ErrQueueFull
	}
	p.queueMu.RUnlock()

	select {
	case resp := <-resultCh:
		return resp.result, resp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.ctx.Done():
		return nil, context.Canceled
	}
}

// Stop cancels the processing context and waits for shutdown.
// Any pending commands in the queue are NOT processed.
func (p *CommandProcessor) Stop() {
	p.queueMu.Lock()
	p.running.Store(false)
	p.queueMu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// Drain processes all remaining commands in the queue before stopping.
func (p *CommandProcessor) Drain() {
	p.queueMu.Lock()
	if !p.running.Load() {
		p.queueMu.Unlock()
		return
	}
	p.running.Store(false)
	p.draining = true
	close(p.queue)
	p.queueMu.Unlock()

	p.wg.Wait()
}

// IsRunning returns true if the processor is currently accepting commands.
func (p *CommandProcessor) IsRunning() bool {
	return p.running.Load()
}

// ProcessedCount returns the total number of commands processed.
func (p *CommandProcessor) ProcessedCount() int64 {
	return p.processedCount.Load()
}

// ErrorCount returns the total number of commands that resulted in errors.
func (p *CommandProcessor) ErrorCount() int64 {
	return p.errorCount.Load()
}

// QueueLength returns the current number of pending commands.
func (p *CommandProcessor) QueueLength() int {
	return len(p.queue)
}

func (p *CommandProcessor) processItem(item queueItem) {
	result := p.processCommand(item.cmd)

	p.processedCount.Add(1)
	if result != nil && !result.Success {
		p.errorCount.Add(1)
	}

	if item.resultCh != nil {
		item.resultCh <- &commandResponse{result: result}
		close(item.resultCh)
	}
}

// processCommand executes the command processing pipeline.
// Errors are wrapped in the CommandResult, not returned separately.
func (p *CommandProcessor) processCommand(cmd command.Command) *command.CommandResult {
	if err := cmd.Validate(); err != nil {
		p.emitErrorEvent(cmd, err)
		return &command.CommandResult{Success: false, Error: err}
	}

	handler, ok := p.handlers[cmd.Type()]
	if !ok {
		p.emitErrorEvent(cmd, ErrUnknownCommandType)
		return &command.CommandResult{Success: false, Error: ErrUnknownCommandType}
	}

	result, err := handler.Handle(p.ctx, cmd)
	if err != nil {
		p.emitErrorEvent(cmd, err)
		return &command.CommandResult{Success: false, Error: err}
	}

	if result != nil && len(result.Events) > 0 {
		p.emitEvents(result.Events)
	}

	if result != nil {
		for _, followUp := range result.FollowUp {
			p.enqueueFollowUp(cmd, followUp)
		}
	}

	return result
}

// enqueueFollowUp appends followUp to the end of the queue without blocking,
// since the caller is the loop that drains it.
func (p *CommandProcessor) enqueueFollowUp(parent, followUp command.Command) {
	p.queueMu.RLock()
	defer p.queueMu.RUnlock()

	if p.draining {
		log.Debug(log.CatCommands, "follow-up dropped while draining",
			"command_type", followUp.Type().String(), "parent_id", parent.ID())
		return
	}
	select {
	case p.queue <- queueItem{cmd: followUp}:
	default:
		log.Warn(log.CatCommands, "follow-up dropped, queue full",
			"command_type", followUp.Type().String(), "parent_id", parent.ID())
	}
}

func (p *CommandProcessor) emitEvents(events []any) {
	if p.eventBus == nil {
		return
	}
	for _, event := range events {
		p.eventBus.Publish(pubsub.UpdatedEvent, event)
	}
}

func (p *CommandProcessor) emitErrorEvent(cmd command.Command, err error) {
	if p.eventBus == nil {
		return
	}
	p.eventBus.Publish(pubsub.UpdatedEvent, CommandErrorEvent{
		CommandID:   cmd.ID(),
		CommandType: cmd.Type(),
		Error:       err,
	})
}
