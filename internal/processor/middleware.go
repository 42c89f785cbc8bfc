package processor

import (
	"context"
	"time"

	"github.com/zjrosen/devdeck/internal/command"
	"github.com/zjrosen/devdeck/internal/log"
)

// Middleware wraps a CommandHandler to add additional behavior.
// Middleware functions are composed using ChainMiddleware.
type Middleware func(CommandHandler) CommandHandler

// ChainMiddleware applies middlewares to a handler in reverse order.
// The first middleware in the list will be the outermost wrapper.
// For example: ChainMiddleware(handler, logging, timeout)
// Results in: logging(timeout(handler))
func ChainMiddleware(handler CommandHandler, middlewares ...Middleware) CommandHandler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

func traceIDOf(cmd command.Command) string {
	if hasTraceID, ok := cmd.(interface{ TraceID() string }); ok {
		return hasTraceID.TraceID()
	}
	return ""
}

func sourceOf(cmd command.Command) command.CommandSource {
	if hasSource, ok := cmd.(interface{ Source() command.CommandSource }); ok {
		return hasSource.Source()
	}
	return ""
}

// ===========================================================================
// Logging Middleware
// ===========================================================================

// NewLoggingMiddleware creates a middleware that logs command execution.
func NewLoggingMiddleware() Middleware {
	return func(next CommandHandler) CommandHandler {
		return HandlerFunc(func(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
			start := time.Now()
			result, err := next.Handle(ctx, cmd)
			duration := time.Since(start)

			fields := []any{
				"command_id", cmd.ID(),
				"command_type", cmd.Type().String(),
				"trace_id", traceIDOf(cmd),
				"duration", duration,
				"source", string(sourceOf(cmd)),
			}

			switch {
			case err != nil:
				log.Error(log.CatCommands, "command failed", append(fields, "error", err.Error())...)
			case result != nil && !result.Success:
				errMsg := ""
				if result.Error != nil {
					errMsg = result.Error.Error()
				}
				log.Warn(log.CatCommands, "command completed with error result", append(fields, "error", errMsg)...)
			default:
				log.Debug(log.CatCommands, "command completed", fields...)
			}

			return result, err
		})
	}
}

// ===========================================================================
// Command Log Middleware
// ===========================================================================

// EventPublisher is an interface for publishing events.
// Note: This uses a string type for eventType to avoid coupling to pubsub package.
type EventPublisher interface {
	Publish(eventType string, payload any)
}

// NewCommandLogMiddleware creates a middleware that emits a CommandLogEvent
// for each processed command. A nil publisher makes it a pass-through.
func NewCommandLogMiddleware(publisher EventPublisher) Middleware {
	return func(next CommandHandler) CommandHandler {
		if publisher == nil {
			return next
		}
		return HandlerFunc(func(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
			start := time.Now()
			result, err := next.Handle(ctx, cmd)

			success := err == nil && (result == nil || result.Success)
			cmdErr := err
			if cmdErr == nil && result != nil && !result.Success {
				cmdErr = result.Error
			}

			publisher.Publish("updated", CommandLogEvent{
				CommandID:   cmd.ID(),
				CommandType: cmd.Type(),
				Source:      sourceOf(cmd),
				Success:     success,
				Error:       cmdErr,
				Duration:    time.Since(start),
				Timestamp:   time.Now(),
				TraceID:     traceIDOf(cmd),
			})
			return result, err
		})
	}
}

// ===========================================================================
// Timeout Middleware
// ===========================================================================

// DefaultTimeoutWarningThreshold is the default threshold for logging slow handler warnings.
const DefaultTimeoutWarningThreshold = 50 * time.Millisecond

// NewTimeoutMiddleware creates a middleware that logs warnings when handlers
// exceed threshold. It never aborts a handler.
func NewTimeoutMiddleware(threshold time.Duration) Middleware {
	if threshold <= 0 {
		threshold = DefaultTimeoutWarningThreshold
	}

	return func(next CommandHandler) CommandHandler {
		return HandlerFunc(func(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
			start := time.Now()
			result, err := next.Handle(ctx, cmd)

			if duration := time.Since(start); duration > threshold {
				log.Warn(log.CatCommands, "handler exceeded time threshold",
					"command_id", cmd.ID(),
					"command_type", cmd.Type().String(),
					"trace_id", traceIDOf(cmd),
					"duration", duration,
					"threshold", threshold,
				)
			}
			return result, err
		})
	}
}
