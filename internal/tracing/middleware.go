package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/devdeck/internal/command"
	"github.com/zjrosen/devdeck/internal/processor"
)

// Span attribute keys.
const (
	AttrCommandID     = "command.id"
	AttrCommandType   = "command.type"
	AttrCommandSource = "command.source"
	AttrSessionID     = "session.id"
)

// SpanPrefixCommand prefixes the span name of every processed command.
const SpanPrefixCommand = "command.process."

// EventFollowUpCreated is recorded once per follow-up command.
const EventFollowUpCreated = "follow_up.created"

// NewTracingMiddleware wraps every handler in a span named after the command
// type. Follow-up commands inherit the span context so they become children.
// A nil tracer makes it a pass-through.
func NewTracingMiddleware(tracer trace.Tracer) processor.Middleware {
	if tracer == nil {
		return func(next processor.CommandHandler) processor.CommandHandler {
			return next
		}
	}

	return func(next processor.CommandHandler) processor.CommandHandler {
		return processor.HandlerFunc(func(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
			ctx = restoreSpanContext(ctx, cmd)
			ctx, span := tracer.Start(ctx, SpanPrefixCommand+cmd.Type().String(),
				trace.WithSpanKind(trace.SpanKindInternal),
			)
			defer span.End()

			span.SetAttributes(
				attribute.String(AttrCommandID, cmd.ID()),
				attribute.String(AttrCommandType, cmd.Type().String()),
			)
			if hasSource, ok := cmd.(interface{ Source() command.CommandSource }); ok {
				span.SetAttributes(attribute.String(AttrCommandSource, string(hasSource.Source())))
			}
			if id := sessionIDOf(cmd); id != "" {
				span.SetAttributes(attribute.String(AttrSessionID, id))
			}

			result, err := next.Handle(ctx, cmd)

			switch {
			case err != nil:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			case result != nil && !result.Success:
				if result.Error != nil {
					span.RecordError(result.Error)
					span.SetStatus(codes.Error, result.Error.Error())
				} else {
					span.SetStatus(codes.Error, "command failed without error details")
				}
			default:
				span.SetStatus(codes.Ok, "")
			}

			if result != nil {
				sc := span.SpanContext()
				for _, followUp := range result.FollowUp {
					span.AddEvent(EventFollowUpCreated, trace.WithAttributes(
						attribute.String(AttrCommandType, followUp.Type().String()),
						attribute.String(AttrCommandID, followUp.ID()),
					))
					if setter, ok := followUp.(interface{ SetSpanContext(trace.SpanContext) }); ok {
						setter.SetSpanContext(sc)
					}
				}
			}

			return result, err
		})
	}
}

func sessionIDOf(cmd command.Command) string {
	switch c := cmd.(type) {
	case *command.DeliverReplyCommand:
		return c.SessionID
	case *command.SelectSessionCommand:
		return c.SessionID
	}
	return ""
}

// restoreSpanContext makes a command's carried span context the parent of
// the next span.
func restoreSpanContext(ctx context.Context, cmd command.Command) context.Context {
	if hasSpanContext, ok := cmd.(interface{ SpanContext() trace.SpanContext }); ok {
		if sc := hasSpanContext.SpanContext(); sc.IsValid() {
			return trace.ContextWithRemoteSpanContext(ctx, sc)
		}
	}
	return ctx
}
