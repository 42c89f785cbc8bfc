package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/devdeck/internal/command"
	"github.com/zjrosen/devdeck/internal/processor"
)

func setupTestTracer(t *testing.T) (trace.Tracer, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider.Tracer("test"), exporter
}

func attrValue(attrs []attribute.KeyValue, key string) (string, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value.AsString(), true
		}
	}
	return "", false
}

func TestTracingMiddleware_NilTracerPassesThrough(t *testing.T) {
	called := false
	h := processor.HandlerFunc(func(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
		called = true
		return &command.CommandResult{Success: true}, nil
	})

	_, err := NewTracingMiddleware(nil)(h).Handle(context.Background(), command.NewSnapshotCommand(command.SourceUser))
	require.NoError(t, err)
	require.True(t, called)
}

func TestTracingMiddleware_RecordsSpan(t *testing.T) {
	tracer, exporter := setupTestTracer(t)
	h := processor.HandlerFunc(func(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
		return &command.CommandResult{Success: true}, nil
	})

	cmd := command.NewSelectSessionCommand(command.SourceUser, "s-1")
	_, err := NewTracingMiddleware(tracer)(h).Handle(context.Background(), cmd)
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "command.process.select_session", spans[0].Name)
	require.Equal(t, codes.Ok, spans[0].Status.Code)

	id, ok := attrValue(spans[0].Attributes, AttrCommandID)
	require.True(t, ok)
	require.Equal(t, cmd.ID(), id)
	session, ok := attrValue(spans[0].Attributes, AttrSessionID)
	require.True(t, ok)
	require.Equal(t, "s-1", session)
	source, _ := attrValue(spans[0].Attributes, AttrCommandSource)
	require.Equal(t, "user", source)
}

func TestTracingMiddleware_RecordsErrors(t *testing.T) {
	tracer, exporter := setupTestTracer(t)

	failing := processor.HandlerFunc(func(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
		return nil, errors.New("boom")
	})
	rejected := processor.HandlerFunc(func(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
		return &command.CommandResult{Success: false, Error: errors.New("rejected")}, nil
	})

	mw := NewTracingMiddleware(tracer)
	_, err := mw(failing).Handle(context.Background(), command.NewSnapshotCommand(command.SourceUser))
	require.Error(t, err)
	_, err = mw(rejected).Handle(context.Background(), command.NewSnapshotCommand(command.SourceUser))
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	require.Equal(t, codes.Error, spans[0].Status.Code)
	require.Equal(t, "boom", spans[0].Status.Description)
	require.Equal(t, "rejected", spans[1].Status.Description)
}

func TestTracingMiddleware_PropagatesToFollowUps(t *testing.T) {
	tracer, exporter := setupTestTracer(t)

	followUp := command.NewDeliverReplyCommand("s-1", "hi", nil)
	h := processor.HandlerFunc(func(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
		return &command.CommandResult{Success: true, FollowUp: []command.Command{followUp}}, nil
	})

	mw := NewTracingMiddleware(tracer)
	_, err := mw(h).Handle(context.Background(), command.NewSnapshotCommand(command.SourceUser))
	require.NoError(t, err)

	parent := exporter.GetSpans()[0]
	require.Len(t, parent.Events, 1)
	require.Equal(t, EventFollowUpCreated, parent.Events[0].Name)
	require.Equal(t, parent.SpanContext.TraceID(), followUp.SpanContext().TraceID())

	// The follow-up's span becomes a child of the parent.
	_, err = mw(h).Handle(context.Background(), followUp)
	require.NoError(t, err)
	child := exporter.GetSpans()[1]
	require.Equal(t, parent.SpanContext.TraceID(), child.SpanContext.TraceID())
	require.Equal(t, parent.SpanContext.SpanID(), child.Parent.SpanID())
}
