package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/devdeck/internal/message"
	"github.com/zjrosen/devdeck/internal/payload"
	"github.com/zjrosen/devdeck/internal/pubsub"
)

func TestRoute_ReachesOnlyMatchingChannel(t *testing.T) {
	b := New()
	defer b.Close()

	ctx := context.Background()
	var (
		editors []payload.Editor
		shells  []payload.Shell
		charts  []payload.Chart
	)
	b.Editor().Subscribe(ctx, func(e pubsub.Event[payload.Editor]) { editors = append(editors, e.Payload) })
	b.Shell().Subscribe(ctx, func(e pubsub.Event[payload.Shell]) { shells = append(shells, e.Payload) })
	b.Visualization().Subscribe(ctx, func(e pubsub.Event[payload.Chart]) { charts = append(charts, e.Payload) })

	b.Route(payload.Shell{Command: "ls"})
	b.Route(payload.Editor{Content: "let x = 1", Language: "javascript"})
	b.Route(payload.Chart{Labels: []string{"A"}, Series: []float64{1}})

	require.Equal(t, []payload.Shell{{Command: "ls"}}, shells)
	require.Equal(t, []payload.Editor{{Content: "let x = 1", Language: "javascript"}}, editors)
	require.Len(t, charts, 1)
	require.Equal(t, []string{"A"}, charts[0].Labels)
}

func TestRoute_UnmountedWidgetIsSilent(t *testing.T) {
	b := New()
	defer b.Close()

	require.NotPanics(t, func() {
		b.Route(payload.Editor{Content: "nobody home"})
	})
}

func TestPost_UsesPostedEventType(t *testing.T) {
	b := New()
	defer b.Close()

	var got pubsub.Event[message.Message]
	b.Chat().Subscribe(context.Background(), func(e pubsub.Event[message.Message]) { got = e })

	msg := message.System("Code saved successfully!")
	b.Post(msg)

	require.Equal(t, MessagePosted, got.Type)
	require.Equal(t, msg, got.Payload)
}

func TestStatsAndClose(t *testing.T) {
	b := New()

	ctx := context.Background()
	b.Chat().Subscribe(ctx, func(pubsub.Event[message.Message]) {})
	b.Chat().Subscribe(ctx, func(pubsub.Event[message.Message]) {})
	b.ExecutionResult().Subscribe(ctx, func(pubsub.Event[string]) {})

	stats := b.Stats()
	require.Equal(t, 2, stats[Chat])
	require.Equal(t, 1, stats[ExecutionResult])
	require.Equal(t, 0, stats[Editor])
	require.Len(t, stats, len(Names()))

	b.Close()
	for _, n := range Names() {
		require.Zero(t, b.Stats()[n], "channel %s", n)
	}
}
