package wire

import (
	"context"

	"github.com/zjrosen/devdeck/internal/bus"
	"github.com/zjrosen/devdeck/internal/log"
	"github.com/zjrosen/devdeck/internal/pubsub"
)

// Sink receives outbound frames. It is called on the publishing goroutine
// and must not block.
type Sink func(Frame)

// Tap subscribes sink to every bus channel and, when events is non-nil, to
// the workbench event broker. The returned func releases every
// subscription; cancelling ctx does the same.
func Tap(ctx context.Context, b *bus.Bus, events *pubsub.Broker[any], sink Sink) func() {
	subs := []*pubsub.Subscription{
		subscribe(ctx, b.Chat(), bus.Chat, sink),
		subscribe(ctx, b.Editor(), bus.Editor, sink),
		subscribe(ctx, b.Shell(), bus.Shell, sink),
		subscribe(ctx, b.Visualization(), bus.Visualization, sink),
		subscribe(ctx, b.ExecutionResult(), bus.ExecutionResult, sink),
	}
	if events != nil {
		subs = append(subs, events.Subscribe(ctx, func(ev pubsub.Event[any]) {
			f, ok, err := eventFrame(ev.Payload)
			if err != nil {
				log.ErrorErr(log.CatGateway, "encoding workbench event failed", err)
				return
			}
			if ok {
				sink(f)
			}
		}))
	}
	return func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}
}

func subscribe[T any](ctx context.Context, broker *pubsub.Broker[T], name bus.Name, sink Sink) *pubsub.Subscription {
	return broker.Subscribe(ctx, func(ev pubsub.Event[T]) {
		f, err := busFrame(name, ev)
		if err != nil {
			log.ErrorErr(log.CatGateway, "encoding bus event failed", err, "channel", name)
			return
		}
		sink(f)
	})
}
