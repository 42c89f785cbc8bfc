// Package relay mirrors bus traffic onto Redis pub/sub and feeds control
// frames published by remote widgets back into the workbench.
//
// Outbound delivery is fire-and-forget, like the bus itself: a frame that
// cannot be queued or published is logged and dropped.
package relay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zjrosen/devdeck/internal/bus"
	"github.com/zjrosen/devdeck/internal/command"
	"github.com/zjrosen/devdeck/internal/log"
	"github.com/zjrosen/devdeck/internal/pubsub"
	"github.com/zjrosen/devdeck/internal/wire"
)

const (
	// DefaultPrefix namespaces every Redis channel the relay touches.
	DefaultPrefix = "devdeck"
	// DefaultBuffer bounds the outbound frame queue.
	DefaultBuffer = 1024

	// InboundChannel is the channel suffix remote clients publish control
	// frames to.
	InboundChannel = "inbound"

	publishTimeout = 2 * time.Second
)

// ErrStarted is returned by Start on a relay that is already running.
var ErrStarted = errors.New("relay already started")

// Config configures a Relay.
type Config struct {
	Prefix string
	Buffer int
}

// Relay bridges one bus to Redis.
type Relay struct {
	cfg    Config
	client Client
	bus    *bus.Bus
	events *pubsub.Broker[any]
	ctrl   wire.Controller

	out     chan wire.Frame
	release func()
	sub     Subscription
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	started   atomic.Bool
	closeOnce sync.Once

	published atomic.Int64
	dropped   atomic.Int64
}

// New creates a Relay. events and ctrl may be nil; without a controller
// inbound frames are ignored.
func New(cfg Config, client Client, b *bus.Bus, events *pubsub.Broker[any], ctrl wire.Controller) *Relay {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultBuffer
	}
	return &Relay{
		cfg:    cfg,
		client: client,
		bus:    b,
		events: events,
		ctrl:   ctrl,
		out:    make(chan wire.Frame, cfg.Buffer),
	}
}

// Channel returns the Redis channel name for a frame channel.
func (r *Relay) Channel(name string) string {
	return r.cfg.Prefix + ":" + name
}

// Start subscribes to the inbound channel and begins mirroring the bus.
func (r *Relay) Start(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return ErrStarted
	}
	ctx, r.cancel = context.WithCancel(ctx)

	if r.ctrl != nil {
		sub, err := r.client.Subscribe(ctx, r.Channel(InboundChannel))
		if err != nil {
			r.cancel()
			r.started.Store(false)
			return err
		}
		r.sub = sub
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.inboundLoop(ctx)
		}()
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.publishLoop(ctx)
	}()

	r.release = wire.Tap(ctx, r.bus, r.events, r.enqueue)
	log.Info(log.CatRelay, "relay started", "prefix", r.cfg.Prefix)
	return nil
}

// Close stops mirroring, waits for the relay goroutines and closes the
// subscription. The Client is left open.
func (r *Relay) Close() {
	r.closeOnce.Do(func() {
		if !r.started.Load() {
			return
		}
		r.release()
		if r.sub != nil {
			_ = r.sub.Close()
		}
		r.cancel()
		r.wg.Wait()
		log.Info(log.CatRelay, "relay stopped", "published", r.published.Load(), "dropped", r.dropped.Load())
	})
}

// Published returns the number of frames sent to Redis.
func (r *Relay) Published() int64 { return r.published.Load() }

// Dropped returns the number of frames discarded.
func (r *Relay) Dropped() int64 { return r.dropped.Load() }

func (r *Relay) enqueue(f wire.Frame) {
	select {
	case r.out <- f:
	default:
		r.dropped.Add(1)
	}
}

func (r *Relay) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-r.out:
			r.publish(ctx, f)
		}
	}
}

func (r *Relay) publish(ctx context.Context, f wire.Frame) {
	data, err := wire.Encode(f)
	if err != nil {
		r.dropped.Add(1)
		log.ErrorErr(log.CatRelay, "encoding frame failed", err, "channel", f.Channel)
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := r.client.Publish(pubCtx, r.Channel(f.Channel), data); err != nil {
		r.dropped.Add(1)
		log.Warn(log.CatRelay, "publish failed", "channel", f.Channel, "error", err)
		return
	}
	r.published.Add(1)
}

func (r *Relay) inboundLoop(ctx context.Context) {
	ch := r.sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			req, err := wire.Decode([]byte(msg.Payload))
			if err != nil {
				log.Warn(log.CatRelay, "ignoring inbound message", "error", err)
				continue
			}
			reply := wire.Handle(ctx, r.ctrl, command.SourceRemote, req)
			if reply.Error != "" {
				log.Warn(log.CatRelay, "inbound request failed", "op", req.Type, "error", reply.Error)
			}
			r.enqueue(reply)
		}
	}
}
