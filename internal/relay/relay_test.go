package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zjrosen/devdeck/internal/bus"
	"github.com/zjrosen/devdeck/internal/message"
	"github.com/zjrosen/devdeck/internal/payload"
	"github.com/zjrosen/devdeck/internal/workbench"
	"github.com/zjrosen/devdeck/internal/wire"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type published struct {
	channel string
	frame   wire.Frame
}

type fakeClient struct {
	mu        sync.Mutex
	published []published
	inbound   chan *redis.Message
	subErr    error
	pubErr    error
	subClosed bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{inbound: make(chan *redis.Message, 16)}
}

func (c *fakeClient) Publish(_ context.Context, channel string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pubErr != nil {
		return c.pubErr
	}
	f, err := wire.Decode(data)
	if err != nil {
		return err
	}
	c.published = append(c.published, published{channel: channel, frame: f})
	return nil
}

func (c *fakeClient) Subscribe(context.Context, string) (Subscription, error) {
	if c.subErr != nil {
		return nil, c.subErr
	}
	return c, nil
}

func (c *fakeClient) Channel() <-chan *redis.Message { return c.inbound }

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subClosed = true
	return nil
}

func (c *fakeClient) find(channel string) []wire.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []wire.Frame
	for _, p := range c.published {
		if p.channel == channel {
			out = append(out, p.frame)
		}
	}
	return out
}

func (c *fakeClient) send(t *testing.T, f wire.Frame) {
	t.Helper()
	data, err := wire.Encode(f)
	require.NoError(t, err)
	c.inbound <- &redis.Message{Channel: "devdeck:inbound", Payload: string(data)}
}

func TestRelay_MirrorsBusWithPrefix(t *testing.T) {
	b := bus.New()
	defer b.Close()
	client := newFakeClient()

	r := New(Config{Prefix: "deck"}, client, b, nil, nil)
	require.NoError(t, r.Start(context.Background()))

	b.Route(payload.Shell{Command: "kafka"})
	b.Post(message.System("hi"))

	require.Eventually(t, func() bool { return r.Published() == 2 }, time.Second, 5*time.Millisecond)
	r.Close()

	shell := client.find("deck:shell")
	require.Len(t, shell, 1)
	require.Equal(t, "created", shell[0].Type)
	require.Len(t, client.find("deck:chat"), 1)

	b.Route(payload.Shell{Command: "grpc"})
	require.Equal(t, int64(2), r.Published(), "nothing mirrored after Close")
}

func TestRelay_InboundControlFrames(t *testing.T) {
	b := bus.New()
	defer b.Close()
	wb := workbench.New(b)
	require.NoError(t, wb.Start())
	defer wb.Close()

	client := newFakeClient()
	r := New(Config{}, client, b, wb.Events(), wb)
	require.NoError(t, r.Start(context.Background()))
	defer r.Close()

	post, err := wire.NewFrame(wire.ChannelControl, wire.OpPost, wire.PostData{Sender: "system", Content: "from redis"})
	require.NoError(t, err)
	post.ID = "p1"
	client.send(t, post)

	require.Eventually(t, func() bool {
		return len(client.find("devdeck:control")) == 1
	}, time.Second, 5*time.Millisecond)
	reply := client.find("devdeck:control")[0]
	require.Equal(t, "p1", reply.ID)
	require.Empty(t, reply.Error)

	snap, err := wb.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, "from redis", snap.Messages[len(snap.Messages)-1].Content)

	client.inbound <- &redis.Message{Payload: "garbage"}
	client.send(t, wire.Frame{Channel: wire.ChannelControl, Type: wire.OpCancelNewChat, ID: "c1"})
	require.Eventually(t, func() bool {
		return len(client.find("devdeck:control")) == 2
	}, time.Second, 5*time.Millisecond)
	require.Contains(t, client.find("devdeck:control")[1].Error, "invalid session transition")
}

func TestRelay_PublishFailuresAreDropped(t *testing.T) {
	b := bus.New()
	defer b.Close()
	client := newFakeClient()
	client.pubErr = errors.New("connection refused")

	r := New(Config{}, client, b, nil, nil)
	require.NoError(t, r.Start(context.Background()))

	b.Route(payload.Editor{Content: "x"})
	require.Eventually(t, func() bool { return r.Dropped() == 1 }, time.Second, 5*time.Millisecond)
	r.Close()
	require.Zero(t, r.Published())
}

func TestRelay_Lifecycle(t *testing.T) {
	b := bus.New()
	defer b.Close()

	client := newFakeClient()
	client.subErr = errors.New("no route to host")
	wb := workbench.New(b)
	defer wb.Close()
	r := New(Config{}, client, b, nil, wb)
	require.ErrorContains(t, r.Start(context.Background()), "no route to host")
	r.Close()

	ok := New(Config{}, newFakeClient(), b, nil, nil)
	require.NoError(t, ok.Start(context.Background()))
	require.ErrorIs(t, ok.Start(context.Background()), ErrStarted)
	ok.Close()
	ok.Close()

	New(Config{}, newFakeClient(), b, nil, nil).Close()
	require.Zero(t, b.Stats()[bus.Chat])
}
