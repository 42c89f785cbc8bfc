package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zjrosen/devdeck/internal/command"
	"github.com/zjrosen/devdeck/internal/log"
	"github.com/zjrosen/devdeck/internal/wire"
)

// client is one WebSocket connection. The read loop runs on the HTTP
// handler goroutine; writes happen on a single writer goroutine.
type client struct {
	id     string
	conn   *websocket.Conn
	server *Server
	send   chan wire.Frame
}

func (c *client) run() {
	s := c.server
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	// Unblock ReadMessage when the server closes.
	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()

	release := wire.Tap(ctx, s.bus, s.events, c.enqueue)
	defer release()

	n := s.clients.Add(1)
	log.Info(log.CatGateway, "client connected", "client", c.id, "clients", n)
	defer func() {
		n := s.clients.Add(-1)
		log.Info(log.CatGateway, "client disconnected", "client", c.id, "clients", n)
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writeLoop(ctx)
		cancel()
	}()

	c.readLoop(ctx)
	cancel()
	wg.Wait()
	_ = c.conn.Close()
}

// enqueue is the bus sink. It never blocks.
func (c *client) enqueue(f wire.Frame) {
	select {
	case c.send <- f:
	default:
		c.server.dropped.Add(1)
		log.Warn(log.CatGateway, "client too slow, frame dropped", "client", c.id, "channel", f.Channel)
	}
}

func (c *client) readLoop(ctx context.Context) {
	c.conn.SetReadLimit(maxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn(log.CatGateway, "websocket closed unexpectedly", "client", c.id, "error", err)
			}
			return
		}

		req, err := wire.Decode(data)
		var reply wire.Frame
		if err != nil {
			reply = wire.Frame{Channel: wire.ChannelControl, Type: "error", Error: err.Error()}
		} else {
			reply = wire.Handle(ctx, c.server.ctrl, command.SourceRemote, req)
		}

		// Replies are not droppable.
		select {
		case c.send <- reply:
		case <-ctx.Done():
			return
		}
	}
}

func (c *client) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case f := <-c.send:
			data, err := wire.Encode(f)
			if err != nil {
				log.ErrorErr(log.CatGateway, "encoding frame failed", err, "client", c.id)
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug(log.CatGateway, "write failed", "client", c.id, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
