// Package tasks runs deferred work (assistant replies, simulated latency)
// as structured goroutines that are cancelled and joined on Close.
package tasks

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zjrosen/devdeck/internal/log"
)

// DefaultLimit bounds how many tasks may run at once.
const DefaultLimit = 64

// ErrRejected is returned by Go when the group is closed or at its limit.
var ErrRejected = errors.New("task rejected")

// Group owns a set of goroutines. One task failing does not cancel the others.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc
	eg     errgroup.Group

	mu     sync.RWMutex
	closed bool
}

// New creates a Group whose tasks see a context derived from parent.
// limit <= 0 uses DefaultLimit.
func New(parent context.Context, limit int) *Group {
	if limit <= 0 {
		limit = DefaultLimit
	}
	ctx, cancel := context.WithCancel(parent)
	g := &Group{ctx: ctx, cancel: cancel}
	g.eg.SetLimit(limit)
	return g
}

// Go starts fn without blocking. It returns ErrRejected when the group is
// closed or already running its limit of tasks.
func (g *Group) Go(name string, fn func(ctx context.Context) error) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.closed {
		return ErrRejected
	}
	ok := g.eg.TryGo(func() error {
		if err := fn(g.ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Debug(log.CatCommands, "task finished with error", "task", name, "error", err)
		}
		return nil
	})
	if !ok {
		log.Warn(log.CatCommands, "task limit reached", "task", name)
		return ErrRejected
	}
	return nil
}

// Close cancels every running task and waits for all of them to return.
// It is safe to call more than once.
func (g *Group) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	g.cancel()
	_ = g.eg.Wait()
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
