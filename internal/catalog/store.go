package catalog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zjrosen/devdeck/internal/log"
	"github.com/zjrosen/devdeck/internal/pubsub"
	"github.com/zjrosen/devdeck/internal/watcher"
)

// Store serves the current catalog and, when watching, swaps in a fresh copy
// each time the override file changes. Readers always see a complete
// catalog; a file that fails to parse leaves the previous one in place.
type Store struct {
	path    string
	current atomic.Pointer[Catalog]
	changes *pubsub.Broker[*Catalog]

	mu      sync.Mutex
	watcher *watcher.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewStore loads the catalog at path, or the built-in catalog when path is
// empty.
func NewStore(path string) (*Store, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	s := &Store{
		path:    path,
		changes: pubsub.NewBroker[*Catalog](),
	}
	s.current.Store(c)
	return s, nil
}

// Current returns the catalog in effect.
func (s *Store) Current() *Catalog {
	return s.current.Load()
}

// Changes publishes an UpdatedEvent after every successful reload.
func (s *Store) Changes() *pubsub.Broker[*Catalog] {
	return s.changes
}

// Path returns the override file path, or "" for the built-in catalog.
func (s *Store) Path() string {
	return s.path
}

// Reload re-reads the override file.
func (s *Store) Reload() error {
	c, err := Load(s.path)
	if err != nil {
		return err
	}
	s.current.Store(c)
	s.changes.Publish(pubsub.UpdatedEvent, c)
	return nil
}

// Watch reloads the catalog whenever the override file changes, until ctx
// is cancelled or Close is called. Watching the built-in catalog is a no-op.
func (s *Store) Watch(ctx context.Context, debounce time.Duration) error {
	if s.path == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return fmt.Errorf("catalog: already watching %s", s.path)
	}

	w, err := watcher.New(watcher.Config{Path: s.path, Debounce: debounce})
	if err != nil {
		return err
	}
	onChange, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	s.watcher = w
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-w.Errors():
				log.ErrorErr(log.CatCatalog, "watch error", err, "path", s.path)
			case <-onChange:
				if err := s.Reload(); err != nil {
					log.ErrorErr(log.CatCatalog, "reload failed, keeping previous catalog", err, "path", s.path)
					continue
				}
				log.Info(log.CatCatalog, "catalog reloaded", "path", s.path)
			}
		}
	}()

	log.Debug(log.CatCatalog, "watching catalog", "path", s.path)
	return nil
}

// Close stops watching and releases change subscribers.
func (s *Store) Close() error {
	s.mu.Lock()
	w, cancel := s.watcher, s.cancel
	s.watcher, s.cancel = nil, nil
	s.mu.Unlock()

	var err error
	if cancel != nil {
		cancel()
		s.wg.Wait()
	}
	if w != nil {
		err = w.Stop()
	}
	s.changes.Close()
	return err
}
