package sessions

import (
	"fmt"
	"slices"
	"sync"

	"github.com/zjrosen/devdeck/internal/sessions/domain"
)

// MemoryRepository is an in-process SessionRepository. Nothing survives a
// restart.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions []*domain.Session
}

var _ domain.SessionRepository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Insert adds a session at the head of the list.
func (r *MemoryRepository) Insert(session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(session.ID()) >= 0 {
		return fmt.Errorf("insert %s: %w", session.ID(), domain.ErrDuplicateSession)
	}
	r.sessions = slices.Insert(r.sessions, 0, session)
	return nil
}

// Append adds a session at the tail of the list.
func (r *MemoryRepository) Append(session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(session.ID()) >= 0 {
		return fmt.Errorf("append %s: %w", session.ID(), domain.ErrDuplicateSession)
	}
	r.sessions = append(r.sessions, session)
	return nil
}

// FindByID retrieves a session by its ID.
func (r *MemoryRepository) FindByID(id string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.indexOf(id); i >= 0 {
		return r.sessions[i], nil
	}
	return nil, fmt.Errorf("find %q: %w", id, domain.ErrSessionNotFound)
}

// List returns every session, newest first.
func (r *MemoryRepository) List() []*domain.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.sessions)
}

// Len returns the number of stored sessions.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *MemoryRepository) indexOf(id string) int {
	return slices.IndexFunc(r.sessions, func(s *domain.Session) bool {
		return s.ID() == id
	})
}
