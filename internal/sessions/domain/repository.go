package domain

// SessionRepository defines the storage interface for Session entities.
// Implementations keep sessions in list order, newest first.
type SessionRepository interface {
	// Insert adds a session at the head of the list.
	Insert(session *Session) error

	// Append adds a session at the tail of the list.
	Append(session *Session) error

	// FindByID retrieves a session by its ID.
	// Returns ErrSessionNotFound if no matching session exists.
	FindByID(id string) (*Session, error)

	// List returns every session in list order.
	List() []*Session

	// Len returns the number of stored sessions.
	Len() int
}
