package session

import (
	"context"

	"github.com/google/uuid"
)

// Store defines the persistence interface for sessions.
// Implementations must handle concurrent access safely.
type Store interface {
	GetByToken(ctx context.Context, token string) (*Session, error)
	// Save inserts a session that was never stored. A stored session is
	// updated only while the record still carries the token it was loaded
	// with; otherwise Save returns ErrSessionChanged and writes nothing.
	// A rotated token must stop resolving once the new one is saved.
	Save(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteExpired removes all expired sessions and returns how many were removed.
	DeleteExpired(ctx context.Context) (int64, error)
}
