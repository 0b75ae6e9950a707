package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/starter/core/logger"
)

// Manager handles session lifecycle including creation, retrieval, and expiration.
type Manager struct {
	store  Store
	cfg    Config
	logger *slog.Logger
}

// NewManager creates a session manager backed by store.
func NewManager(store Store, opts ...Option) *Manager {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Manager{
		store:  store,
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithLogger sets the logger used by the cleanup loop.
func (m *Manager) WithLogger(l *slog.Logger) *Manager {
	if l != nil {
		m.logger = l
	}
	return m
}

// New creates an anonymous session. It is persisted by Store.
func (m *Manager) New(_ context.Context, params NewSessionParams) (Session, error) {
	return New(params, m.cfg.TTL)
}

// GetByToken retrieves a session by token and validates expiration.
func (m *Manager) GetByToken(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrNotFound
	}
	sess, err := m.store.GetByToken(ctx, token)
	if err != nil {
		return Session{}, err
	}
	if sess.IsExpired() {
		return Session{}, ErrExpired
	}
	return *sess, nil
}

// Authenticate binds sess to userID, rotating both tokens.
// The returned session still has to be passed to Store.
func (m *Manager) Authenticate(_ context.Context, sess Session, userID int64, remember bool) (Session, error) {
	ttl := m.cfg.TTL
	if remember {
		ttl = m.cfg.RememberTTL
	}
	if err := sess.Authenticate(userID, remember, ttl); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Logout deletes sess and returns a fresh anonymous session for the same client.
// Deleting a session that is already gone is not an error.
func (m *Manager) Logout(ctx context.Context, sess Session) (Session, error) {
	if sess.ID != uuid.Nil {
		if err := m.store.Delete(ctx, sess.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return Session{}, errors.Join(ErrDeleteSession, err)
		}
	}
	return New(NewSessionParams{IP: sess.IP, UserAgent: sess.UserAgent}, m.cfg.TTL)
}

// Delete removes the session with id.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	if err := m.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return errors.Join(ErrDeleteSession, err)
	}
	return nil
}

// Store persists sess according to its state and returns what was stored.
// A deleted session is removed and ErrNotAuthenticated is returned so the
// transport can clear the cookie. ErrSessionChanged means another request
// logged out or rotated the session after sess was loaded; nothing was written.
func (m *Manager) Store(ctx context.Context, sess Session) (Session, error) {
	if sess.IsDeleted() {
		if err := m.Delete(ctx, sess.ID); err != nil {
			return sess, err
		}
		return sess, ErrNotAuthenticated
	}

	sess.Touch(m.TTLFor(sess), m.cfg.TouchInterval)

	if !sess.IsModified() {
		return sess, nil
	}
	if err := m.store.Save(ctx, &sess); err != nil {
		if errors.Is(err, ErrSessionChanged) {
			return sess, ErrSessionChanged
		}
		return sess, errors.Join(ErrSaveSession, err)
	}
	return sess, nil
}

// TTLFor returns the lifetime applied to sess on activity.
func (m *Manager) TTLFor(sess Session) time.Duration {
	if sess.Remember {
		return m.cfg.RememberTTL
	}
	return m.cfg.TTL
}

// CleanupExpired removes all expired sessions from the store.
func (m *Manager) CleanupExpired(ctx context.Context) (int64, error) {
	return m.store.DeleteExpired(ctx)
}

// Run returns a function for errgroup that purges expired sessions every
// CleanupInterval until ctx is done.
func (m *Manager) Run(ctx context.Context) func() error {
	return func() error {
		if m.cfg.CleanupInterval <= 0 {
			<-ctx.Done()
			return nil
		}

		ticker := time.NewTicker(m.cfg.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				n, err := m.CleanupExpired(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					m.logger.ErrorContext(ctx, "session cleanup failed", logger.Error(err))
					continue
				}
				if n > 0 {
					m.logger.DebugContext(ctx, "expired sessions removed", logger.Count("sessions", int(n)))
				}
			}
		}
	}
}

// Config returns the manager configuration.
func (m *Manager) Config() Config {
	return m.cfg
}
