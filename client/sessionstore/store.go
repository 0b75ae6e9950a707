// Package sessionstore keeps the client-side view of the session: who is
// logged in, whether the startup probe has finished, and whether the last
// action was a logout.
//
// A Store is created once per application, initialized at startup and
// closed on teardown:
//
//	store := sessionstore.New(apiClient)
//	defer store.Close()
//	go store.Initialize(ctx)
//
// Login and Logout carry a generation number. A Login whose response arrives
// after a later Logout (or Login) started is discarded with ErrSuperseded, so
// the last issued action always wins. When a Logout superseded a Login that
// the server accepted anyway, the store logs out once more, silently, so the
// server session agrees with the local state.
package sessionstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/starter/client"
	"github.com/dmitrymomot/starter/pkg/broadcast"
)

// ErrSuperseded is returned by Login when a later Login or Logout started
// before it finished.
var ErrSuperseded = errors.New("sessionstore: superseded by a later action")

// Auth is the part of the API the store needs. *client.Client implements it.
type Auth interface {
	CSRFCookie(ctx context.Context) error
	Login(ctx context.Context, req client.LoginRequest) (client.User, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (client.User, error)
}

// State is a snapshot of the session.
type State struct {
	User          *client.User
	Loading       bool
	JustLoggedOut bool
	// Epoch increases with every authentication transition: the startup
	// probe resolving, a successful Login and a Logout. Two snapshots with
	// the same Epoch belong to the same authentication state.
	Epoch uint64
}

// Authenticated reports whether a user is logged in.
func (s State) Authenticated() bool {
	return s.User != nil
}

// Store holds the session state. It is safe for concurrent use; network
// calls run outside the lock.
type Store struct {
	auth   Auth
	logger *slog.Logger

	mu          sync.Mutex
	state       State
	generation  uint64
	lastLogout  bool // the action of the current generation is a Logout
	initStarted bool

	changes *broadcast.MemoryBroadcaster[State]
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for failed calls that the store swallows.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a store in the Loading state.
func New(auth Auth, opts ...Option) *Store {
	s := &Store{
		auth:    auth,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		state:   State{Loading: true},
		changes: broadcast.NewMemoryBroadcaster[State](8),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize resolves the current session once. Any failure means nobody is
// logged in. Loading becomes false when it returns, whatever the outcome.
// Later calls do nothing.
func (s *Store) Initialize(ctx context.Context) {
	s.mu.Lock()
	if s.initStarted {
		s.mu.Unlock()
		return
	}
	s.initStarted = true
	gen := s.generation
	s.mu.Unlock()

	u, err := s.auth.Me(client.Silent(ctx))
	if err != nil && client.KindOf(err) != client.KindUnauthenticated {
		s.logger.WarnContext(ctx, "session probe failed", slog.Any("error", err))
	}

	s.mu.Lock()
	// A login or logout that started meanwhile owns the user field.
	if gen == s.generation {
		if err != nil {
			s.state.User = nil
		} else {
			s.state.User = &u
		}
	}
	s.state.Loading = false
	s.state.Epoch++
	s.publishLocked(ctx)
	s.mu.Unlock()
}

// Login fetches the CSRF cookie, then authenticates. On success the user is
// stored and JustLoggedOut cleared. Errors are returned unchanged.
func (s *Store) Login(ctx context.Context, credential, password string, remember bool) (client.User, error) {
	gen := s.begin(false)

	if err := s.auth.CSRFCookie(ctx); err != nil {
		return client.User{}, err
	}
	u, err := s.auth.Login(ctx, client.LoginRequest{
		Credential: credential,
		Password:   password,
		RememberMe: remember,
	})
	if err != nil {
		return client.User{}, err
	}

	s.mu.Lock()
	if gen != s.generation {
		compensate := s.lastLogout
		s.mu.Unlock()
		if compensate {
			s.revoke(ctx)
		}
		return client.User{}, ErrSuperseded
	}
	defer s.mu.Unlock()
	s.state.User = &u
	s.state.JustLoggedOut = false
	s.state.Epoch++
	s.publishLocked(ctx)
	return u, nil
}

// Logout ends the session on the server and locally. The local state is
// cleared even when the server call fails. Calling it again is harmless.
func (s *Store) Logout(ctx context.Context) {
	gen := s.begin(true)

	if err := s.auth.Logout(ctx); err != nil {
		s.logger.WarnContext(ctx, "logout request failed, clearing local state anyway",
			slog.Any("error", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	s.state.User = nil
	s.state.JustLoggedOut = true
	s.state.Epoch++
	s.publishLocked(ctx)
}

// HasRole reports whether the logged in user has any of roles.
func (s *Store) HasRole(roles ...client.Role) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.User != nil && s.state.User.HasRole(roles...)
}

// State returns a snapshot. The returned User is a copy.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// ClearJustLoggedOut resets the flag once the logout notice was shown.
func (s *Store) ClearJustLoggedOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.JustLoggedOut {
		return
	}
	s.state.JustLoggedOut = false
	s.publishLocked(context.Background())
}

// Subscribe returns a subscriber receiving a snapshot after every change.
// It ends when ctx is done or the store is closed.
func (s *Store) Subscribe(ctx context.Context) broadcast.Subscriber[State] {
	return s.changes.Subscribe(ctx)
}

// Close ends all subscriptions.
func (s *Store) Close() error {
	return s.changes.Close()
}

func (s *Store) begin(logout bool) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.lastLogout = logout
	return s.generation
}

// revoke ends a server session created by a login the local state discarded.
func (s *Store) revoke(ctx context.Context) {
	if err := s.auth.Logout(client.Silent(ctx)); err != nil {
		s.logger.WarnContext(ctx, "failed to revoke superseded login", slog.Any("error", err))
	}
}

func (s *Store) snapshotLocked() State {
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

func (s *Store) publishLocked(ctx context.Context) {
	// Broadcast does not block; publishing under the lock keeps snapshots in order.
	if err := s.changes.Broadcast(context.WithoutCancel(ctx), broadcast.Message[State]{Data: s.snapshotLocked()}); err != nil &&
		!errors.Is(err, broadcast.ErrBroadcasterClosed) {
		s.logger.Warn("failed to publish session state", slog.Any("error", err))
	}
}
