package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/starter/core/session"
)

// mockStore implements session.Store for testing.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetByToken(ctx context.Context, token string) (*session.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *mockStore) Save(ctx context.Context, sess *session.Session) error {
	return m.Called(ctx, sess).Error(0)
}

func (m *mockStore) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func TestNewManager(t *testing.T) {
	t.Parallel()

	mgr := session.NewManager(&mockStore{},
		session.WithTTL(time.Hour),
		session.WithRememberTTL(48*time.Hour),
		session.WithTouchInterval(time.Minute),
	)
	cfg := mgr.Config()
	assert.Equal(t, time.Hour, cfg.TTL)
	assert.Equal(t, 48*time.Hour, cfg.RememberTTL)
	assert.Equal(t, time.Minute, cfg.TouchInterval)
	assert.Equal(t, session.DefaultConfig().CleanupInterval, cfg.CleanupInterval)
}

func TestManager_GetByToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("valid session", func(t *testing.T) {
		t.Parallel()
		store := &mockStore{}
		mgr := session.NewManager(store)
		sess := newSession(t, time.Hour)
		store.On("GetByToken", ctx, sess.Token).Return(&sess, nil)

		got, err := mgr.GetByToken(ctx, sess.Token)
		require.NoError(t, err)
		assert.Equal(t, sess.ID, got.ID)
		store.AssertExpectations(t)
	})

	t.Run("expired session", func(t *testing.T) {
		t.Parallel()
		store := &mockStore{}
		mgr := session.NewManager(store)
		sess := newSession(t, -time.Minute)
		store.On("GetByToken", ctx, sess.Token).Return(&sess, nil)

		_, err := mgr.GetByToken(ctx, sess.Token)
		assert.ErrorIs(t, err, session.ErrExpired)
	})

	t.Run("empty token skips store", func(t *testing.T) {
		t.Parallel()
		store := &mockStore{}
		_, err := session.NewManager(store).GetByToken(ctx, "")
		assert.ErrorIs(t, err, session.ErrNotFound)
		store.AssertNotCalled(t, "GetByToken", mock.Anything, mock.Anything)
	})

	t.Run("store error", func(t *testing.T) {
		t.Parallel()
		store := &mockStore{}
		store.On("GetByToken", ctx, "tok").Return(nil, session.ErrNotFound)
		_, err := session.NewManager(store).GetByToken(ctx, "tok")
		assert.ErrorIs(t, err, session.ErrNotFound)
	})
}

func TestManager_Authenticate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mgr := session.NewManager(&mockStore{}, session.WithTTL(time.Hour), session.WithRememberTTL(10*time.Hour))

	t.Run("short lifetime", func(t *testing.T) {
		t.Parallel()
		sess := newSession(t, time.Hour)
		got, err := mgr.Authenticate(ctx, sess, 1, false)
		require.NoError(t, err)
		assert.NotEqual(t, sess.Token, got.Token)
		assert.WithinDuration(t, time.Now().Add(time.Hour), got.ExpiresAt, time.Second)
		assert.Equal(t, time.Hour, mgr.TTLFor(got))
	})

	t.Run("remember me", func(t *testing.T) {
		t.Parallel()
		got, err := mgr.Authenticate(ctx, newSession(t, time.Hour), 1, true)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(10*time.Hour), got.ExpiresAt, time.Second)
		assert.Equal(t, 10*time.Hour, mgr.TTLFor(got))
	})
}

func TestManager_Logout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("deletes and starts anonymous session", func(t *testing.T) {
		t.Parallel()
		store := &mockStore{}
		mgr := session.NewManager(store)
		sess := newSession(t, time.Hour)
		require.NoError(t, sess.Authenticate(5, false, time.Hour))
		store.On("Delete", ctx, sess.ID).Return(nil)

		fresh, err := mgr.Logout(ctx, sess)
		require.NoError(t, err)
		assert.NotEqual(t, sess.ID, fresh.ID)
		assert.NotEqual(t, sess.CSRFToken, fresh.CSRFToken)
		assert.False(t, fresh.IsAuthenticated())
		assert.Equal(t, sess.IP, fresh.IP)
		store.AssertExpectations(t)
	})

	t.Run("missing session is fine", func(t *testing.T) {
		t.Parallel()
		store := &mockStore{}
		sess := newSession(t, time.Hour)
		store.On("Delete", ctx, sess.ID).Return(session.ErrNotFound)

		_, err := session.NewManager(store).Logout(ctx, sess)
		assert.NoError(t, err)
	})

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()
		store := &mockStore{}
		sess := newSession(t, time.Hour)
		store.On("Delete", ctx, sess.ID).Return(errors.New("boom"))

		_, err := session.NewManager(store).Logout(ctx, sess)
		assert.ErrorIs(t, err, session.ErrDeleteSession)
	})
}

func TestManager_Store(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("saves modified session", func(t *testing.T) {
		t.Parallel()
		store := &mockStore{}
		sess := newSession(t, time.Hour)
		store.On("Save", ctx, mock.MatchedBy(func(s *session.Session) bool { return s.ID == sess.ID })).Return(nil)

		_, err := session.NewManager(store).Store(ctx, sess)
		require.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("skips unmodified session", func(t *testing.T) {
		t.Parallel()
		store := &mockStore{}
		mem := session.NewMemoryStore()
		sess := newSession(t, time.Hour)
		require.NoError(t, mem.Save(ctx, &sess))
		loaded, err := mem.GetByToken(ctx, sess.Token)
		require.NoError(t, err)

		_, err = session.NewManager(store).Store(ctx, *loaded)
		require.NoError(t, err)
		store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("touches stale session", func(t *testing.T) {
		t.Parallel()
		store := &mockStore{}
		mem := session.NewMemoryStore()
		sess := newSession(t, time.Minute)
		sess.UpdatedAt = time.Now().Add(-time.Hour)
		require.NoError(t, mem.Save(ctx, &sess))
		loaded, err := mem.GetByToken(ctx, sess.Token)
		require.NoError(t, err)
		store.On("Save", ctx, mock.Anything).Return(nil)

		got, err := session.NewManager(store, session.WithTTL(2*time.Hour)).Store(ctx, *loaded)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(2*time.Hour), got.ExpiresAt, time.Second)
		store.AssertExpectations(t)
	})

	t.Run("deleted session", func(t *testing.T) {
		t.Parallel()
		store := &mockStore{}
		sess := newSession(t, time.Hour)
		sess.Logout()
		store.On("Delete", ctx, sess.ID).Return(nil)

		_, err := session.NewManager(store).Store(ctx, sess)
		assert.ErrorIs(t, err, session.ErrNotAuthenticated)
	})

	t.Run("save failure", func(t *testing.T) {
		t.Parallel()
		store := &mockStore{}
		store.On("Save", ctx, mock.Anything).Return(errors.New("boom"))

		_, err := session.NewManager(store).Store(ctx, newSession(t, time.Hour))
		assert.ErrorIs(t, err, session.ErrSaveSession)
	})
}

func TestManager_StoreStaleCopy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// loadTwice stores sess, idle for longer than the touch interval, and
	// returns two independently loaded copies, as two concurrent requests see it.
	loadTwice := func(t *testing.T, store *session.MemoryStore, sess session.Session) (session.Session, session.Session) {
		t.Helper()
		sess.UpdatedAt = time.Now().Add(-10 * time.Minute)
		require.NoError(t, store.Save(ctx, &sess))
		a, err := store.GetByToken(ctx, sess.Token)
		require.NoError(t, err)
		b, err := store.GetByToken(ctx, sess.Token)
		require.NoError(t, err)
		return *a, *b
	}

	t.Run("after logout", func(t *testing.T) {
		t.Parallel()
		store := session.NewMemoryStore()
		mgr := session.NewManager(store, session.WithTouchInterval(time.Minute))

		sess := newSession(t, time.Hour)
		require.NoError(t, sess.Authenticate(7, false, time.Hour))
		first, second := loadTwice(t, store, sess)

		fresh, err := mgr.Logout(ctx, first)
		require.NoError(t, err)
		_, err = mgr.Store(ctx, fresh)
		require.NoError(t, err)

		_, err = mgr.Store(ctx, second)
		assert.ErrorIs(t, err, session.ErrSessionChanged)

		_, err = mgr.GetByToken(ctx, sess.Token)
		assert.ErrorIs(t, err, session.ErrNotFound, "logged-out token must not resolve again")
		assert.Equal(t, 1, store.Len())
	})

	t.Run("after login", func(t *testing.T) {
		t.Parallel()
		store := session.NewMemoryStore()
		mgr := session.NewManager(store, session.WithTouchInterval(time.Minute))

		anon := newSession(t, time.Hour)
		first, second := loadTwice(t, store, anon)

		authed, err := mgr.Authenticate(ctx, first, 7, false)
		require.NoError(t, err)
		_, err = mgr.Store(ctx, authed)
		require.NoError(t, err)

		_, err = mgr.Store(ctx, second)
		assert.ErrorIs(t, err, session.ErrSessionChanged)

		_, err = mgr.GetByToken(ctx, anon.Token)
		assert.ErrorIs(t, err, session.ErrNotFound, "pre-login token must stay invalid")
		got, err := mgr.GetByToken(ctx, authed.Token)
		require.NoError(t, err)
		assert.Equal(t, int64(7), got.UserID)
	})
}

func TestManager_Run(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	expired := newSession(t, -time.Minute)
	require.NoError(t, store.Save(context.Background(), &expired))
	mgr := session.NewManager(store, session.WithCleanupInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mgr.Run(ctx)() }()

	require.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
