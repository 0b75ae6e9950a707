package session_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/starter/core/session"
)

// storeContract runs the behavior every Store must share.
func storeContract(t *testing.T, store session.Store) {
	t.Helper()
	ctx := context.Background()

	sess := newSession(t, time.Hour)
	require.NoError(t, store.Save(ctx, &sess))

	got, err := store.GetByToken(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, sess.CSRFToken, got.CSRFToken)
	assert.False(t, got.IsModified())

	oldToken := sess.Token
	require.NoError(t, sess.Authenticate(9, true, time.Hour))
	require.NoError(t, store.Save(ctx, &sess))

	_, err = store.GetByToken(ctx, oldToken)
	assert.ErrorIs(t, err, session.ErrNotFound, "rotated token must not resolve")

	got, err = store.GetByToken(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.UserID)
	assert.True(t, got.Remember)

	// A copy loaded before the token rotated must not write back.
	stale, err := store.GetByToken(ctx, sess.Token)
	require.NoError(t, err)
	assert.True(t, stale.IsStored())
	require.NoError(t, sess.Refresh())
	require.NoError(t, store.Save(ctx, &sess))
	stale.Touch(time.Hour, 0)
	assert.ErrorIs(t, store.Save(ctx, stale), session.ErrSessionChanged)
	_, err = store.GetByToken(ctx, stale.Token)
	assert.ErrorIs(t, err, session.ErrNotFound, "stale token must stay rotated out")

	require.NoError(t, store.Delete(ctx, sess.ID))
	_, err = store.GetByToken(ctx, sess.Token)
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, sess.ID), session.ErrNotFound)

	// Nor may it recreate a deleted record.
	sess.Touch(time.Hour, 0)
	assert.ErrorIs(t, store.Save(ctx, &sess), session.ErrSessionChanged)
	_, err = store.GetByToken(ctx, sess.Token)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	storeContract(t, session.NewMemoryStore())
}

func TestMemoryStore_DeleteExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := session.NewMemoryStore()

	live := newSession(t, time.Hour)
	expired := newSession(t, -time.Second)
	require.NoError(t, store.Save(ctx, &live))
	require.NoError(t, store.Save(ctx, &expired))

	n, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, store.Len())
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	storeContract(t, session.NewRedisStore(client))

	t.Run("keys expire with session", func(t *testing.T) {
		ctx := context.Background()
		store := session.NewRedisStore(client)
		sess := newSession(t, time.Minute)
		require.NoError(t, store.Save(ctx, &sess))

		mr.FastForward(2 * time.Minute)

		_, err := store.GetByToken(ctx, sess.Token)
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("refuses expired session", func(t *testing.T) {
		sess := newSession(t, -time.Minute)
		err := session.NewRedisStore(client).Save(context.Background(), &sess)
		assert.ErrorIs(t, err, session.ErrExpired)
	})
}

func TestPgStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("get by token", func(t *testing.T) {
		t.Parallel()
		db, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer db.Close()

		sess := newSession(t, time.Hour)
		userID := int64(12)
		db.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE token = $1")).
			WithArgs(sess.Token).
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "token", "user_id", "csrf_token", "remember", "ip", "user_agent",
				"expires_at", "created_at", "updated_at",
			}).AddRow(
				sess.ID, sess.Token, &userID, sess.CSRFToken, true, sess.IP, sess.UserAgent,
				sess.ExpiresAt, sess.CreatedAt, sess.UpdatedAt,
			))

		got, err := session.NewPgStore(db).GetByToken(ctx, sess.Token)
		require.NoError(t, err)
		assert.Equal(t, sess.ID, got.ID)
		assert.Equal(t, int64(12), got.UserID)
		assert.True(t, got.Remember)
		require.NoError(t, db.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		db, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer db.Close()

		db.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE token = $1")).
			WithArgs("missing").
			WillReturnRows(pgxmock.NewRows([]string{"id"}))

		_, err = session.NewPgStore(db).GetByToken(ctx, "missing")
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("save anonymous stores null user", func(t *testing.T) {
		t.Parallel()
		db, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer db.Close()

		sess := newSession(t, time.Hour)
		db.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
			WithArgs(sess.ID, sess.Token, (*int64)(nil), sess.CSRFToken, false,
				sess.IP, sess.UserAgent, sess.ExpiresAt, sess.CreatedAt, sess.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, session.NewPgStore(db).Save(ctx, &sess))
		require.NoError(t, db.ExpectationsWereMet())
	})

	t.Run("update of rotated session writes nothing", func(t *testing.T) {
		t.Parallel()
		db, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer db.Close()

		sess := newSession(t, time.Hour)
		db.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE token = $1")).
			WithArgs(sess.Token).
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "token", "user_id", "csrf_token", "remember", "ip", "user_agent",
				"expires_at", "created_at", "updated_at",
			}).AddRow(
				sess.ID, sess.Token, (*int64)(nil), sess.CSRFToken, false, sess.IP, sess.UserAgent,
				sess.ExpiresAt, sess.CreatedAt, sess.UpdatedAt,
			))
		db.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET")).
			WithArgs(sess.ID, sess.Token, (*int64)(nil), sess.CSRFToken, false,
				sess.IP, sess.UserAgent, pgxmock.AnyArg(), pgxmock.AnyArg(), sess.Token).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		store := session.NewPgStore(db)
		loaded, err := store.GetByToken(ctx, sess.Token)
		require.NoError(t, err)
		loaded.Touch(time.Hour, 0)
		assert.ErrorIs(t, store.Save(ctx, loaded), session.ErrSessionChanged)
		require.NoError(t, db.ExpectationsWereMet())
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()
		db, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer db.Close()

		sess := newSession(t, time.Hour)
		db.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE id = $1")).
			WithArgs(sess.ID).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		assert.ErrorIs(t, session.NewPgStore(db).Delete(ctx, sess.ID), session.ErrNotFound)
	})

	t.Run("delete expired", func(t *testing.T) {
		t.Parallel()
		db, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer db.Close()

		db.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE expires_at < now()")).
			WillReturnResult(pgxmock.NewResult("DELETE", 4))

		n, err := session.NewPgStore(db).DeleteExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
	})

	t.Run("query error", func(t *testing.T) {
		t.Parallel()
		db, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer db.Close()

		db.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions")).WillReturnError(errors.New("conn reset"))

		_, err = session.NewPgStore(db).DeleteExpired(ctx)
		assert.ErrorContains(t, err, "conn reset")
	})
}
