package client_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/starter/app"
	"github.com/dmitrymomot/starter/client"
	"github.com/dmitrymomot/starter/core/cookie"
	"github.com/dmitrymomot/starter/core/server"
	"github.com/dmitrymomot/starter/core/session"
	"github.com/dmitrymomot/starter/internal/auth"
	"github.com/dmitrymomot/starter/internal/user"
)

const password = "correct-horse-battery"

func startApp(t *testing.T) (*app.App, string) {
	t.Helper()

	srvCfg := server.DefaultConfig()
	srvCfg.Addr = "127.0.0.1:0"
	cfg := app.Config{
		Server:             srvCfg,
		Cookie:             cookie.Config{Secrets: "test-secret-key-for-cookie-manager-32chars", Path: "/"},
		Session:            session.DefaultConfig(),
		Auth:               auth.DefaultConfig(),
		AppName:            "starter-test",
		APIPrefix:          "/api",
		MaxBodySize:        1 << 20,
		APIRateLimit:       1000,
		APIRateLimitWindow: time.Minute,
		RateLimitCleanup:   time.Minute,
	}

	a, err := app.New(context.Background(), cfg, app.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return a, srv.URL + "/api"
}

func TestAgainstServer(t *testing.T) {
	t.Parallel()
	a, base := startApp(t)
	ctx := context.Background()

	jane, err := a.Users.Create(ctx, user.CreateParams{
		Name: "Jane", Email: "jane@example.com", Password: password, Role: user.RoleUser,
	})
	require.NoError(t, err)

	rec := &recorder{}
	c, err := client.New(base, client.WithNotifier(rec))
	require.NoError(t, err)

	_, err = c.Me(client.Silent(ctx))
	assert.ErrorIs(t, err, client.ErrUnauthenticated)
	assert.Empty(t, rec.all(), "the startup probe is silent")

	require.NoError(t, c.CSRFCookie(ctx))

	_, err = c.Login(ctx, client.LoginRequest{Credential: "jane@example.com", Password: "wrong-password"})
	assert.Equal(t, client.KindInvalidCredentials, client.KindOf(err))

	_, err = c.Login(ctx, client.LoginRequest{Credential: "not-an-email", Password: "x"})
	var apiErr *client.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, client.KindValidation, apiErr.Kind)
	assert.NotEmpty(t, apiErr.FieldError("login_credential"))

	u, err := c.Login(ctx, client.LoginRequest{Credential: "jane@example.com", Password: password})
	require.NoError(t, err)
	assert.Equal(t, jane.ID, u.ID)
	assert.Equal(t, client.RoleUser, u.Role)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", me.Email)

	t.Run("profile update", func(t *testing.T) {
		_, changed, err := c.UpdateUser(ctx, jane.ID, client.UpdateUserRequest{Name: "Jane"})
		require.NoError(t, err)
		assert.False(t, changed)

		bio := "Gopher"
		updated, changed, err := c.UpdateUser(ctx, jane.ID, client.UpdateUserRequest{Name: "Jane Doe", Bio: &bio})
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "Jane Doe", updated.Name)
		require.NotNil(t, updated.Profile.Bio)
		assert.Equal(t, "Gopher", *updated.Profile.Bio)

		role := client.RoleAdmin
		_, _, err = c.UpdateUser(ctx, jane.ID, client.UpdateUserRequest{Name: "Jane Doe", Role: &role})
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, client.KindValidation, apiErr.Kind)
		assert.Equal(t, "You are not authorized to modify security roles.", apiErr.FieldError("role"))
	})

	t.Run("admin only listing", func(t *testing.T) {
		_, err := c.Users(ctx)
		assert.ErrorIs(t, err, client.ErrForbidden)
	})

	t.Run("notifications", func(t *testing.T) {
		require.NoError(t, a.Notifications.NotifyUser(ctx, jane.ID, "Welcome", "Hello Jane"))
		require.NoError(t, a.Notifications.NotifyUser(ctx, jane.ID, "Tip", "Try the stream"))

		unread, err := c.UnreadNotifications(ctx)
		require.NoError(t, err)
		require.Len(t, unread, 2)

		n, err := c.MarkNotificationRead(ctx, unread[0].ID)
		require.NoError(t, err)
		assert.True(t, n.IsRead)
		assert.NotNil(t, n.ReadAt)

		updated, err := c.MarkAllNotificationsRead(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), updated)

		require.NoError(t, c.DeleteNotification(ctx, unread[0].ID))
		all, err := c.Notifications(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)

		err = c.DeleteNotification(ctx, unread[0].ID)
		assert.Equal(t, client.KindUnknown, client.KindOf(err))
	})

	t.Run("stream", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		got := make(chan client.Notification, 1)
		errCh := make(chan error, 1)
		go func() {
			errCh <- c.StreamNotifications(ctx, func(n client.Notification) error {
				got <- n
				return client.ErrStopStream
			})
		}()

		require.Eventually(t, func() bool {
			require.NoError(t, a.Notifications.NotifyUser(context.Background(), jane.ID, "Live", "Streamed"))
			select {
			case n := <-got:
				assert.Equal(t, "Streamed", n.Message)
				return true
			default:
				return false
			}
		}, 4*time.Second, 50*time.Millisecond)
		assert.NoError(t, <-errCh)
	})

	require.NoError(t, c.Logout(ctx))
	require.NoError(t, c.Logout(ctx), "logout is idempotent")

	_, err = c.Me(ctx)
	assert.ErrorIs(t, err, client.ErrUnauthenticated)
	assert.Contains(t, rec.all(), client.Toast{Level: client.LevelError, Message: "Your session has expired."})
}
