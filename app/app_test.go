package app_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/starter/app"
	"github.com/dmitrymomot/starter/core/cookie"
	"github.com/dmitrymomot/starter/core/server"
	"github.com/dmitrymomot/starter/core/session"
	"github.com/dmitrymomot/starter/core/sessiontransport"
	"github.com/dmitrymomot/starter/internal/auth"
	"github.com/dmitrymomot/starter/internal/user"
	"github.com/dmitrymomot/starter/middleware"
)

const password = "correct-horse-battery"

func testConfig() app.Config {
	srv := server.DefaultConfig()
	srv.Addr = "127.0.0.1:0"

	return app.Config{
		Server:             srv,
		Cookie:             cookie.Config{Secrets: "test-secret-key-for-cookie-manager-32chars", Path: "/"},
		Session:            session.DefaultConfig(),
		Auth:               auth.DefaultConfig(),
		AppName:            "starter-test",
		Env:                "test",
		APIPrefix:          "/api",
		MaxBodySize:        1 << 20,
		APIRateLimit:       1000,
		APIRateLimitWindow: time.Minute,
		RateLimitCleanup:   time.Minute,
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type env struct {
	t      *testing.T
	app    *app.App
	server *httptest.Server
}

func newEnv(t *testing.T, cfg app.Config, opts ...app.Option) *env {
	t.Helper()

	a, err := app.New(context.Background(), cfg, append([]app.Option{app.WithLogger(discard())}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return &env{t: t, app: a, server: srv}
}

func (e *env) seed(name, email string, role user.Role) user.User {
	e.t.Helper()
	u, err := e.app.Users.Create(context.Background(), user.CreateParams{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     role,
	})
	require.NoError(e.t, err)
	return u
}

type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func (e *env) browser() *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(e.t, err)
	return &browser{t: e.t, base: e.server.URL, client: &http.Client{Jar: jar}}
}

func (b *browser) csrfToken() string {
	u, _ := url.Parse(b.base)
	for _, c := range b.client.Jar.Cookies(u) {
		if c.Name == sessiontransport.DefaultCSRFCookieName {
			return c.Value
		}
	}
	return ""
}

func (b *browser) do(method, path string, body any) (*http.Response, map[string]any) {
	b.t.Helper()

	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(b.t, err)
		r = strings.NewReader(string(raw))
	}
	req, err := http.NewRequest(method, b.base+path, r)
	require.NoError(b.t, err)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := b.csrfToken(); token != "" {
		req.Header.Set(middleware.CSRFHeaderName, token)
	}

	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(b.t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func (b *browser) login(email string) {
	b.t.Helper()
	resp, _ := b.do(http.MethodGet, "/api/sanctum/csrf-cookie", nil)
	require.Equal(b.t, http.StatusNoContent, resp.StatusCode)
	resp, out := b.do(http.MethodPost, "/api/login", map[string]any{
		"login_credential": email,
		"password":         password,
	})
	require.Equal(b.t, http.StatusOK, resp.StatusCode, out)
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("rejects relative API prefix", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.APIPrefix = "api"
		_, err := app.New(context.Background(), cfg, app.WithLogger(discard()))
		assert.ErrorIs(t, err, app.ErrInvalidPrefix)
	})

	t.Run("rejects nil logger", func(t *testing.T) {
		t.Parallel()
		_, err := app.New(context.Background(), testConfig(), app.WithLogger(nil))
		assert.ErrorIs(t, err, app.ErrNilLogger)
	})

	t.Run("rejects nil redis client", func(t *testing.T) {
		t.Parallel()
		_, err := app.New(context.Background(), testConfig(), app.WithRedis(nil))
		assert.ErrorIs(t, err, app.ErrNilDependency)
	})

	t.Run("rejects short cookie secret", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.Cookie.Secrets = "short"
		_, err := app.New(context.Background(), cfg, app.WithLogger(discard()))
		assert.Error(t, err)
	})
}

func TestHealth(t *testing.T) {
	t.Parallel()
	e := newEnv(t, testConfig())
	b := e.browser()

	resp, _ := b.do(http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, out := b.do(http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", out["status"])
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()
	e := newEnv(t, testConfig())

	resp, _ := e.browser().do(http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAuthFlow(t *testing.T) {
	t.Parallel()
	e := newEnv(t, testConfig())
	e.seed("Jane", "jane@example.com", user.RoleUser)
	b := e.browser()

	resp, _ := b.do(http.MethodGet, "/api/user/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = b.do(http.MethodPost, "/api/login", map[string]any{
		"login_credential": "jane@example.com",
		"password":         password,
	})
	assert.Equal(t, 419, resp.StatusCode, "login without a CSRF token")

	b.login("JANE@example.com")

	resp, out := b.do(http.MethodGet, "/api/user/auth/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := out["user"].(map[string]any)
	assert.Equal(t, "jane@example.com", me["email"])
	assert.NotContains(t, me, "password_hash")

	resp, out = b.do(http.MethodPost, "/api/logout", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Logged out successfully.", out["message"])

	resp, _ = b.do(http.MethodGet, "/api/user/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginThrottle(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.Auth.MaxAttempts = 2
	e := newEnv(t, cfg)
	e.seed("Jane", "jane@example.com", user.RoleUser)
	b := e.browser()

	resp, _ := b.do(http.MethodGet, "/api/sanctum/csrf-cookie", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	bad := map[string]any{"login_credential": "jane@example.com", "password": "nope-nope"}
	for range 2 {
		resp, _ = b.do(http.MethodPost, "/api/login", bad)
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	}

	resp, out := b.do(http.MethodPost, "/api/login", map[string]any{
		"login_credential": "jane@example.com",
		"password":         password,
	})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Contains(t, out["message"], "Too many login attempts")
}

func TestAPIRateLimit(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.APIRateLimit = 3
	e := newEnv(t, cfg)
	b := e.browser()

	for i := range 3 {
		resp, _ := b.do(http.MethodGet, "/api/sanctum/csrf-cookie", nil)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Equal(t, strconv.Itoa(2-i), resp.Header.Get("X-RateLimit-Remaining"))
	}

	resp, _ := b.do(http.MethodGet, "/api/sanctum/csrf-cookie", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	resp, _ = b.do(http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "health routes are not limited")
}

func TestUserManagement(t *testing.T) {
	t.Parallel()
	e := newEnv(t, testConfig())
	e.seed("Ada", "ada@example.com", user.RoleAdmin)
	bob := e.seed("Bob", "bob@example.com", user.RoleUser)
	carol := e.seed("Carol", "carol@example.com", user.RoleUser)

	admin := e.browser()
	admin.login("ada@example.com")
	member := e.browser()
	member.login("bob@example.com")

	t.Run("member cannot list users", func(t *testing.T) {
		resp, _ := member.do(http.MethodGet, "/api/users", nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("admin lists users", func(t *testing.T) {
		resp, out := admin.do(http.MethodGet, "/api/users", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, out["users"], 3)
	})

	t.Run("member updates own profile", func(t *testing.T) {
		resp, out := member.do(http.MethodPut, "/api/users/"+strconv.FormatInt(bob.ID, 10)+"/update", map[string]any{
			"name": "Robert",
			"bio":  "Hello",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode, out)
		assert.Equal(t, "Profile updated successfully.", out["message"])

		resp, out = member.do(http.MethodGet, "/api/user/auth/me", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Robert", out["user"].(map[string]any)["name"])
	})

	t.Run("member cannot update another user", func(t *testing.T) {
		resp, _ := member.do(http.MethodPut, "/api/users/"+strconv.FormatInt(carol.ID, 10)+"/update", map[string]any{
			"name": "Mallory",
		})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("admin promotion notifies the user", func(t *testing.T) {
		resp, out := admin.do(http.MethodPut, "/api/users/"+strconv.FormatInt(bob.ID, 10)+"/update", map[string]any{
			"name": "Robert",
			"role": "admin",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode, out)
		assert.Equal(t, "admin", out["user"].(map[string]any)["role"])

		resp, out = member.do(http.MethodGet, "/api/notifications/unread", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		items := out["notifications"].([]any)
		require.Len(t, items, 1)
		n := items[0].(map[string]any)
		assert.Equal(t, "Role updated", n["subject"])

		id := strconv.FormatInt(int64(n["id"].(float64)), 10)
		resp, out = member.do(http.MethodPatch, "/api/notifications/"+id+"/read", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, out["notification"].(map[string]any)["is_read"])

		resp, out = member.do(http.MethodGet, "/api/notifications/unread", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, out["notifications"])
	})

	t.Run("admin deletes a user", func(t *testing.T) {
		resp, out := admin.do(http.MethodDelete, "/api/users/"+strconv.FormatInt(carol.ID, 10)+"/delete", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "User deleted successfully.", out["message"])

		resp, _ = admin.do(http.MethodDelete, "/api/users/"+strconv.FormatInt(carol.ID, 10)+"/delete", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("deleting yourself ends the session", func(t *testing.T) {
		resp, _ := member.do(http.MethodDelete, "/api/users/"+strconv.FormatInt(bob.ID, 10)+"/delete", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = member.do(http.MethodGet, "/api/user/auth/me", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestNotificationStream(t *testing.T) {
	t.Parallel()
	e := newEnv(t, testConfig())
	jane := e.seed("Jane", "jane@example.com", user.RoleUser)
	b := e.browser()
	b.login("jane@example.com")

	dialer := websocket.Dialer{Jar: b.client.Jar, HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial("ws"+strings.TrimPrefix(e.server.URL, "http")+"/api/notifications/stream", nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	// The subscription is registered after the upgrade, so keep publishing
	// until the first message arrives.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			_ = e.app.Notifications.NotifyUser(context.Background(), jane.ID, "Ping", "Hello Jane")
			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "Hello Jane", msg["message"])
	assert.Equal(t, float64(jane.ID), msg["user_id"])
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.CORSOrigins = []string{"https://app.example.com"}
	e := newEnv(t, cfg)

	req, err := http.NewRequest(http.MethodOptions, e.server.URL+"/api/login", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://app.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestRedisBackedApp(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := testConfig()
	cfg.Auth.MaxAttempts = 1
	e := newEnv(t, cfg, app.WithRedis(client))
	e.seed("Jane", "jane@example.com", user.RoleUser)

	resp, out := e.browser().do(http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", out["checks"].(map[string]any)["redis"])

	b := e.browser()
	b.login("jane@example.com")
	resp, _ = b.do(http.MethodGet, "/api/user/auth/me", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	keys := mr.Keys()
	assert.NotEmpty(t, keys, "sessions and counters are stored in redis")

	other := e.browser()
	resp, _ = other.do(http.MethodGet, "/api/sanctum/csrf-cookie", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	bad := map[string]any{"login_credential": "jane@example.com", "password": "nope-nope"}
	resp, _ = other.do(http.MethodPost, "/api/login", bad)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp, _ = other.do(http.MethodPost, "/api/login", bad)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
