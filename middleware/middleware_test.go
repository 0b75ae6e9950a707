package middleware_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/starter/core/handler"
	"github.com/dmitrymomot/starter/core/response"
	"github.com/dmitrymomot/starter/core/router"
	"github.com/dmitrymomot/starter/middleware"
)

type ctx = *router.Context

func newRouter(mws ...handler.Middleware[ctx]) router.Router[ctx] {
	r := router.New[ctx](router.WithErrorHandler(response.JSONErrorHandler[ctx]))
	r.Use(mws...)
	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func ok(ctx ctx) handler.Response {
	return response.JSON(map[string]string{"status": "ok"})
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	var seen string
	r := newRouter(middleware.RequestID[ctx]())
	r.Get("/", func(c ctx) handler.Response {
		seen, _ = middleware.GetRequestID(c)
		return ok(c)
	})

	t.Run("generates an ID", func(t *testing.T) {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		assert.Equal(t, w.Header().Get("X-Request-ID"), seen)
	})

	t.Run("reuses an incoming ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "abc-123")
		w := serve(r, req)
		assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
	})

	t.Run("replaces an oversized ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", strings.Repeat("x", 200))
		w := serve(r, req)
		assert.Len(t, w.Header().Get("X-Request-ID"), 36)
	})
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	var ip string
	r := newRouter(middleware.ClientIP[ctx]())
	r.Get("/", func(c ctx) handler.Response {
		ip = middleware.ClientIPFrom(c)
		return ok(c)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	serve(r, req)
	assert.Equal(t, "203.0.113.7", ip)
}

func TestLogging(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	r := newRouter(middleware.RequestID[ctx](), middleware.LoggingWithLogger[ctx](log))
	r.Get("/ok", ok)
	r.Get("/missing", func(ctx) handler.Response {
		return response.Error(response.ErrNotFound)
	})
	r.Get("/boom", func(ctx) handler.Response {
		return response.Error(errors.New("database is down"))
	})

	record := func(t *testing.T, path string) map[string]any {
		t.Helper()
		buf.Reset()
		serve(r, httptest.NewRequest(http.MethodGet, path, nil))
		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		return rec
	}

	t.Run("success at info", func(t *testing.T) {
		rec := record(t, "/ok")
		assert.Equal(t, "INFO", rec["level"])
		assert.EqualValues(t, http.StatusOK, rec["status_code"])
		assert.Equal(t, "/ok", rec["path"])
		assert.NotEmpty(t, rec["request_id"])
		assert.Positive(t, rec["bytes_out"])
	})

	t.Run("client error status comes from the returned error", func(t *testing.T) {
		rec := record(t, "/missing")
		assert.Equal(t, "WARN", rec["level"])
		assert.EqualValues(t, http.StatusNotFound, rec["status_code"])
	})

	t.Run("server error at error level", func(t *testing.T) {
		rec := record(t, "/boom")
		assert.Equal(t, "ERROR", rec["level"])
		assert.EqualValues(t, http.StatusInternalServerError, rec["status_code"])
		assert.Equal(t, "database is down", rec["error"])
	})
}

func TestCORS(t *testing.T) {
	t.Parallel()

	r := newRouter(middleware.CORSWithConfig[ctx](middleware.CORSConfig{
		AllowOrigins:     []string{"https://app.example.com"},
		AllowCredentials: true,
		MaxAge:           600,
	}))
	r.Options("/api/{path...}", func(ctx) handler.Response { return response.NoContent() })
	r.Get("/api/items", ok)

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/items", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "X-XSRF-TOKEN")
		w := serve(r, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), middleware.CSRFHeaderName)
		assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("preflight from unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/items", nil)
		req.Header.Set("Origin", "https://evil.example.net")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := serve(r, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("actual request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
		req.Header.Set("Origin", "https://app.example.com")
		w := serve(r, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown route keeps 404", func(t *testing.T) {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAllowOriginSubdomain(t *testing.T) {
	t.Parallel()

	allow := middleware.AllowOriginSubdomain("example.com")
	for origin, want := range map[string]bool{
		"https://example.com":          true,
		"https://app.example.com:8443": true,
		"https://example.com.evil.io":  false,
		"https://badexample.com":       false,
		"":                             false,
	} {
		_, got := allow(origin)
		assert.Equal(t, want, got, origin)
	}
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	r := newRouter(middleware.SecurityHeaders[ctx]())
	r.Get("/", ok)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestBodyLimit(t *testing.T) {
	t.Parallel()

	r := newRouter(middleware.BodyLimitWithConfig[ctx](middleware.BodyLimitConfig{MaxSize: 16}))
	r.Post("/", ok)

	w := serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"b"}`)))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
