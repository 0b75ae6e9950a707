package response

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/starter/core/handler"
)

type wsConfig struct {
	upgrader     *websocket.Upgrader
	onConnect    func(context.Context, *websocket.Conn) error
	onDisconnect func(context.Context, *websocket.Conn)
	onError      func(context.Context, error)
}

// WebSocketOption configures a WebSocket response.
type WebSocketOption func(*wsConfig)

// WithWSHandshakeTimeout limits the duration of the opening handshake.
func WithWSHandshakeTimeout(timeout time.Duration) WebSocketOption {
	return func(c *wsConfig) {
		c.upgrader.HandshakeTimeout = timeout
	}
}

// WithWSOriginCheck sets the function that validates the Origin header.
// Without it, gorilla/websocket only accepts same-host origins.
func WithWSOriginCheck(fn func(r *http.Request) bool) WebSocketOption {
	return func(c *wsConfig) {
		c.upgrader.CheckOrigin = fn
	}
}

// WithWSAllowedOrigins accepts handshakes whose Origin header is in origins.
func WithWSAllowedOrigins(origins ...string) WebSocketOption {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return WithWSOriginCheck(func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	})
}

// WithWSOnConnect runs fn after a successful upgrade.
// Returning an error closes the connection before the stream handler runs.
func WithWSOnConnect(fn func(context.Context, *websocket.Conn) error) WebSocketOption {
	return func(c *wsConfig) {
		c.onConnect = fn
	}
}

// WithWSOnDisconnect runs fn after the connection is closed.
func WithWSOnDisconnect(fn func(context.Context, *websocket.Conn)) WebSocketOption {
	return func(c *wsConfig) {
		c.onDisconnect = fn
	}
}

// WithWSErrorHandler receives upgrade and stream errors.
func WithWSErrorHandler(fn func(context.Context, error)) WebSocketOption {
	return func(c *wsConfig) {
		c.onError = fn
	}
}

// WebSocket upgrades the connection and hands it to stream.
// Errors after the upgrade cannot be rendered as HTTP responses, so they are
// reported to the error handler option instead of the router.
func WebSocket(stream func(context.Context, *websocket.Conn) error, opts ...WebSocketOption) handler.Response {
	cfg := &wsConfig{
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	reportErr := func(ctx context.Context, err error) {
		if cfg.onError != nil && err != nil {
			cfg.onError(ctx, err)
		}
	}

	return func(w http.ResponseWriter, r *http.Request) error {
		conn, err := cfg.upgrader.Upgrade(w, r, handshakeHeader(w.Header()))
		if err != nil {
			// Upgrade has already replied with an HTTP error.
			reportErr(r.Context(), err)
			return nil
		}
		defer func() {
			_ = conn.Close()
			if cfg.onDisconnect != nil {
				cfg.onDisconnect(r.Context(), conn)
			}
		}()

		if cfg.onConnect != nil {
			if err := cfg.onConnect(r.Context(), conn); err != nil {
				reportErr(r.Context(), err)
				return nil
			}
		}

		reportErr(r.Context(), stream(r.Context(), conn))
		return nil
	}
}

// handshakeHeader returns the cookies middleware set on w. The upgrader writes
// the handshake on the hijacked connection and ignores the writer's headers.
func handshakeHeader(h http.Header) http.Header {
	cookies := h.Values("Set-Cookie")
	if len(cookies) == 0 {
		return nil
	}
	return http.Header{"Set-Cookie": slices.Clone(cookies)}
}
