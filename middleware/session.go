package middleware

import (
	"io"
	"log/slog"

	"github.com/dmitrymomot/starter/core/handler"
	"github.com/dmitrymomot/starter/core/logger"
	"github.com/dmitrymomot/starter/core/response"
	"github.com/dmitrymomot/starter/core/session"
)

type sessionKey struct{}

// SessionTransport loads and stores the session of a request.
// sessiontransport.Cookie implements it.
type SessionTransport interface {
	Load(handler.Context) (session.Session, error)
	Store(handler.Context, session.Session) error
}

// SessionConfig configures the session middleware.
type SessionConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(ctx handler.Context) bool
	// Transport loads the session before the handler and stores it afterwards
	Transport SessionTransport
	// Logger for structured logging (default: slog with io.Discard)
	Logger *slog.Logger
}

// Session loads the request session into the context and stores it once the
// handler returns, before the response is written, so cookies reach the client.
func Session[C handler.Context](transport SessionTransport) handler.Middleware[C] {
	return SessionWithConfig[C](SessionConfig{Transport: transport})
}

// SessionWithConfig creates a session middleware with custom configuration.
// Load failures degrade to an empty session. Store failures become a 500.
func SessionWithConfig[C handler.Context](cfg SessionConfig) handler.Middleware[C] {
	if cfg.Transport == nil {
		panic("session middleware: transport is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			sess, err := cfg.Transport.Load(ctx)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return response.Error(ctxErr)
				}
				cfg.Logger.ErrorContext(ctx, "failed to load session", logger.Error(err))
				sess = session.Session{}
			}

			ctx.SetValue(sessionKey{}, sess)
			resp := next(ctx)

			current, ok := GetSession(ctx)
			if !ok {
				return resp
			}
			if err := cfg.Transport.Store(ctx, current); err != nil {
				cfg.Logger.ErrorContext(ctx, "failed to store session",
					logger.Error(err),
					logger.SessionID(current.ID.String()),
				)
				return response.Error(response.ErrInternalServerError.WithError(err))
			}
			return resp
		}
	}
}

// GetSession returns the session loaded by Session.
func GetSession(ctx handler.Context) (session.Session, bool) {
	if ctx == nil {
		return session.Session{}, false
	}
	sess, ok := ctx.Value(sessionKey{}).(session.Session)
	return sess, ok
}

// MustGetSession returns the session or panics when Session is not installed.
func MustGetSession(ctx handler.Context) session.Session {
	sess, ok := GetSession(ctx)
	if !ok {
		panic("session not found in context")
	}
	return sess
}

// SetSession replaces the session in the context. Session stores the
// replacement after the handler returns.
func SetSession(ctx handler.Context, sess session.Session) {
	ctx.SetValue(sessionKey{}, sess)
}
