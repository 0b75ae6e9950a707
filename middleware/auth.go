package middleware

import (
	"context"
	"io"
	"log/slog"

	"github.com/dmitrymomot/starter/core/handler"
	"github.com/dmitrymomot/starter/core/logger"
	"github.com/dmitrymomot/starter/core/response"
)

type userKey struct{}

// AuthConfig configures the authentication middleware.
type AuthConfig[U any] struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(ctx handler.Context) bool
	// Loader resolves the user bound to the session
	Loader func(ctx context.Context, id int64) (U, error)
	// IsNotFound reports loader errors meaning the user is gone.
	// Those make the request anonymous; any other error is a 500.
	// Nil treats every loader error as not found.
	IsNotFound func(err error) bool
	// Required rejects anonymous requests with 401
	Required bool
	// Logger for structured logging (default: slog with io.Discard)
	Logger *slog.Logger
}

// RequireAuth loads the session user and rejects anonymous requests with 401.
// It must run after Session.
func RequireAuth[C handler.Context, U any](loader func(ctx context.Context, id int64) (U, error)) handler.Middleware[C] {
	return AuthWithConfig[C](AuthConfig[U]{Loader: loader, Required: true})
}

// AuthWithConfig loads the user of an authenticated session into the context.
func AuthWithConfig[C handler.Context, U any](cfg AuthConfig[U]) handler.Middleware[C] {
	if cfg.Loader == nil {
		panic("auth middleware: loader is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			sess, ok := GetSession(ctx)
			if !ok || !sess.IsAuthenticated() {
				if cfg.Required {
					return response.Error(response.ErrUnauthorized)
				}
				return next(ctx)
			}

			u, err := cfg.Loader(ctx, sess.UserID)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return response.Error(ctxErr)
				}
				if cfg.IsNotFound != nil && !cfg.IsNotFound(err) {
					return response.Error(response.ErrInternalServerError.WithError(err))
				}
				cfg.Logger.WarnContext(ctx, "session user not found",
					logger.UserID(sess.UserID),
					logger.Error(err),
				)
				if cfg.Required {
					return response.Error(response.ErrUnauthorized)
				}
				return next(ctx)
			}

			ctx.SetValue(userKey{}, u)
			return next(ctx)
		}
	}
}

// GetUser returns the user loaded by the auth middleware.
func GetUser[U any](ctx handler.Context) (U, bool) {
	u, ok := ctx.Value(userKey{}).(U)
	return u, ok
}

// SetUser replaces the user in the context, for handlers that change it.
func SetUser[U any](ctx handler.Context, u U) {
	ctx.SetValue(userKey{}, u)
}
