package app

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/starter/core/handler"
	"github.com/dmitrymomot/starter/core/health"
	"github.com/dmitrymomot/starter/core/response"
	"github.com/dmitrymomot/starter/core/router"
	"github.com/dmitrymomot/starter/core/sessiontransport"
	"github.com/dmitrymomot/starter/internal/auth"
	"github.com/dmitrymomot/starter/internal/notification"
	"github.com/dmitrymomot/starter/internal/user"
	"github.com/dmitrymomot/starter/middleware"
	"github.com/dmitrymomot/starter/pkg/ratelimiter"
)

type ctx = *router.Context

func (a *App) routes(transport *sessiontransport.Cookie, authSvc *auth.Service, apiLimiter *ratelimiter.Limiter) http.Handler {
	log := a.logger

	r := router.New[ctx](
		router.WithErrorHandler(errorHandler[ctx](a.cfg.SentryDSN != "")),
		router.WithLogger[ctx](log),
	)
	r.Use(
		middleware.RequestID[ctx](),
		middleware.ClientIP[ctx](),
		middleware.LoggingWithLogger[ctx](log),
		middleware.SecurityHeaders[ctx](),
	)
	if len(a.cfg.CORSOrigins) > 0 {
		r.Use(middleware.CORSWithConfig[ctx](middleware.CORSConfig{
			AllowOrigins:     a.cfg.CORSOrigins,
			AllowCredentials: true,
		}))
	}
	r.Use(middleware.BodyLimitWithConfig[ctx](middleware.BodyLimitConfig{MaxSize: a.cfg.MaxBodySize}))

	if len(a.cfg.CORSOrigins) > 0 {
		// Preflight requests need a route for the CORS middleware to answer.
		r.Options("/{path...}", func(ctx) handler.Response { return response.NoContent() })
	}
	r.Get("/health/live", health.Liveness[ctx])
	r.Get("/health/ready", health.Readiness[ctx](log, a.checks...))

	requireUser := middleware.AuthWithConfig[ctx](middleware.AuthConfig[user.User]{
		Loader:     a.Users.Get,
		IsNotFound: func(err error) bool { return errors.Is(err, user.ErrNotFound) },
		Required:   true,
		Logger:     log,
	})

	var wsOptions []response.WebSocketOption
	if len(a.cfg.CORSOrigins) > 0 {
		wsOptions = append(wsOptions, response.WithWSAllowedOrigins(a.cfg.CORSOrigins...))
	}
	notifications := notification.NewHandlers[ctx](a.Notifications, wsOptions...)

	mount := func(api router.Router[ctx]) {
		api.Use(
			middleware.RateLimit[ctx](middleware.RateLimitConfig{Limiter: apiLimiter, SetHeaders: true}),
			middleware.SessionWithConfig[ctx](middleware.SessionConfig{Transport: transport, Logger: log}),
			middleware.CSRF[ctx](),
		)

		api.Get("/sanctum/csrf-cookie", auth.CSRFCookieHandler[ctx]())
		api.Post("/login", auth.LoginHandler[ctx](authSvc, a.sessions))
		api.Post("/logout", auth.LogoutHandler[ctx](a.sessions))

		authed := api.With(requireUser)
		authed.Get("/user/auth/me", auth.MeHandler[ctx]())
		authed.Put("/users/{id}/update", user.UpdateHandler[ctx](a.Users))
		authed.Delete("/users/{id}/delete", user.DeleteHandler[ctx](a.Users))
		authed.With(user.RequireRole[ctx](user.RoleAdmin, user.RoleSuperAdmin)).
			Get("/users", user.ListHandler[ctx](a.Users))

		authed.Route("/notifications", func(n router.Router[ctx]) {
			n.Get("/", notifications.List)
			n.Get("/unread", notifications.Unread)
			n.Get("/stream", notifications.Stream)
			n.Post("/read-all", notifications.MarkAllRead)
			n.Patch("/{id}/read", notifications.MarkRead)
			n.Delete("/{id}", notifications.Delete)
		})
	}

	if a.cfg.APIPrefix == "" || a.cfg.APIPrefix == "/" {
		r.Group(mount)
	} else {
		r.Route(a.cfg.APIPrefix, mount)
	}
	return r
}
