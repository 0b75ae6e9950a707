// Package middleware provides handler.Middleware implementations for the API:
// request IDs, client IP extraction, request logging, CORS, security headers,
// body size limits, sessions, CSRF verification, authentication, and rate
// limiting.
//
// Every middleware has a short constructor with defaults and a WithConfig
// variant. Configs accept a Skip func to bypass the middleware per request.
//
//	r := router.New[*router.Context](router.WithErrorHandler(response.JSONErrorHandler[*router.Context]))
//	r.Use(
//		middleware.RequestID[*router.Context](),
//		middleware.ClientIP[*router.Context](),
//		middleware.LoggingWithLogger[*router.Context](log),
//		middleware.Session[*router.Context](transport),
//		middleware.CSRF[*router.Context](),
//	)
//
// Middlewares that need to write headers do it in the returned Response,
// before the wrapped Response runs, so headers are in place before the body.
package middleware
