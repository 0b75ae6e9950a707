// Package logger builds slog loggers and provides attribute helpers.
//
//	log := logger.New(logger.WithProduction("starter"))
//	log.Info("server starting", logger.Component("http"), logger.Event("startup"))
//
// Context extractors add request-scoped attributes (request ID, user ID) to
// every record logged with a *Context method:
//
//	log := logger.New(
//		logger.WithDevelopment("starter"),
//		logger.WithContextExtractors(requestIDFromContext),
//	)
//	log.InfoContext(ctx, "login succeeded", logger.UserID(u.ID))
//
// Attribute helpers return an empty slog.Attr for nil or empty input, which
// slog drops, so they can be used without nil checks.
package logger
