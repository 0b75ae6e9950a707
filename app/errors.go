package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/dmitrymomot/starter/core/handler"
	"github.com/dmitrymomot/starter/core/response"
)

var (
	ErrNilLogger      = errors.New("app: logger cannot be nil")
	ErrNilDependency  = errors.New("app: dependency cannot be nil")
	ErrSentryInit     = errors.New("app: failed to initialize sentry")
	ErrInvalidPrefix  = errors.New("app: API prefix must start with /")
	ErrAlreadyRunning = errors.New("app: already running")
)

const sentryFlushTimeout = 2 * time.Second

func initSentry(cfg Config) error {
	if cfg.SentryDSN == "" {
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.Env,
		ServerName:  cfg.AppName,
	}); err != nil {
		return errors.Join(ErrSentryInit, err)
	}
	return nil
}

// errorHandler renders errors as JSON and reports server errors to Sentry
// when it is configured.
func errorHandler[C handler.Context](reportToSentry bool) handler.ErrorHandler[C] {
	return func(ctx C, err error) {
		if reportToSentry && response.AsHTTPError(err).Status >= http.StatusInternalServerError {
			hub := sentry.CurrentHub().Clone()
			hub.Scope().SetRequest(ctx.Request())
			hub.CaptureException(err)
		}
		response.JSONErrorHandler(ctx, err)
	}
}
