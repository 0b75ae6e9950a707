package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/dmitrymomot/starter/core/handler"
	"github.com/dmitrymomot/starter/core/response"
)

const (
	// CSRFHeaderName carries the value of the readable XSRF-TOKEN cookie.
	CSRFHeaderName = "X-XSRF-TOKEN"
	// AltCSRFHeaderName is accepted for clients that send the raw token.
	AltCSRFHeaderName = "X-CSRF-TOKEN"
)

// CSRFConfig configures the CSRF middleware.
type CSRFConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(ctx handler.Context) bool
	// ErrorHandler renders a token mismatch (default: 419 page_expired)
	ErrorHandler func(ctx handler.Context) handler.Response
}

// CSRF rejects state-changing requests whose echoed token does not match the
// session's CSRF token. It must run after Session.
func CSRF[C handler.Context]() handler.Middleware[C] {
	return CSRFWithConfig[C](CSRFConfig{})
}

// CSRFWithConfig creates a CSRF middleware with custom configuration.
func CSRFWithConfig[C handler.Context](cfg CSRFConfig) handler.Middleware[C] {
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(handler.Context) handler.Response {
			return response.Error(response.ErrPageExpired)
		}
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			r := ctx.Request()
			if isSafeMethod(r.Method) {
				return next(ctx)
			}

			sess, ok := GetSession(ctx)
			if !ok || sess.CSRFToken == "" {
				return cfg.ErrorHandler(ctx)
			}

			token := r.Header.Get(CSRFHeaderName)
			if token == "" {
				token = r.Header.Get(AltCSRFHeaderName)
			}
			if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(sess.CSRFToken)) != 1 {
				return cfg.ErrorHandler(ctx)
			}

			return next(ctx)
		}
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
