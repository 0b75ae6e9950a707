package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrymomot/starter/core/handler"
	"github.com/dmitrymomot/starter/core/response"
	"github.com/dmitrymomot/starter/pkg/ratelimiter"
)

// RateLimitConfig configures the request rate limiting middleware.
type RateLimitConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(ctx handler.Context) bool
	// Limiter counts requests per key. Every request is a hit.
	Limiter *ratelimiter.Limiter
	// KeyExtractor defines how to extract the rate limiting key from requests (default: client IP)
	KeyExtractor func(ctx handler.Context) string
	// ErrorHandler renders rejected requests (default: 429 with retry_after details)
	ErrorHandler func(ctx handler.Context, result ratelimiter.Result) handler.Response
	// SetHeaders adds X-RateLimit-* headers to every response
	SetHeaders bool
}

// RateLimit throttles requests per key. Rejected requests always carry Retry-After.
// Panics if no limiter is provided.
func RateLimit[C handler.Context](cfg RateLimitConfig) handler.Middleware[C] {
	if cfg.Limiter == nil {
		panic("ratelimit middleware: limiter is required")
	}
	if cfg.KeyExtractor == nil {
		cfg.KeyExtractor = ClientIPFrom
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(_ handler.Context, result ratelimiter.Result) handler.Response {
			return response.Error(response.ErrTooManyRequests.WithDetails(map[string]any{
				"retry_after": RetryAfterSeconds(result.RetryAfter()),
			}))
		}
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			result, err := cfg.Limiter.Attempt(ctx, cfg.KeyExtractor(ctx))
			if err != nil {
				return response.Error(response.ErrInternalServerError.WithError(err))
			}

			if !result.Allowed() {
				resp := cfg.ErrorHandler(ctx, result)
				return func(w http.ResponseWriter, r *http.Request) error {
					if cfg.SetHeaders {
						setRateLimitHeaders(w.Header(), result)
					}
					w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds(result.RetryAfter())))
					return resp(w, r)
				}
			}

			resp := next(ctx)
			if !cfg.SetHeaders {
				return resp
			}
			return func(w http.ResponseWriter, r *http.Request) error {
				setRateLimitHeaders(w.Header(), result)
				return resp(w, r)
			}
		}
	}
}

// RetryAfterSeconds rounds d up to whole seconds, with a minimum of one.
func RetryAfterSeconds(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}

func setRateLimitHeaders(h http.Header, result ratelimiter.Result) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(0, result.Remaining)))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
