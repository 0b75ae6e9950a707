package middleware

import (
	"net/http"

	"github.com/dmitrymomot/starter/core/handler"
	"github.com/dmitrymomot/starter/pkg/clientip"
)

type clientIPContextKey struct{}

// ClientIPConfig configures the client IP middleware.
type ClientIPConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(ctx handler.Context) bool
	// TrustProxyHeaders reads CF-Connecting-IP, X-Forwarded-For and friends.
	// Enable it only behind a proxy that overwrites them.
	TrustProxyHeaders bool
	// HeaderName is the response header echoing the IP when StoreInHeader is set
	HeaderName string
	// StoreInHeader includes the IP in response headers
	StoreInHeader bool
}

// ClientIP stores the client IP in the context, trusting proxy headers.
func ClientIP[C handler.Context]() handler.Middleware[C] {
	return ClientIPWithConfig[C](ClientIPConfig{TrustProxyHeaders: true})
}

// ClientIPWithConfig creates a client IP middleware with custom configuration.
func ClientIPWithConfig[C handler.Context](cfg ClientIPConfig) handler.Middleware[C] {
	if cfg.HeaderName == "" {
		cfg.HeaderName = "X-Client-IP"
	}
	var opts []clientip.Option
	if !cfg.TrustProxyHeaders {
		opts = append(opts, clientip.WithoutProxyHeaders())
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			ip := clientip.GetIP(ctx.Request(), opts...)
			ctx.SetValue(clientIPContextKey{}, ip)

			resp := next(ctx)
			if !cfg.StoreInHeader {
				return resp
			}
			return func(w http.ResponseWriter, r *http.Request) error {
				w.Header().Set(cfg.HeaderName, ip)
				return resp(w, r)
			}
		}
	}
}

// GetClientIP returns the IP stored by ClientIP.
func GetClientIP(ctx handler.Context) (string, bool) {
	ip, ok := ctx.Value(clientIPContextKey{}).(string)
	return ip, ok && ip != ""
}

// ClientIPFrom returns the stored IP, falling back to the request itself.
func ClientIPFrom(ctx handler.Context) string {
	if ip, ok := GetClientIP(ctx); ok {
		return ip
	}
	return clientip.GetIP(ctx.Request(), clientip.WithoutProxyHeaders())
}
