package middleware

import (
	"maps"
	"net/http"

	"github.com/dmitrymomot/starter/core/handler"
)

// SecurityHeadersConfig configures the security headers middleware.
// Empty fields are not sent.
type SecurityHeadersConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(ctx handler.Context) bool

	ContentTypeOptions        string
	FrameOptions              string
	ReferrerPolicy            string
	ContentSecurityPolicy     string
	CrossOriginResourcePolicy string
	// StrictTransportSecurity is dropped when IsDevelopment is set
	StrictTransportSecurity string

	// CustomHeaders are added as is
	CustomHeaders map[string]string

	IsDevelopment bool
}

// APISecurity suits a JSON API consumed by a browser SPA.
var APISecurity = SecurityHeadersConfig{
	ContentTypeOptions:        "nosniff",
	FrameOptions:              "DENY",
	ReferrerPolicy:            "strict-origin-when-cross-origin",
	ContentSecurityPolicy:     "default-src 'none'; frame-ancestors 'none'",
	CrossOriginResourcePolicy: "same-site",
	StrictTransportSecurity:   "max-age=31536000; includeSubDomains",
}

// SecurityHeaders applies APISecurity.
func SecurityHeaders[C handler.Context]() handler.Middleware[C] {
	return SecurityHeadersWithConfig[C](APISecurity)
}

// SecurityHeadersWithConfig sets the configured headers on every response.
func SecurityHeadersWithConfig[C handler.Context](cfg SecurityHeadersConfig) handler.Middleware[C] {
	if cfg.IsDevelopment {
		cfg.StrictTransportSecurity = ""
	}

	headers := make(map[string]string)
	for name, value := range map[string]string{
		"X-Content-Type-Options":       cfg.ContentTypeOptions,
		"X-Frame-Options":              cfg.FrameOptions,
		"Referrer-Policy":              cfg.ReferrerPolicy,
		"Content-Security-Policy":      cfg.ContentSecurityPolicy,
		"Cross-Origin-Resource-Policy": cfg.CrossOriginResourcePolicy,
		"Strict-Transport-Security":    cfg.StrictTransportSecurity,
	} {
		if value != "" {
			headers[name] = value
		}
	}
	maps.Copy(headers, cfg.CustomHeaders)

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			resp := next(ctx)
			return func(w http.ResponseWriter, r *http.Request) error {
				for name, value := range headers {
					w.Header().Set(name, value)
				}
				return resp(w, r)
			}
		}
	}
}
