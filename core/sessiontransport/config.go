package sessiontransport

import (
	"github.com/dmitrymomot/starter/core/cookie"
	"github.com/dmitrymomot/starter/core/session"
)

// CookieConfig provides environment-based configuration for the cookie transport.
type CookieConfig struct {
	CookieName     string `env:"SESSION_COOKIE_NAME" envDefault:"starter_session"`
	CSRFCookieName string `env:"CSRF_COOKIE_NAME" envDefault:"XSRF-TOKEN"`
}

// DefaultCookieConfig returns a CookieConfig with the default cookie names.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		CookieName:     DefaultCookieName,
		CSRFCookieName: DefaultCSRFCookieName,
	}
}

// NewCookieFromConfig creates a cookie transport from configuration.
func NewCookieFromConfig(cfg CookieConfig, mgr *session.Manager, cookies *cookie.Manager) *Cookie {
	return NewCookie(mgr, cookies,
		WithCookieName(cfg.CookieName),
		WithCSRFCookieName(cfg.CSRFCookieName),
	)
}
