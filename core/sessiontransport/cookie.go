package sessiontransport

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrymomot/starter/core/cookie"
	"github.com/dmitrymomot/starter/core/handler"
	"github.com/dmitrymomot/starter/core/session"
	"github.com/dmitrymomot/starter/pkg/clientip"
)

const (
	DefaultCookieName     = "starter_session"
	DefaultCSRFCookieName = "XSRF-TOKEN"
)

// Cookie carries Session.Token in a signed HTTP-only cookie and mirrors the
// session CSRF token into a cookie scripts can read.
type Cookie struct {
	manager  *session.Manager
	cookies  *cookie.Manager
	name     string
	csrfName string
}

// CookieOption configures a Cookie transport.
type CookieOption func(*Cookie)

// WithCookieName sets the session cookie name.
func WithCookieName(name string) CookieOption {
	return func(c *Cookie) {
		if name != "" {
			c.name = name
		}
	}
}

// WithCSRFCookieName sets the readable CSRF cookie name.
func WithCSRFCookieName(name string) CookieOption {
	return func(c *Cookie) {
		if name != "" {
			c.csrfName = name
		}
	}
}

// NewCookie creates a cookie-based session transport.
func NewCookie(mgr *session.Manager, cookies *cookie.Manager, opts ...CookieOption) *Cookie {
	c := &Cookie{
		manager:  mgr,
		cookies:  cookies,
		name:     DefaultCookieName,
		csrfName: DefaultCSRFCookieName,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Manager returns the session manager behind the transport.
func (c *Cookie) Manager() *session.Manager {
	return c.manager
}

// Load returns the session named by the request cookie. A missing, tampered,
// unknown, or expired cookie yields a new anonymous session instead of an error.
func (c *Cookie) Load(ctx handler.Context) (session.Session, error) {
	if token, err := c.token(ctx.Request()); err == nil {
		if sess, err := c.manager.GetByToken(ctx, token); err == nil {
			return sess, nil
		}
	}

	r := ctx.Request()
	return c.manager.New(ctx, session.NewSessionParams{
		IP:        clientip.GetIP(r),
		UserAgent: r.Header.Get("User-Agent"),
	})
}

// Store persists sess and writes cookies when the client copy is stale.
// A session marked deleted clears both cookies. A session changed by a
// concurrent request is left alone, cookies included.
func (c *Cookie) Store(ctx handler.Context, sess session.Session) error {
	stored, err := c.manager.Store(ctx, sess)
	if errors.Is(err, session.ErrNotAuthenticated) {
		c.Clear(ctx)
		return nil
	}
	if errors.Is(err, session.ErrSessionChanged) {
		return nil
	}
	if err != nil {
		return err
	}

	r := ctx.Request()
	token, _ := c.token(r)
	csrf, _ := c.cookies.Get(r, c.csrfName)
	if !stored.IsModified() && token == stored.Token && csrf == stored.CSRFToken {
		return nil
	}
	return c.write(ctx.ResponseWriter(), stored)
}

// Clear deletes both cookies.
func (c *Cookie) Clear(ctx handler.Context) {
	w := ctx.ResponseWriter()
	c.cookies.Delete(w, c.name)
	c.cookies.Delete(w, c.csrfName, cookie.WithHTTPOnly(false))
}

// CookieName returns the session cookie name.
func (c *Cookie) CookieName() string { return c.name }

// CSRFCookieName returns the readable CSRF cookie name.
func (c *Cookie) CSRFCookieName() string { return c.csrfName }

func (c *Cookie) token(r *http.Request) (string, error) {
	token, err := c.cookies.GetSigned(r, c.name)
	if err != nil {
		return "", errors.Join(ErrNoToken, err)
	}
	return token, nil
}

func (c *Cookie) write(w http.ResponseWriter, sess session.Session) error {
	until := time.Until(sess.ExpiresAt)
	if until <= 0 {
		return ErrExpiredSession
	}
	maxAge := int(until.Seconds())

	if err := c.cookies.SetSigned(w, c.name, sess.Token,
		cookie.WithHTTPOnly(true),
		cookie.WithSameSite(http.SameSiteLaxMode),
		cookie.WithMaxAge(maxAge),
	); err != nil {
		return err
	}
	return c.cookies.Set(w, c.csrfName, sess.CSRFToken,
		cookie.WithHTTPOnly(false),
		cookie.WithSameSite(http.SameSiteLaxMode),
		cookie.WithMaxAge(maxAge),
	)
}
