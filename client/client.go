package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
)

const (
	// CSRFCookieName is the readable cookie carrying the CSRF token.
	CSRFCookieName = "XSRF-TOKEN"
	// CSRFHeaderName echoes the CSRF token on every request.
	CSRFHeaderName = "X-XSRF-TOKEN"
)

// Client calls the starter API with a cookie-based session.
// It is safe for concurrent use.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	notifier Notifier
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. A cookie jar is added when
// it has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithNotifier sets where toasts are reported. The default drops them.
func WithNotifier(n Notifier) Option {
	return func(c *Client) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithLogger sets the logger for failed requests.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the API rooted at baseURL, including the API
// prefix, for example "https://example.com/api".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		baseURL:  u,
		notifier: nopNotifier{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		hc := *c.http
		hc.Jar = jar
		c.http = &hc
	}
	return c, nil
}

// Jar returns the cookie jar holding the session.
func (c *Client) Jar() http.CookieJar {
	return c.http.Jar
}

// csrfToken returns the current value of the XSRF-TOKEN cookie.
func (c *Client) csrfToken() string {
	for _, ck := range c.http.Jar.Cookies(c.baseURL) {
		if ck.Name == CSRFCookieName {
			if v, err := url.QueryUnescape(ck.Value); err == nil {
				return v
			}
			return ck.Value
		}
	}
	return ""
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + path
}

// do sends a JSON request and decodes a 2xx body into out. Any other outcome
// becomes an *Error, reported to the notifier with fallback as the message
// for failures without a dedicated one.
func (c *Client) do(ctx context.Context, method, path string, body, out any, fallback string) error {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		r = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), r)
	if err != nil {
		return fmt.Errorf("client: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.csrfToken(); token != "" {
		req.Header.Set(CSRFHeaderName, token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(ctx, method, path, &Error{Kind: KindUnknown, Message: fallback, cause: err}, fallback)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.fail(ctx, method, path, parseError(resp), fallback)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return errors.Join(ErrDecodeResponse, err)
	}
	return nil
}

func (c *Client) fail(ctx context.Context, method, path string, e *Error, fallback string) error {
	c.logger.DebugContext(ctx, "api request failed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", e.Status),
		slog.String("kind", e.Kind.String()),
	)
	if !isSilent(ctx) {
		if t, ok := toastFor(e, fallback); ok {
			c.notifier.Notify(ctx, t)
		}
	}
	return e
}
