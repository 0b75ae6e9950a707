package client

import (
	"context"
	"net/http"
)

// CSRFCookie asks the server for the XSRF-TOKEN cookie. Call it before the
// first state-changing request.
func (c *Client) CSRFCookie(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/sanctum/csrf-cookie", nil, nil, "CSRF initialization failed.")
}

// Login authenticates the session. Wrong credentials yield an *Error of
// KindInvalidCredentials; a locked out credential yields KindRateLimited
// with RetryAfter set.
func (c *Client) Login(ctx context.Context, req LoginRequest) (User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/login", req, &out, "Login failed."); err != nil {
		return User{}, err
	}
	return out.User, nil
}

// Logout ends the session. The server answers with a fresh anonymous session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil, "Logout failed.")
}

// Me returns the user of the current session.
func (c *Client) Me(ctx context.Context) (User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/user/auth/me", nil, &out, "Failed to fetch user session."); err != nil {
		return User{}, err
	}
	return out.User, nil
}
