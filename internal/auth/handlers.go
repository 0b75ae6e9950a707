package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrymomot/starter/core/binder"
	"github.com/dmitrymomot/starter/core/handler"
	"github.com/dmitrymomot/starter/core/response"
	"github.com/dmitrymomot/starter/core/session"
	"github.com/dmitrymomot/starter/internal/user"
	"github.com/dmitrymomot/starter/middleware"
)

const (
	msgLoggedIn  = "Login successful."
	msgLoggedOut = "Logged out successfully."
	msgFailed    = "These credentials do not match our records."
	msgThrottled = "Too many login attempts. Please try again in %d seconds."
)

// CodeInvalidCredentials is the error code of a failed login. It tells a
// credential mismatch apart from a malformed form; both are 422.
const CodeInvalidCredentials = "invalid_credentials"

// Sessions changes the authentication state of a session.
// *session.Manager implements it.
type Sessions interface {
	Authenticate(ctx context.Context, sess session.Session, userID int64, remember bool) (session.Session, error)
	Logout(ctx context.Context, sess session.Session) (session.Session, error)
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Credential string `json:"login_credential" sanitize:"trim" validate:"required;email;max:255"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me"`
}

// LoginResponse is returned on a successful login.
type LoginResponse struct {
	Message string    `json:"message"`
	User    user.User `json:"user"`
}

// MeResponse is the body of GET /user/auth/me.
type MeResponse struct {
	User user.User `json:"user"`
}

// CSRFCookieHandler answers 204. The session middleware has already issued
// the session and its readable CSRF cookie.
func CSRFCookieHandler[C handler.Context]() handler.HandlerFunc[C] {
	return func(ctx C) handler.Response {
		return response.NoContent()
	}
}

// LoginHandler authenticates the session with the posted credentials.
// The session token is rotated on success.
func LoginHandler[C handler.Context](svc *Service, sessions Sessions) handler.HandlerFunc[C] {
	return func(ctx C) handler.Response {
		sess, ok := middleware.GetSession(ctx)
		if !ok {
			return response.Error(ErrNoSession)
		}

		req, err := binder.Bind[LoginRequest](ctx.Request())
		if err != nil {
			return response.Error(err)
		}

		u, err := svc.Login(ctx, Credentials{
			Email:    req.Credential,
			Password: req.Password,
			IP:       middleware.ClientIPFrom(ctx),
		})
		if err != nil {
			return loginError(err)
		}

		sess, err = sessions.Authenticate(ctx, sess, u.ID, req.RememberMe)
		if err != nil {
			return response.Error(err)
		}
		middleware.SetSession(ctx, sess)
		middleware.SetUser(ctx, u)

		return response.JSON(LoginResponse{Message: msgLoggedIn, User: u})
	}
}

// LogoutHandler replaces the session with a fresh anonymous one.
// Anonymous callers get the same answer.
func LogoutHandler[C handler.Context](sessions Sessions) handler.HandlerFunc[C] {
	return func(ctx C) handler.Response {
		sess, ok := middleware.GetSession(ctx)
		if !ok {
			return response.Error(ErrNoSession)
		}

		fresh, err := sessions.Logout(ctx, sess)
		if err != nil {
			return response.Error(err)
		}
		middleware.SetSession(ctx, fresh)

		return response.Message(msgLoggedOut)
	}
}

// MeHandler returns the session user. Mount it behind RequireAuth.
func MeHandler[C handler.Context]() handler.HandlerFunc[C] {
	return func(ctx C) handler.Response {
		u, ok := middleware.GetUser[user.User](ctx)
		if !ok {
			return response.Error(response.ErrUnauthorized)
		}
		return response.JSON(MeResponse{User: u})
	}
}

func loginError(err error) handler.Response {
	var locked *ErrTooManyAttempts
	switch {
	case errors.As(err, &locked):
		seconds := middleware.RetryAfterSeconds(locked.RetryAfter)
		return response.WithHeaders(
			response.Error(response.ErrTooManyRequests.
				WithMessage(fmt.Sprintf(msgThrottled, seconds)).
				WithDetails(map[string]any{"retry_after": seconds})),
			map[string]string{"Retry-After": strconv.Itoa(seconds)},
		)
	case errors.Is(err, ErrInvalidCredentials):
		return response.Error(response.ValidationError(
			map[string][]string{"login_credential": {msgFailed}}, "login_credential").
			WithCode(CodeInvalidCredentials))
	}
	return response.Error(err)
}
