package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/dmitrymomot/starter/core/logger"
	"github.com/dmitrymomot/starter/internal/user"
)

// Authenticator verifies credentials. *user.Service implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (user.User, bool, error)
}

// Service checks login attempts against the throttle and the user store.
type Service struct {
	users    Authenticator
	throttle *Throttle
	logger   *slog.Logger
}

// NewService creates a Service. A nil logger discards output.
func NewService(users Authenticator, throttle *Throttle, log *slog.Logger) *Service {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{users: users, throttle: throttle, logger: log}
}

// Credentials is a single login attempt.
type Credentials struct {
	Email    string
	Password string
	IP       string
}

// Login returns the user owning c. Every attempt is counted against the
// throttle before the password is checked. It fails with *ErrTooManyAttempts
// while locked out and with ErrInvalidCredentials on a mismatch. Success
// clears the throttle.
func (s *Service) Login(ctx context.Context, c Credentials) (user.User, error) {
	key := ThrottleKey(c.Email, c.IP)

	if err := s.throttle.Reserve(ctx, key); err != nil {
		var locked *ErrTooManyAttempts
		if errors.As(err, &locked) {
			s.logger.WarnContext(ctx, "login locked out",
				logger.Event("login"),
				logger.Result("throttled"),
				logger.Email(c.Email),
				logger.ClientIP(c.IP),
			)
		}
		return user.User{}, err
	}

	u, ok, err := s.users.Authenticate(ctx, c.Email, c.Password)
	if err != nil {
		return user.User{}, err
	}
	if !ok {
		s.logger.InfoContext(ctx, "login failed",
			logger.Event("login"),
			logger.Result("failure"),
			logger.Email(c.Email),
			logger.ClientIP(c.IP),
		)
		return user.User{}, ErrInvalidCredentials
	}

	if err := s.throttle.Clear(ctx, key); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear login attempts", logger.Error(err))
	}
	s.logger.InfoContext(ctx, "login succeeded",
		logger.Event("login"),
		logger.Result("success"),
		logger.UserID(u.ID),
		logger.ClientIP(c.IP),
	)
	return u, nil
}
