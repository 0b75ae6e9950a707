package auth

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoSession          = errors.New("auth: session middleware is not installed")
)

// ErrTooManyAttempts is returned while a credential and IP pair is locked out.
type ErrTooManyAttempts struct {
	RetryAfter time.Duration
}

func (e *ErrTooManyAttempts) Error() string {
	return fmt.Sprintf("too many login attempts, retry after %s", e.RetryAfter)
}
