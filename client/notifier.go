package client

import "context"

// Level is the severity of a toast.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Toast is a short user-visible notice.
type Toast struct {
	Level   Level
	Message string
}

// Notifier shows toasts. Implementations must not block.
type Notifier interface {
	Notify(ctx context.Context, t Toast)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, t Toast)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, t Toast) {
	f(ctx, t)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Toast) {}

const (
	msgSessionExpired = "Your session has expired."
	msgForbidden      = "You do not have permission to perform this action."
	msgServerError    = "Server error. Please try again later."
)

type silentKey struct{}

// Silent marks ctx so that failed requests made with it raise no toast.
// The error is still returned.
func Silent(ctx context.Context) context.Context {
	return context.WithValue(ctx, silentKey{}, true)
}

func isSilent(ctx context.Context) bool {
	v, _ := ctx.Value(silentKey{}).(bool)
	return v
}

// toastFor applies the global toast policy. Form errors are left to the
// caller; everything else without a dedicated message uses fallback.
func toastFor(e *Error, fallback string) (Toast, bool) {
	var msg string
	switch e.Kind {
	case KindValidation, KindInvalidCredentials:
		return Toast{}, false
	case KindUnauthenticated:
		msg = msgSessionExpired
	case KindForbidden:
		msg = msgForbidden
	case KindServerError:
		msg = msgServerError
	case KindRateLimited:
		msg = e.Message
	default:
		msg = fallback
	}
	if msg == "" {
		msg = fallback
	}
	return Toast{Level: LevelError, Message: msg}, true
}
