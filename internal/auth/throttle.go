package auth

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/dmitrymomot/starter/pkg/ratelimiter"
)

// ThrottleKey builds the lockout key for a login attempt. The credential is
// case-folded and stripped of diacritics, so "José@x.io" and "jose@X.IO"
// share one counter.
func ThrottleKey(credential, ip string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), cases.Fold(), norm.NFC)
	folded, _, err := transform.String(t, strings.TrimSpace(credential))
	if err != nil {
		folded = strings.ToLower(strings.TrimSpace(credential))
	}
	return folded + "|" + ip
}

// Throttle counts login attempts per key inside a fixed window. A successful
// login clears the count, so only failures accumulate.
type Throttle struct {
	limiter *ratelimiter.Limiter
}

// NewThrottle creates a throttle on store.
func NewThrottle(store ratelimiter.Store, cfg Config) (*Throttle, error) {
	l, err := ratelimiter.New(store,
		ratelimiter.WithMaxAttempts(cfg.MaxAttempts),
		ratelimiter.WithDecay(cfg.Decay),
		ratelimiter.WithPrefix("login:"),
	)
	if err != nil {
		return nil, err
	}
	return &Throttle{limiter: l}, nil
}

// Reserve counts an attempt for key before the credentials are checked and
// returns *ErrTooManyAttempts once the window has no attempts left. The count
// is a single atomic increment, so concurrent attempts cannot all slip past
// the limit.
func (t *Throttle) Reserve(ctx context.Context, key string) error {
	res, err := t.limiter.Attempt(ctx, key)
	if err != nil {
		return err
	}
	if res.Allowed() {
		return nil
	}
	return &ErrTooManyAttempts{RetryAfter: res.RetryAfter()}
}

// Clear forgets the attempts of key.
func (t *Throttle) Clear(ctx context.Context, key string) error {
	return t.limiter.Clear(ctx, key)
}
