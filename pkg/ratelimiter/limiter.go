package ratelimiter

import (
	"context"
	"fmt"
	"time"
)

// Counter is the state of a key inside its current window.
type Counter struct {
	Hits    int
	ResetAt time.Time // zero when the key has no open window
}

// Store persists counters. Implementations must be safe for concurrent use
// and must make Increment atomic per key.
type Store interface {
	// Increment adds a hit, opening a window of length decay when none is open.
	Increment(ctx context.Context, key string, decay time.Duration) (Counter, error)
	// Get returns the counter without modifying it.
	Get(ctx context.Context, key string) (Counter, error)
	// Reset removes the counter.
	Reset(ctx context.Context, key string) error
}

// Clock is implemented by stores that keep their own time, such as a
// MemoryStore built WithClock. Waits are measured against it so retry hints
// agree with the windows the store opens.
type Clock interface {
	Now() time.Time
}

// Config holds limiter settings.
type Config struct {
	MaxAttempts int
	Decay       time.Duration
	Prefix      string
}

// Option configures a Limiter.
type Option func(*Config)

// WithMaxAttempts sets how many hits a window allows.
func WithMaxAttempts(n int) Option {
	return func(c *Config) { c.MaxAttempts = n }
}

// WithDecay sets the window length.
func WithDecay(d time.Duration) Option {
	return func(c *Config) { c.Decay = d }
}

// WithPrefix namespaces keys, so one store can back several limiters.
func WithPrefix(prefix string) Option {
	return func(c *Config) { c.Prefix = prefix }
}

// Limiter applies a Config to a Store.
type Limiter struct {
	store Store
	cfg   Config
}

// New creates a limiter. Defaults are 5 attempts per minute.
func New(store Store, opts ...Option) (*Limiter, error) {
	cfg := Config{MaxAttempts: 5, Decay: time.Minute}
	for _, opt := range opts {
		opt(&cfg)
	}

	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("%w: max attempts must be positive, got %d", ErrInvalidConfig, cfg.MaxAttempts)
	}
	if cfg.Decay <= 0 {
		return nil, fmt.Errorf("%w: decay must be positive, got %s", ErrInvalidConfig, cfg.Decay)
	}

	return &Limiter{store: store, cfg: cfg}, nil
}

// MaxAttempts returns the configured limit.
func (l *Limiter) MaxAttempts() int {
	return l.cfg.MaxAttempts
}

// TooManyAttempts reports whether key has used all attempts of its window.
func (l *Limiter) TooManyAttempts(ctx context.Context, key string) (bool, error) {
	c, err := l.get(ctx, key)
	if err != nil {
		return false, err
	}
	return c.Hits >= l.cfg.MaxAttempts, nil
}

// Hit records an attempt and returns the number of attempts in the window.
func (l *Limiter) Hit(ctx context.Context, key string) (int, error) {
	k, err := l.key(key)
	if err != nil {
		return 0, err
	}
	c, err := l.store.Increment(ctx, k, l.cfg.Decay)
	if err != nil {
		return 0, err
	}
	return c.Hits, nil
}

// Attempts returns the number of attempts in the current window.
func (l *Limiter) Attempts(ctx context.Context, key string) (int, error) {
	c, err := l.get(ctx, key)
	if err != nil {
		return 0, err
	}
	return c.Hits, nil
}

// RemainingAttempts returns how many attempts are left in the window.
func (l *Limiter) RemainingAttempts(ctx context.Context, key string) (int, error) {
	c, err := l.get(ctx, key)
	if err != nil {
		return 0, err
	}
	return max(0, l.cfg.MaxAttempts-c.Hits), nil
}

// AvailableIn returns the time until the window of key closes.
// It is zero when no window is open.
func (l *Limiter) AvailableIn(ctx context.Context, key string) (time.Duration, error) {
	c, err := l.get(ctx, key)
	if err != nil {
		return 0, err
	}
	if c.ResetAt.IsZero() {
		return 0, nil
	}
	return max(0, c.ResetAt.Sub(l.now())), nil
}

// Clear removes all attempts of key.
func (l *Limiter) Clear(ctx context.Context, key string) error {
	k, err := l.key(key)
	if err != nil {
		return err
	}
	return l.store.Reset(ctx, k)
}

// Result describes a single Attempt.
type Result struct {
	Limit     int
	Remaining int
	ResetAt   time.Time

	now time.Time // when the attempt was counted, by the store's clock
}

// Allowed reports whether the attempt fit inside the limit.
func (r Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter returns the wait before a new attempt can succeed.
func (r Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	now := r.now
	if now.IsZero() {
		now = time.Now()
	}
	return max(0, r.ResetAt.Sub(now))
}

// Attempt records a hit and reports whether it is within the limit.
// It suits request throttling, where every request counts.
func (l *Limiter) Attempt(ctx context.Context, key string) (Result, error) {
	k, err := l.key(key)
	if err != nil {
		return Result{}, err
	}
	c, err := l.store.Increment(ctx, k, l.cfg.Decay)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Limit:     l.cfg.MaxAttempts,
		Remaining: l.cfg.MaxAttempts - c.Hits,
		ResetAt:   c.ResetAt,
		now:       l.now(),
	}, nil
}

func (l *Limiter) now() time.Time {
	if c, ok := l.store.(Clock); ok {
		return c.Now()
	}
	return time.Now()
}

func (l *Limiter) get(ctx context.Context, key string) (Counter, error) {
	k, err := l.key(key)
	if err != nil {
		return Counter{}, err
	}
	return l.store.Get(ctx, k)
}

func (l *Limiter) key(key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	return l.cfg.Prefix + key, nil
}
