package session

import (
	"time"
)

// Config holds session manager configuration.
type Config struct {
	TTL             time.Duration `env:"SESSION_TTL" envDefault:"2h"`             // idle timeout
	RememberTTL     time.Duration `env:"SESSION_REMEMBER_TTL" envDefault:"720h"`  // lifetime with "remember me"
	TouchInterval   time.Duration `env:"SESSION_TOUCH_INTERVAL" envDefault:"5m"`  // min time between expiry extensions
	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"15m"`
}

// DefaultConfig returns the defaults used when no environment is loaded.
func DefaultConfig() Config {
	return Config{
		TTL:             2 * time.Hour,
		RememberTTL:     30 * 24 * time.Hour,
		TouchInterval:   5 * time.Minute,
		CleanupInterval: 15 * time.Minute,
	}
}

// Option is a functional option for configuring the session manager.
type Option func(*Config)

// WithTTL sets the idle timeout.
func WithTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.TTL = ttl
	}
}

// WithRememberTTL sets the lifetime of sessions created with "remember me".
func WithRememberTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.RememberTTL = ttl
	}
}

// WithTouchInterval sets the minimum time between session expiry extensions.
// Set to 0 to extend on every stored request.
func WithTouchInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.TouchInterval = interval
	}
}

// WithCleanupInterval sets how often Run purges expired sessions.
func WithCleanupInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.CleanupInterval = interval
	}
}

// WithConfig replaces the whole configuration, typically one loaded from env.
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		*c = cfg
	}
}
