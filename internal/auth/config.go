package auth

import "time"

// Config holds login throttling settings.
type Config struct {
	MaxAttempts int           `env:"AUTH_MAX_ATTEMPTS" envDefault:"5"`
	Decay       time.Duration `env:"AUTH_DECAY" envDefault:"1m"`
}

// DefaultConfig returns 5 failed attempts per minute.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 5,
		Decay:       time.Minute,
	}
}
