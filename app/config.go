package app

import (
	"time"

	"github.com/dmitrymomot/starter/core/cookie"
	"github.com/dmitrymomot/starter/core/server"
	"github.com/dmitrymomot/starter/core/session"
	"github.com/dmitrymomot/starter/integration/database/pg"
	"github.com/dmitrymomot/starter/integration/database/redis"
	"github.com/dmitrymomot/starter/internal/auth"
)

// Config is the complete application configuration, loaded from the
// environment with core/config.
type Config struct {
	Server  server.Config
	Cookie  cookie.Config
	Session session.Config
	Auth    auth.Config
	DB      pg.Config
	Redis   redis.Config

	AppName  string `env:"APP_NAME" envDefault:"starter"`
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	APIPrefix   string   `env:"API_PREFIX" envDefault:"/api"`
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	MaxBodySize int64    `env:"HTTP_MAX_BODY_SIZE" envDefault:"1048576"`

	// APIRateLimit caps requests per client IP and window across the API.
	APIRateLimit       int           `env:"API_RATE_LIMIT" envDefault:"120"`
	APIRateLimitWindow time.Duration `env:"API_RATE_LIMIT_WINDOW" envDefault:"1m"`
	// RateLimitCleanup is how often the in-memory limiter drops expired windows.
	RateLimitCleanup time.Duration `env:"RATELIMIT_CLEANUP_INTERVAL" envDefault:"1m"`

	SentryDSN string `env:"SENTRY_DSN"`
}

// IsProduction reports whether APP_ENV is production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}
