// Package app wires configuration, storage, services and HTTP routes into
// a runnable server.
package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/starter/core/cookie"
	"github.com/dmitrymomot/starter/core/health"
	"github.com/dmitrymomot/starter/core/logger"
	"github.com/dmitrymomot/starter/core/server"
	"github.com/dmitrymomot/starter/core/session"
	"github.com/dmitrymomot/starter/core/sessiontransport"
	"github.com/dmitrymomot/starter/integration/database/pg"
	"github.com/dmitrymomot/starter/integration/database/redis"
	"github.com/dmitrymomot/starter/internal/auth"
	"github.com/dmitrymomot/starter/internal/notification"
	"github.com/dmitrymomot/starter/internal/user"
	"github.com/dmitrymomot/starter/middleware"
	"github.com/dmitrymomot/starter/pkg/broadcast"
	"github.com/dmitrymomot/starter/pkg/ratelimiter"
)

// App owns every long-lived dependency of the server.
type App struct {
	cfg    Config
	logger *slog.Logger

	pool  *pgxpool.Pool
	redis goredis.UniversalClient

	ownPool, ownRedis bool

	sessions      *session.Manager
	limiterStore  ratelimiter.Store
	memoryLimiter *ratelimiter.MemoryStore
	events        *broadcast.MemoryBroadcaster[notification.Notification]

	Users         *user.Service
	Notifications *notification.Service

	checks  []health.Check
	handler http.Handler
	server  *server.Server
	running atomic.Bool
}

// Option configures New.
type Option func(*App) error

// WithLogger replaces the logger built from Config.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) error {
		if l == nil {
			return ErrNilLogger
		}
		a.logger = l
		return nil
	}
}

// WithPool uses an existing PostgreSQL pool instead of connecting with Config.DB.
// The caller keeps ownership of the pool.
func WithPool(pool *pgxpool.Pool) Option {
	return func(a *App) error {
		if pool == nil {
			return ErrNilDependency
		}
		a.pool = pool
		return nil
	}
}

// WithRedis uses an existing Redis client instead of connecting with Config.Redis.
// The caller keeps ownership of the client.
func WithRedis(client goredis.UniversalClient) Option {
	return func(a *App) error {
		if client == nil {
			return ErrNilDependency
		}
		a.redis = client
		return nil
	}
}

// New connects storage and builds the HTTP handler. PostgreSQL backs users,
// notifications and sessions when configured; Redis backs sessions and rate
// limits when configured. Everything else lives in memory.
func New(ctx context.Context, cfg Config, opts ...Option) (*App, error) {
	if cfg.APIPrefix != "" && !strings.HasPrefix(cfg.APIPrefix, "/") {
		return nil, ErrInvalidPrefix
	}

	a := &App{cfg: cfg}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	if a.logger == nil {
		a.logger = newLogger(cfg)
	}

	if err := initSentry(cfg); err != nil {
		return nil, err
	}

	if err := a.connect(ctx); err != nil {
		a.closeStorage()
		return nil, err
	}

	if err := a.build(); err != nil {
		a.closeStorage()
		return nil, err
	}
	return a, nil
}

func newLogger(cfg Config) *slog.Logger {
	opts := []logger.Option{
		logger.WithContextExtractors(middleware.RequestIDExtractor()),
	}
	if cfg.IsProduction() {
		opts = append(opts, logger.WithProduction(cfg.AppName))
	} else {
		opts = append(opts, logger.WithDevelopment(cfg.AppName))
	}
	if cfg.LogLevel != "" {
		opts = append(opts, logger.WithLevel(logger.ParseLevel(cfg.LogLevel)))
	}
	return logger.New(opts...)
}

func (a *App) connect(ctx context.Context) error {
	if a.pool == nil && a.cfg.DB.Enabled() {
		pool, err := pg.Connect(ctx, a.cfg.DB)
		if err != nil {
			return err
		}
		a.pool, a.ownPool = pool, true
	}
	if a.redis == nil && a.cfg.Redis.Enabled() {
		client, err := redis.Connect(ctx, a.cfg.Redis)
		if err != nil {
			return err
		}
		a.redis, a.ownRedis = client, true
	}

	if a.pool != nil {
		a.checks = append(a.checks, health.Check{Name: "postgres", Fn: pg.Healthcheck(a.pool)})
	}
	if a.redis != nil {
		a.checks = append(a.checks, health.Check{Name: "redis", Fn: redis.Healthcheck(a.redis)})
	}
	return nil
}

func (a *App) build() error {
	log := a.logger

	var (
		userRepo         user.Repository
		notificationRepo notification.Repository
		sessionStore     session.Store
	)
	switch {
	case a.pool != nil:
		userRepo = user.NewPgRepository(a.pool)
		notificationRepo = notification.NewPgRepository(a.pool)
		sessionStore = session.NewPgStore(a.pool)
	default:
		userRepo = user.NewMemoryRepository()
		notificationRepo = notification.NewMemoryRepository()
		sessionStore = session.NewMemoryStore()
	}

	if a.redis != nil {
		sessionStore = session.NewRedisStore(a.redis)
		store, err := ratelimiter.NewRedisStore(a.redis)
		if err != nil {
			return err
		}
		a.limiterStore = store
	} else {
		a.memoryLimiter = ratelimiter.NewMemoryStore(
			ratelimiter.WithCleanupInterval(a.cfg.RateLimitCleanup),
			ratelimiter.WithMemoryStoreLogger(log),
		)
		a.limiterStore = a.memoryLimiter
	}

	cookies, err := cookie.NewFromConfig(a.cfg.Cookie)
	if err != nil {
		return err
	}
	a.sessions = session.NewManager(sessionStore, session.WithConfig(a.cfg.Session)).WithLogger(log)
	transport := sessiontransport.NewCookie(a.sessions, cookies)

	a.events = broadcast.NewMemoryBroadcaster[notification.Notification](16)
	a.Notifications = notification.NewService(notificationRepo, a.events, notification.WithLogger(log))
	a.Users = user.NewService(userRepo, user.WithNotifier(a.Notifications), user.WithLogger(log))

	throttle, err := auth.NewThrottle(a.limiterStore, a.cfg.Auth)
	if err != nil {
		return err
	}
	authSvc := auth.NewService(a.Users, throttle, log)

	apiLimiter, err := ratelimiter.New(a.limiterStore,
		ratelimiter.WithMaxAttempts(a.cfg.APIRateLimit),
		ratelimiter.WithDecay(a.cfg.APIRateLimitWindow),
		ratelimiter.WithPrefix("api:"),
	)
	if err != nil {
		return err
	}

	a.handler = a.routes(transport, authSvc, apiLimiter)

	srv, err := server.NewFromConfig(a.cfg.Server, server.WithLogger(log))
	if err != nil {
		return err
	}
	a.server = srv
	return nil
}

// Handler returns the HTTP handler serving all routes.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Run serves HTTP and runs the background cleanup workers until ctx is
// cancelled, then releases storage connections.
func (a *App) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(a.server.Run(ctx, a.handler))
	g.Go(a.sessions.Run(ctx))
	if a.memoryLimiter != nil {
		g.Go(a.memoryLimiter.Run(ctx))
	}

	a.logger.InfoContext(ctx, "application started",
		slog.String("addr", a.cfg.Server.Addr),
		slog.Bool("postgres", a.pool != nil),
		slog.Bool("redis", a.redis != nil),
	)

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

// Close ends notification streams and closes connections opened by New.
func (a *App) Close() {
	if a.events != nil {
		_ = a.events.Close()
	}
	a.closeStorage()
	if a.cfg.SentryDSN != "" {
		sentry.Flush(sentryFlushTimeout)
	}
}

func (a *App) closeStorage() {
	if a.ownPool && a.pool != nil {
		a.pool.Close()
		a.ownPool = false
	}
	if a.ownRedis && a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("failed to close redis client", logger.Error(err))
		}
		a.ownRedis = false
	}
}
