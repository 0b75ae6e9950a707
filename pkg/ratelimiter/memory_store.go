package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

type window struct {
	hits    int
	resetAt time.Time
}

// MemoryStore keeps counters in process memory.
// Expired windows are ignored on read and removed by the cleanup loop.
type MemoryStore struct {
	mu      sync.RWMutex
	windows map[string]*window
	now     func() time.Time

	cleanupInterval time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	windowsOpened  atomic.Int64
	windowsRemoved atomic.Int64
}

// MemoryStoreStats reports counters for monitoring.
type MemoryStoreStats struct {
	WindowsOpened  int64
	WindowsRemoved int64
	ActiveWindows  int
	IsRunning      bool
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often expired windows are purged.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.cleanupInterval = interval
	}
}

// WithMemoryStoreShutdownTimeout bounds how long Stop waits for a running cleanup.
func WithMemoryStoreShutdownTimeout(timeout time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if timeout > 0 {
			ms.shutdownTimeout = timeout
		}
	}
}

// WithMemoryStoreLogger sets the logger for lifecycle events.
func WithMemoryStoreLogger(logger *slog.Logger) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if logger != nil {
			ms.logger = logger
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if now != nil {
			ms.now = now
		}
	}
}

// NewMemoryStore creates an in-memory store. Call Start or Run to enable cleanup.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		windows:         make(map[string]*window),
		now:             time.Now,
		cleanupInterval: time.Minute,
		shutdownTimeout: 10 * time.Second,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(ms)
	}
	return ms
}

// Now returns the store's current time. It implements Clock.
func (ms *MemoryStore) Now() time.Time {
	return ms.now()
}

// Increment implements Store.
func (ms *MemoryStore) Increment(_ context.Context, key string, decay time.Duration) (Counter, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	w, ok := ms.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(decay)}
		ms.windows[key] = w
		ms.windowsOpened.Add(1)
	}
	w.hits++

	return Counter{Hits: w.hits, ResetAt: w.resetAt}, nil
}

// Get implements Store.
func (ms *MemoryStore) Get(_ context.Context, key string) (Counter, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	w, ok := ms.windows[key]
	if !ok || !ms.now().Before(w.resetAt) {
		return Counter{}, nil
	}
	return Counter{Hits: w.hits, ResetAt: w.resetAt}, nil
}

// Reset implements Store.
func (ms *MemoryStore) Reset(_ context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.windows, key)
	return nil
}

// Start runs the cleanup loop until ctx is cancelled or Stop is called.
func (ms *MemoryStore) Start(ctx context.Context) error {
	if ms.cleanupInterval <= 0 {
		return fmt.Errorf("%w: cleanup interval must be > 0, got %v", ErrInvalidConfig, ms.cleanupInterval)
	}

	ms.mu.Lock()
	if ms.cancel != nil {
		ms.mu.Unlock()
		return errors.New("ratelimiter: memory store already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	ms.cancel = cancel
	ms.mu.Unlock()

	ms.logger.InfoContext(ctx, "rate limit cleanup started",
		slog.Duration("cleanup_interval", ms.cleanupInterval))

	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ms.logger.Info("rate limit cleanup stopping")
			return ctx.Err()
		case <-ticker.C:
			ms.cleanupWithWait()
		}
	}
}

// Stop cancels the cleanup loop and waits for an in-flight cleanup.
func (ms *MemoryStore) Stop() error {
	ms.mu.Lock()
	cancel := ms.cancel
	ms.cancel = nil
	ms.mu.Unlock()

	if cancel == nil {
		return errors.New("ratelimiter: memory store not started")
	}
	cancel()

	done := make(chan struct{})
	go func() {
		ms.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(ms.shutdownTimeout):
		ms.logger.Warn("rate limit cleanup shutdown timeout exceeded",
			slog.Duration("timeout", ms.shutdownTimeout))
		return fmt.Errorf("ratelimiter: shutdown timeout exceeded after %s", ms.shutdownTimeout)
	}
}

// Run returns a function for errgroup that runs the cleanup loop until ctx is done.
func (ms *MemoryStore) Run(ctx context.Context) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- ms.Start(ctx)
		}()

		select {
		case <-ctx.Done():
			_ = ms.Stop()
			<-errCh
			return nil
		case err := <-errCh:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

func (ms *MemoryStore) cleanupWithWait() {
	ms.wg.Add(1)
	defer ms.wg.Done()
	ms.removeExpired()
}

func (ms *MemoryStore) removeExpired() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	removed := 0
	for key, w := range ms.windows {
		if !now.Before(w.resetAt) {
			delete(ms.windows, key)
			removed++
		}
	}
	if removed > 0 {
		ms.windowsRemoved.Add(int64(removed))
	}
}

// Stats returns a snapshot of store counters.
func (ms *MemoryStore) Stats() MemoryStoreStats {
	ms.mu.RLock()
	running := ms.cancel != nil
	active := len(ms.windows)
	ms.mu.RUnlock()

	return MemoryStoreStats{
		WindowsOpened:  ms.windowsOpened.Load(),
		WindowsRemoved: ms.windowsRemoved.Load(),
		ActiveWindows:  active,
		IsRunning:      running,
	}
}

// Healthcheck fails when cleanup is configured but not running.
func (ms *MemoryStore) Healthcheck(_ context.Context) error {
	if ms.cleanupInterval > 0 && !ms.Stats().IsRunning {
		return fmt.Errorf("%w: cleanup is configured but not running", ErrStoreUnavailable)
	}
	return nil
}
