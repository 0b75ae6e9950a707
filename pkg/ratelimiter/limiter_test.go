package ratelimiter_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/starter/pkg/ratelimiter"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		l, err := ratelimiter.New(ratelimiter.NewMemoryStore())
		require.NoError(t, err)
		assert.Equal(t, 5, l.MaxAttempts())
	})

	t.Run("nil store", func(t *testing.T) {
		t.Parallel()
		_, err := ratelimiter.New(nil)
		assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
	})

	t.Run("invalid attempts", func(t *testing.T) {
		t.Parallel()
		_, err := ratelimiter.New(ratelimiter.NewMemoryStore(), ratelimiter.WithMaxAttempts(0))
		assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
	})

	t.Run("invalid decay", func(t *testing.T) {
		t.Parallel()
		_, err := ratelimiter.New(ratelimiter.NewMemoryStore(), ratelimiter.WithDecay(-time.Second))
		assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
	})
}

func TestLimiterHits(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	l, err := ratelimiter.New(ratelimiter.NewMemoryStore(),
		ratelimiter.WithMaxAttempts(3),
		ratelimiter.WithDecay(time.Minute),
	)
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		tooMany, err := l.TooManyAttempts(ctx, "alice@example.com|10.0.0.1")
		require.NoError(t, err)
		assert.False(t, tooMany, "attempt %d", i)

		n, err := l.Hit(ctx, "alice@example.com|10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	tooMany, err := l.TooManyAttempts(ctx, "alice@example.com|10.0.0.1")
	require.NoError(t, err)
	assert.True(t, tooMany)

	remaining, err := l.RemainingAttempts(ctx, "alice@example.com|10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	wait, err := l.AvailableIn(ctx, "alice@example.com|10.0.0.1")
	require.NoError(t, err)
	assert.Greater(t, wait, 50*time.Second)
	assert.LessOrEqual(t, wait, time.Minute)

	other, err := l.TooManyAttempts(ctx, "alice@example.com|10.0.0.2")
	require.NoError(t, err)
	assert.False(t, other, "keys are independent")
}

func TestLimiterClear(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	l, err := ratelimiter.New(ratelimiter.NewMemoryStore(), ratelimiter.WithMaxAttempts(1))
	require.NoError(t, err)

	_, err = l.Hit(ctx, "k")
	require.NoError(t, err)
	tooMany, err := l.TooManyAttempts(ctx, "k")
	require.NoError(t, err)
	require.True(t, tooMany)

	require.NoError(t, l.Clear(ctx, "k"))

	attempts, err := l.Attempts(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 0, attempts)

	wait, err := l.AvailableIn(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, wait)
}

func TestLimiterWindowExpires(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newFakeClock()

	l, err := ratelimiter.New(
		ratelimiter.NewMemoryStore(ratelimiter.WithClock(clock.Now)),
		ratelimiter.WithMaxAttempts(2),
		ratelimiter.WithDecay(time.Minute),
	)
	require.NoError(t, err)

	_, err = l.Hit(ctx, "k")
	require.NoError(t, err)
	clock.Advance(30 * time.Second)
	_, err = l.Hit(ctx, "k")
	require.NoError(t, err)

	tooMany, err := l.TooManyAttempts(ctx, "k")
	require.NoError(t, err)
	assert.True(t, tooMany)

	// The window is anchored at the first hit, not the last one.
	clock.Advance(31 * time.Second)
	tooMany, err = l.TooManyAttempts(ctx, "k")
	require.NoError(t, err)
	assert.False(t, tooMany)

	n, err := l.Hit(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLimiterAttempt(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	l, err := ratelimiter.New(ratelimiter.NewMemoryStore(),
		ratelimiter.WithMaxAttempts(2),
		ratelimiter.WithPrefix("api:"),
	)
	require.NoError(t, err)

	res, err := l.Attempt(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed())
	assert.Equal(t, 2, res.Limit)
	assert.Equal(t, 1, res.Remaining)
	assert.Zero(t, res.RetryAfter())

	res, err = l.Attempt(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed())
	assert.Equal(t, 0, res.Remaining)

	res, err = l.Attempt(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, res.Allowed())
	assert.Positive(t, res.RetryAfter())
}

func TestLimiterUsesStoreClock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// A store clock far behind the wall clock: its windows have already
	// closed in wall time but not in store time.
	clock := &fakeClock{now: time.Now().Add(-time.Hour)}
	l, err := ratelimiter.New(
		ratelimiter.NewMemoryStore(ratelimiter.WithClock(clock.Now)),
		ratelimiter.WithMaxAttempts(1),
		ratelimiter.WithDecay(time.Minute),
	)
	require.NoError(t, err)

	_, err = l.Attempt(ctx, "k")
	require.NoError(t, err)
	res, err := l.Attempt(ctx, "k")
	require.NoError(t, err)
	require.False(t, res.Allowed())
	assert.Equal(t, time.Minute, res.RetryAfter())

	clock.Advance(20 * time.Second)
	wait, err := l.AvailableIn(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 40*time.Second, wait)
}

func TestLimiterEmptyKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	l, err := ratelimiter.New(ratelimiter.NewMemoryStore())
	require.NoError(t, err)

	_, err = l.Hit(ctx, "")
	assert.ErrorIs(t, err, ratelimiter.ErrEmptyKey)
	_, err = l.TooManyAttempts(ctx, "")
	assert.ErrorIs(t, err, ratelimiter.ErrEmptyKey)
	_, err = l.Attempt(ctx, "")
	assert.ErrorIs(t, err, ratelimiter.ErrEmptyKey)
	assert.ErrorIs(t, l.Clear(ctx, ""), ratelimiter.ErrEmptyKey)
}

func TestLimiterConcurrentHits(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	l, err := ratelimiter.New(ratelimiter.NewMemoryStore(), ratelimiter.WithMaxAttempts(1000))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				_, _ = l.Hit(ctx, "shared")
			}
		}()
	}
	wg.Wait()

	attempts, err := l.Attempts(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, 500, attempts)
}
