package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrementScript adds a hit and opens the window on the first one.
// A key left without a TTL gets one, so counters never become permanent.
var incrementScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if n == 1 or ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// RedisStore keeps counters in Redis. Windows expire through key TTLs.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithRedisKeyPrefix sets the namespace for counter keys. Default is "ratelimit:".
func WithRedisKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a store backed by client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: redis client is required", ErrInvalidConfig)
	}
	s := &RedisStore{client: client, prefix: "ratelimit:"}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Increment implements Store.
func (s *RedisStore) Increment(ctx context.Context, key string, decay time.Duration) (Counter, error) {
	now := time.Now()
	res, err := incrementScript.Run(ctx, s.client, []string{s.prefix + key}, decay.Milliseconds()).Int64Slice()
	if err != nil {
		return Counter{}, errors.Join(ErrStoreUnavailable, err)
	}
	if len(res) != 2 {
		return Counter{}, fmt.Errorf("%w: unexpected script reply %v", ErrStoreUnavailable, res)
	}
	return Counter{
		Hits:    int(res[0]),
		ResetAt: now.Add(time.Duration(res[1]) * time.Millisecond),
	}, nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (Counter, error) {
	now := time.Now()
	pipe := s.client.Pipeline()
	getCmd := pipe.Get(ctx, s.prefix+key)
	ttlCmd := pipe.PTTL(ctx, s.prefix+key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Counter{}, errors.Join(ErrStoreUnavailable, err)
	}

	hits, err := getCmd.Int()
	if errors.Is(err, redis.Nil) {
		return Counter{}, nil
	}
	if err != nil {
		return Counter{}, errors.Join(ErrStoreUnavailable, err)
	}

	c := Counter{Hits: hits}
	if ttl := ttlCmd.Val(); ttl > 0 {
		c.ResetAt = now.Add(ttl)
	}
	return c, nil
}

// Reset implements Store.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}
