package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// saveScript writes the session and its id pointer. A stored session
// (ARGV[1] non-empty) is written only while the id key still points at the
// token it was loaded with. Returns 0 when the write was dropped.
var saveScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if ARGV[1] ~= '' and current ~= ARGV[1] then
	return 0
end
if current and current ~= ARGV[2] then
	redis.call('DEL', ARGV[5] .. current)
end
redis.call('SET', KEYS[2], ARGV[3], 'PX', ARGV[4])
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[4])
return 1
`)

// RedisStore keeps sessions in Redis as JSON under "<prefix>token:<token>",
// with "<prefix>id:<id>" pointing at the current token. Keys expire with the session.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a store with the "session:" key prefix.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, prefix: "session:"}
}

func (s *RedisStore) tokenKey(token string) string { return s.prefix + "token:" + token }
func (s *RedisStore) idKey(id uuid.UUID) string    { return s.prefix + "id:" + id.String() }

func (s *RedisStore) GetByToken(ctx context.Context, token string) (*Session, error) {
	raw, err := s.client.Get(ctx, s.tokenKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: redis get: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}
	sess.stored()
	return &sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return ErrExpired
	}

	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}

	written, err := saveScript.Run(ctx, s.client,
		[]string{s.idKey(sess.ID), s.tokenKey(sess.Token)},
		sess.loadedToken, sess.Token, raw, ttl.Milliseconds(), s.prefix+"token:",
	).Int()
	if err != nil {
		return fmt.Errorf("session: redis save: %w", err)
	}
	if written == 0 {
		return ErrSessionChanged
	}
	sess.stored()
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	token, err := s.client.Get(ctx, s.idKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("session: redis get: %w", err)
	}
	if err := s.client.Del(ctx, s.tokenKey(token), s.idKey(id)).Err(); err != nil {
		return fmt.Errorf("session: redis delete: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op: Redis expires keys itself.
func (s *RedisStore) DeleteExpired(context.Context) (int64, error) {
	return 0, nil
}
