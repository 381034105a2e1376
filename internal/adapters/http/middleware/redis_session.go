package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisSessionPrefix = "therapro:session:"

// RedisClient is the subset of *redis.Client used for sessions.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisSessionStore shares sessions between server instances. Values are
// JSON and expire through the Redis TTL.
type RedisSessionStore struct {
	client RedisClient
	ttl    time.Duration
}

var _ SessionStore = (*RedisSessionStore)(nil)

// NewRedisSessionStore wraps client. ttl <= 0 selects DefaultSessionTTL.
func NewRedisSessionStore(client RedisClient, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSessionStore{client: client, ttl: ttl}
}

// Create stores s under a fresh token with the store TTL.
func (rs *RedisSessionStore) Create(ctx context.Context, s Session) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	s.CreatedAt = time.Now()
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	if err := rs.client.Set(ctx, redisSessionPrefix+token, string(data), rs.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Get returns the session for token. Redis failures read as "no session" so
// the user is sent to login rather than shown an error.
func (rs *RedisSessionStore) Get(ctx context.Context, token string) (Session, bool) {
	raw, err := rs.client.Get(ctx, redisSessionPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return Session{}, false
	}
	if err != nil {
		slog.Error("session_store_failed", "op", "get", "error", err)
		return Session{}, false
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		slog.Error("session_store_failed", "op", "decode", "error", err)
		return Session{}, false
	}
	return s, true
}

// Delete removes a session.
func (rs *RedisSessionStore) Delete(ctx context.Context, token string) {
	if err := rs.client.Del(ctx, redisSessionPrefix+token).Err(); err != nil {
		slog.Error("session_store_failed", "op", "delete", "error", err)
	}
}
