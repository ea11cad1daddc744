package session

import (
    "context"
    "sync"
    "time"

    "github.com/redis/go-redis/v9"
)

// MemoryStore is a TokenStore kept entirely in process memory.  It is the
// default when no redis client is configured and the store used by tests.
type MemoryStore struct {
    mu sync.RWMutex
    m  map[string]string
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{m: make(map[string]string)} }

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    v, ok := s.m[key]
    if !ok {
        return "", ErrTokenNotFound
    }
    return v, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.m[key] = value
    return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    delete(s.m, key)
    return nil
}

// RedisStore persists session tokens in redis so they survive process
// restarts.  Entries expire with the refresh token lifetime.
type RedisStore struct {
    rdb *redis.Client
    ttl time.Duration
}

// NewRedisStore wraps the given client.  ttl bounds how long an unused
// token is kept; pass the refresh‑token lifetime.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
    return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
    v, err := s.rdb.Get(ctx, key).Result()
    if err == redis.Nil {
        return "", ErrTokenNotFound
    }
    return v, err
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
    return s.rdb.Set(ctx, key, value, s.ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
    return s.rdb.Del(ctx, key).Err()
}
