package payment

import (
    "context"
    "sync"
    "time"

    "github.com/redis/go-redis/v9"
)

// AttemptStore tracks the at‑most‑one active payment attempt per listing.
// Attempts are ephemeral — they are never written to the primary store —
// so the marker lives in memory or in redis when several instances must
// agree.
type AttemptStore interface {
    // Acquire reserves the attempt slot for a listing.  It returns
    // ErrAttemptActive when another attempt is already in flight.
    Acquire(ctx context.Context, listingID string) error
    // Bind records the processor intent ID for the active attempt.
    Bind(ctx context.Context, listingID, intentID string) error
    // IntentID returns the intent bound to the active attempt, or
    // ErrNoAttempt when the listing has none.
    IntentID(ctx context.Context, listingID string) (string, error)
    // Release clears the marker.  Releasing an absent marker is a no‑op.
    Release(ctx context.Context, listingID string) error
}

// MemoryAttempts is the in‑process AttemptStore.
type MemoryAttempts struct {
    mu sync.Mutex
    m  map[string]string // listing ID -> intent ID ("" until bound)
}

func NewMemoryAttempts() *MemoryAttempts { return &MemoryAttempts{m: make(map[string]string)} }

func (s *MemoryAttempts) Acquire(_ context.Context, listingID string) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if _, active := s.m[listingID]; active {
        return ErrAttemptActive
    }
    s.m[listingID] = ""
    return nil
}

func (s *MemoryAttempts) Bind(_ context.Context, listingID, intentID string) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if _, active := s.m[listingID]; !active {
        return ErrNoAttempt
    }
    s.m[listingID] = intentID
    return nil
}

func (s *MemoryAttempts) IntentID(_ context.Context, listingID string) (string, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    id, active := s.m[listingID]
    if !active {
        return "", ErrNoAttempt
    }
    return id, nil
}

func (s *MemoryAttempts) Release(_ context.Context, listingID string) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    delete(s.m, listingID)
    return nil
}

// attemptTTL caps how long a redis marker can outlive a crashed client.
// An abandoned attempt unblocks itself after this window.
const attemptTTL = 30 * time.Minute

// RedisAttempts is the redis‑backed AttemptStore used when multiple
// server instances share the single‑flight guarantee.
type RedisAttempts struct {
    rdb *redis.Client
}

func NewRedisAttempts(rdb *redis.Client) *RedisAttempts { return &RedisAttempts{rdb: rdb} }

func attemptKey(listingID string) string { return "payment:attempt:" + listingID }

func (s *RedisAttempts) Acquire(ctx context.Context, listingID string) error {
    ok, err := s.rdb.SetNX(ctx, attemptKey(listingID), "", attemptTTL).Result()
    if err != nil {
        return err
    }
    if !ok {
        return ErrAttemptActive
    }
    return nil
}

func (s *RedisAttempts) Bind(ctx context.Context, listingID, intentID string) error {
    return s.rdb.Set(ctx, attemptKey(listingID), intentID, redis.KeepTTL).Err()
}

func (s *RedisAttempts) IntentID(ctx context.Context, listingID string) (string, error) {
    v, err := s.rdb.Get(ctx, attemptKey(listingID)).Result()
    if err == redis.Nil {
        return "", ErrNoAttempt
    }
    return v, err
}

func (s *RedisAttempts) Release(ctx context.Context, listingID string) error {
    return s.rdb.Del(ctx, attemptKey(listingID)).Err()
}
