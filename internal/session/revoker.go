package session

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedPrefix = "session:revoked:"

// Revoker records signed-out sessions.
type Revoker interface {
	Revoke(ctx context.Context, key string, ttl time.Duration) error
	Revoked(ctx context.Context, key string) (bool, error)
}

// RedisRevoker keeps revocations in Redis until the token would expire anyway.
type RedisRevoker struct {
	cache *redis.Client
}

// NewRedisRevoker builds a Redis-backed revoker.
func NewRedisRevoker(cache *redis.Client) *RedisRevoker {
	return &RedisRevoker{cache: cache}
}

func (r *RedisRevoker) Revoke(ctx context.Context, key string, ttl time.Duration) error {
	return r.cache.Set(ctx, revokedPrefix+key, "1", ttl).Err()
}

func (r *RedisRevoker) Revoked(ctx context.Context, key string) (bool, error) {
	n, err := r.cache.Exists(ctx, revokedPrefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryRevoker is the development fallback.
type MemoryRevoker struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{entries: make(map[string]time.Time)}
}

func (r *MemoryRevoker) Revoke(_ context.Context, key string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = time.Now().Add(ttl)
	return nil
}

func (r *MemoryRevoker) Revoked(_ context.Context, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	until, ok := r.entries[key]
	if !ok {
		return false, nil
	}
	if time.Now().After(until) {
		delete(r.entries, key)
		return false, nil
	}
	return true, nil
}
