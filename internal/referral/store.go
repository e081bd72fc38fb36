package referral

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pendingPrefix = "referral:pending:"
	pendingTTL    = 30 * 24 * time.Hour
)

// Store persists the pending sponsor code per client. Writes are
// last-write-wins.
type Store interface {
	Pending(ctx context.Context, clientID string) (string, error)
	Remember(ctx context.Context, clientID, code string) error
}

// RedisStore keeps pending codes in Redis.
type RedisStore struct {
	cache *redis.Client
}

func NewRedisStore(cache *redis.Client) *RedisStore {
	return &RedisStore{cache: cache}
}

func (s *RedisStore) Pending(ctx context.Context, clientID string) (string, error) {
	code, err := s.cache.Get(ctx, pendingPrefix+clientID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return code, err
}

func (s *RedisStore) Remember(ctx context.Context, clientID, code string) error {
	return s.cache.Set(ctx, pendingPrefix+clientID, code, pendingTTL).Err()
}

// MemoryStore is the development fallback.
type MemoryStore struct {
	mu    sync.RWMutex
	codes map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{codes: make(map[string]string)}
}

func (s *MemoryStore) Pending(_ context.Context, clientID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.codes[clientID], nil
}

func (s *MemoryStore) Remember(_ context.Context, clientID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[clientID] = code
	return nil
}
