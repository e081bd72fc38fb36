package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cachePrefix = "invoice:v1:"
	cacheTTL    = 10 * time.Minute
)

// Cache keeps the last known row per invoice. Entries are replaced wholesale
// with whatever the backend returned; they are never patched.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache builds a cache; a nil client yields a no-op cache.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client, ttl: cacheTTL}
}

// Get returns the cached invoice.
func (c *Cache) Get(ctx context.Context, id string) (Invoice, bool, error) {
	if c == nil || c.client == nil {
		return Invoice{}, false, nil
	}
	raw, err := c.client.Get(ctx, cachePrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Invoice{}, false, nil
	}
	if err != nil {
		return Invoice{}, false, err
	}
	var inv Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return Invoice{}, false, err
	}
	return inv, true, nil
}

// Put replaces the cached row.
func (c *Cache) Put(ctx context.Context, inv Invoice) error {
	if c == nil || c.client == nil || inv.ID == "" {
		return nil
	}
	raw, err := json.Marshal(inv)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cachePrefix+inv.ID, raw, c.ttl).Err()
}

// Delete drops the cached row.
func (c *Cache) Delete(ctx context.Context, id string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, cachePrefix+id).Err()
}
