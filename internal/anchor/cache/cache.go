// Package cache keeps positive token validations for a short TTL so repeated
// public lookups do not hit the ledger.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"certus/internal/anchor/models"
)

const keyPrefix = "anchor:validate:"

// ErrMiss is returned when nothing usable is cached for the token.
var ErrMiss = errors.New("validation cache miss")

// RedisCache stores validations as JSON with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, nftID string) (*models.Validation, error) {
	raw, err := c.client.Get(ctx, keyPrefix+nftID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("read cached validation: %w", err)
	}
	var v models.Validation
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode cached validation: %w", err)
	}
	return &v, nil
}

func (c *RedisCache) Put(ctx context.Context, nftID string, v models.Validation) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode validation: %w", err)
	}
	return c.client.Set(ctx, keyPrefix+nftID, raw, c.ttl).Err()
}

type entry struct {
	value     models.Validation
	expiresAt time.Time
}

// MemoryCache is the single-process fallback when Redis is not configured.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, now: time.Now, entries: make(map[string]entry)}
}

func (c *MemoryCache) Get(_ context.Context, nftID string) (*models.Validation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[nftID]
	if !ok {
		return nil, ErrMiss
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, nftID)
		return nil, ErrMiss
	}
	v := e.value
	return &v, nil
}

func (c *MemoryCache) Put(_ context.Context, nftID string, v models.Validation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[nftID] = entry{value: v, expiresAt: c.now().Add(c.ttl)}
	return nil
}
