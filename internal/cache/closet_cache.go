package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smartfit/smartfit-backend/internal/models"
)

// versionTTL outlives any list read, so a dropped version key cannot be mistaken for an unchanged one.
const versionTTL = 24 * time.Hour

// setIfVersion writes the list only while the owner's version still equals the one read before loading it.
var setIfVersion = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then current = '0' end
if current ~= ARGV[1] then return 0 end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// ClosetCache keeps each owner's item list for a short TTL. Every invalidation bumps a
// per-owner version, and a list loaded under an older version is never written back.
type ClosetCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClosetCache(client *redis.Client, ttl time.Duration) *ClosetCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &ClosetCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *ClosetCache) GetItems(ctx context.Context, ownerID string) ([]models.ClothingItem, bool, error) {
	raw, err := c.client.Get(ctx, c.itemsKey(ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get closet failed: %w", err)
	}

	var items []models.ClothingItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached closet failed: %w", err)
	}
	return items, true, nil
}

// Version returns the owner's current cache version. Read it before loading the list to cache.
func (c *ClosetCache) Version(ctx context.Context, ownerID string) (int64, error) {
	v, err := c.client.Get(ctx, c.versionKey(ownerID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get closet version failed: %w", err)
	}
	return v, nil
}

// SetItems stores the list unless the owner's closet changed after version was read.
// It reports whether the list was stored.
func (c *ClosetCache) SetItems(ctx context.Context, ownerID string, version int64, items []models.ClothingItem) (bool, error) {
	payload, err := json.Marshal(items)
	if err != nil {
		return false, fmt.Errorf("marshal closet cache failed: %w", err)
	}

	stored, err := setIfVersion.Run(ctx, c.client,
		[]string{c.versionKey(ownerID), c.itemsKey(ownerID)},
		version, payload, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis set closet failed: %w", err)
	}
	return stored == 1, nil
}

func (c *ClosetCache) Invalidate(ctx context.Context, ownerID string) error {
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, c.versionKey(ownerID))
	pipe.Expire(ctx, c.versionKey(ownerID), versionTTL)
	pipe.Del(ctx, c.itemsKey(ownerID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete closet failed: %w", err)
	}
	return nil
}

func (c *ClosetCache) itemsKey(ownerID string) string {
	return fmt.Sprintf("closet:items:%s", ownerID)
}

func (c *ClosetCache) versionKey(ownerID string) string {
	return fmt.Sprintf("closet:version:%s", ownerID)
}
