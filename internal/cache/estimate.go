package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	nutritiondomain "github.com/smallbiznis/snapcount/internal/nutrition/domain"
	"go.uber.org/zap"
)

const redisEstimatePrefix = "snapcount:estimate:"

type memoryEstimateCache struct {
	records Cache[string, nutritiondomain.NutritionRecord]
	ttl     time.Duration
}

// NewMemoryEstimateCache keeps successful estimates in process memory.
func NewMemoryEstimateCache(ttl time.Duration) nutritiondomain.Cache {
	return &memoryEstimateCache{
		records: NewTTLCache[string, nutritiondomain.NutritionRecord](),
		ttl:     ttl,
	}
}

func (c *memoryEstimateCache) Get(_ context.Context, key string) (nutritiondomain.NutritionRecord, bool) {
	return c.records.Get(normalizeKey(key))
}

func (c *memoryEstimateCache) Set(_ context.Context, key string, record nutritiondomain.NutritionRecord) {
	if key = normalizeKey(key); key == "" {
		return
	}
	c.records.Set(key, record, c.ttl)
}

type redisEstimateCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisEstimateCache shares estimates across processes through Redis.
// Redis errors degrade to cache misses.
func NewRedisEstimateCache(client *redis.Client, ttl time.Duration, log *zap.Logger) nutritiondomain.Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &redisEstimateCache{client: client, ttl: ttl, log: log.Named("cache.estimate")}
}

func (c *redisEstimateCache) Get(ctx context.Context, key string) (nutritiondomain.NutritionRecord, bool) {
	var record nutritiondomain.NutritionRecord
	if key = normalizeKey(key); key == "" {
		return record, false
	}
	raw, err := c.client.Get(ctx, redisEstimatePrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("estimate cache read failed", zap.Error(err))
		}
		return record, false
	}
	if err := json.Unmarshal(raw, &record); err != nil {
		c.log.Warn("estimate cache entry is corrupt", zap.Error(err))
		return record, false
	}
	return record, true
}

func (c *redisEstimateCache) Set(ctx context.Context, key string, record nutritiondomain.NutritionRecord) {
	if key = normalizeKey(key); key == "" {
		return
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, redisEstimatePrefix+key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("estimate cache write failed", zap.Error(err))
	}
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
