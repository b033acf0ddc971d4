package cache

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/snapcount/internal/config"
	nutritiondomain "github.com/smallbiznis/snapcount/internal/nutrition/domain"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTTLCacheExpiresEntries(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewTTLCacheWithClock[string, int](4, func() time.Time { return now })

	c.Set("a", 1, time.Minute)
	c.Set("forever", 2, 0)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)

	v, ok = c.Get("forever")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestTTLCacheStaysBounded(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewTTLCacheWithClock[int, int](3, func() time.Time { return now })

	for i := 0; i < 10; i++ {
		c.Set(i, i, time.Duration(i+1)*time.Minute)
	}

	assert.LessOrEqual(t, c.Len(), 3)
	_, ok := c.Get(9)
	assert.True(t, ok)
}

func TestMemoryEstimateCacheNormalizesKeys(t *testing.T) {
	c := NewMemoryEstimateCache(time.Minute)
	record := nutritiondomain.NutritionRecord{FoodName: "Apple", Calories: 95}

	c.Set(context.Background(), " Text:Apple ", record)

	got, ok := c.Get(context.Background(), "text:apple")
	assert.True(t, ok)
	assert.Equal(t, record, got)
}

func TestNewEstimateCache(t *testing.T) {
	disabled := NewEstimateCache(Params{Cfg: config.Config{}, Log: zap.NewNop()})
	assert.Nil(t, disabled)

	memory := NewEstimateCache(Params{Cfg: config.Config{EstimateCacheTTL: time.Minute}, Log: zap.NewNop()})
	assert.IsType(t, &memoryEstimateCache{}, memory)
}
