package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/snapcount/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewEstimateLimiterDisabled(t *testing.T) {
	limiter, err := NewEstimateLimiter(Params{Cfg: config.Config{}, Log: zap.NewNop()})
	require.NoError(t, err)
	assert.Nil(t, limiter)
	assert.False(t, limiter.Enabled())
}

func TestNewEstimateLimiterRequiresRedis(t *testing.T) {
	cfg := config.Config{RateLimit: config.RateLimitConfig{Enabled: true, EstimateRate: 1, EstimateBurst: 1}}
	_, err := NewEstimateLimiter(Params{Cfg: cfg, Log: zap.NewNop()})
	assert.Error(t, err)
}

func TestNilLimiterAllowsEverything(t *testing.T) {
	var limiter *EstimateLimiter
	ctx := context.Background()

	res, err := limiter.Allow(ctx, "kitchen")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	lease, ok, err := limiter.AcquireEstimate(ctx, "kitchen")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, lease.Held())
	assert.NoError(t, limiter.ReleaseEstimate(ctx, lease))
}

func TestNilLockerAndBucket(t *testing.T) {
	var locker *Locker
	_, ok, err := locker.TryLock(context.Background(), "k", time.Second)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrLockNotConfigured)
	assert.NoError(t, locker.Release(context.Background(), Lease{Key: "k", Token: "t"}))

	var bucket *TokenBucket
	res, err := bucket.Allow(context.Background(), "k", 1, 1)
	assert.ErrorIs(t, err, ErrLimiterNotConfigured)
	assert.False(t, res.Allowed)
}

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, 20*time.Second, defaultBucketTTL(0.5, 5))
	assert.Equal(t, time.Second, defaultBucketTTL(100, 1))
	assert.Equal(t, time.Second, defaultBucketTTL(0, 0))
}

func TestRefillWait(t *testing.T) {
	assert.Equal(t, 2*time.Second, refillWait(0, 0.5))
	assert.Equal(t, 500*time.Millisecond, refillWait(0.5, 1))
	assert.Zero(t, refillWait(1.2, 1))
	assert.Zero(t, refillWait(0, 0))
}

func TestCastHelpers(t *testing.T) {
	assert.Equal(t, int64(3), castToInt(int64(3)))
	assert.Equal(t, int64(2), castToInt(2.9))
	assert.Equal(t, int64(1717), castToInt("1717"))
	assert.Equal(t, 1.5, castToFloat("1.5"))
	assert.Equal(t, 4.0, castToFloat(int64(4)))
	assert.Equal(t, 0.0, castToFloat(nil))
	assert.Equal(t, "local", deviceKey(" "))
}
