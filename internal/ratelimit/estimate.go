package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/snapcount/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyEstimateDevice   = "snapcount:estimate:rate:%s"
	keyEstimateInFlight = "snapcount:estimate:inflight:%s"
)

// EstimateLimiter throttles model calls per device and guards against two
// processes estimating for the same device at once. A nil limiter allows everything.
type EstimateLimiter struct {
	bucket *TokenBucket
	locker *Locker

	rate        float64
	burst       int
	inFlightTTL time.Duration
}

type Params struct {
	fx.In

	Cfg    config.Config
	Client *redis.Client `optional:"true"`
	Log    *zap.Logger
}

func NewEstimateLimiter(p Params) (*EstimateLimiter, error) {
	limitCfg := p.Cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}
	if p.Client == nil {
		return nil, errors.New("rate limiting requires REDIS_ADDR")
	}
	if limitCfg.EstimateRate <= 0 || limitCfg.EstimateBurst <= 0 {
		return nil, errors.New("estimate rate limit must be positive")
	}

	ttl := limitCfg.InFlightTTL
	if ttl <= 0 {
		ttl = p.Cfg.Gemini.Timeout + 5*time.Second
	}
	p.Log.Named("ratelimit").Info("estimate rate limiting enabled",
		zap.Float64("rate", limitCfg.EstimateRate),
		zap.Int("burst", limitCfg.EstimateBurst),
		zap.Duration("in_flight_ttl", ttl),
	)
	return &EstimateLimiter{
		bucket:      NewTokenBucket(p.Client),
		locker:      NewLocker(p.Client),
		rate:        limitCfg.EstimateRate,
		burst:       limitCfg.EstimateBurst,
		inFlightTTL: ttl,
	}, nil
}

func (l *EstimateLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *EstimateLimiter) Allow(ctx context.Context, deviceID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyEstimateDevice, deviceKey(deviceID)), l.rate, l.burst)
}

// AcquireEstimate takes the device's in-flight lease. A disabled limiter
// always grants an empty lease.
func (l *EstimateLimiter) AcquireEstimate(ctx context.Context, deviceID string) (Lease, bool, error) {
	if !l.Enabled() {
		return Lease{}, true, nil
	}
	return l.locker.TryLock(ctx, fmt.Sprintf(keyEstimateInFlight, deviceKey(deviceID)), l.inFlightTTL)
}

func (l *EstimateLimiter) ReleaseEstimate(ctx context.Context, lease Lease) error {
	if !l.Enabled() {
		return nil
	}
	return l.locker.Release(ctx, lease)
}

func deviceKey(deviceID string) string {
	if id := strings.TrimSpace(deviceID); id != "" {
		return id
	}
	return "local"
}
