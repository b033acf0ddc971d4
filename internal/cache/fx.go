package cache

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/snapcount/internal/config"
	nutritiondomain "github.com/smallbiznis/snapcount/internal/nutrition/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("cache",
	fx.Provide(NewRedisClient),
	fx.Provide(NewEstimateCache),
)

// NewRedisClient returns nil when no Redis address is configured.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config) *redis.Client {
	addr := strings.TrimSpace(cfg.Redis.Addr)
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

type Params struct {
	fx.In

	Cfg    config.Config
	Client *redis.Client `optional:"true"`
	Log    *zap.Logger
}

// NewEstimateCache picks Redis when a client exists and process memory otherwise.
// A non-positive TTL disables estimate caching.
func NewEstimateCache(p Params) nutritiondomain.Cache {
	if p.Cfg.EstimateCacheTTL <= 0 {
		return nil
	}
	if p.Client != nil {
		return NewRedisEstimateCache(p.Client, p.Cfg.EstimateCacheTTL, p.Log)
	}
	return NewMemoryEstimateCache(p.Cfg.EstimateCacheTTL)
}
