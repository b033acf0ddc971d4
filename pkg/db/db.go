package db

import (
	"context"

	"github.com/smallbiznis/snapcount/internal/config"
	obslogger "github.com/smallbiznis/snapcount/internal/observability/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormprometheus "gorm.io/plugin/prometheus"
)

var Module = fx.Module("db",
	fx.Provide(New),
)

type Params struct {
	fx.In

	Lc  fx.Lifecycle
	Cfg config.Config
	Log *zap.Logger
}

// New opens the device store database. It returns a nil *gorm.DB for the memory
// driver so the storage module can fall back to its in-process map.
func New(p Params) (*gorm.DB, error) {
	if p.Cfg.Store.Driver == config.StoreDriverMemory {
		p.Log.Info("device store running in memory; records are lost on exit")
		return nil, nil
	}

	dialector, err := Dialect(p.Cfg.Store)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: obslogger.NewGormLogger(obslogger.DefaultGormLoggerConfig()),
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Use(otelgorm.NewPlugin(otelgorm.WithDBName(p.Cfg.AppName))); err != nil {
		return nil, err
	}
	if err := conn.Use(gormprometheus.New(gormprometheus.Config{
		DBName:          p.Cfg.AppName,
		RefreshInterval: 15,
		StartServer:     false,
	})); err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	// SQLite serialises writers; a single connection keeps write-through saves ordered.
	sqlDB.SetMaxOpenConns(1)

	p.Lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return sqlDB.Close()
		},
	})

	p.Log.Info("device store opened",
		zap.String("driver", p.Cfg.Store.Driver),
		zap.String("path", p.Cfg.Store.Path),
	)
	return conn, nil
}
