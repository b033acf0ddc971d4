package storage

import (
	"github.com/smallbiznis/snapcount/internal/config"
	"github.com/smallbiznis/snapcount/internal/storage/domain"
	"github.com/smallbiznis/snapcount/internal/storage/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("storage.records",
	fx.Provide(Provide),
)

type Params struct {
	fx.In

	DB  *gorm.DB `optional:"true"`
	Cfg config.Config
	Log *zap.Logger
}

// Provide returns the SQLite-backed records when a database is open, else the memory map.
func Provide(p Params) (domain.Records, error) {
	if p.DB == nil {
		return repository.NewMemory(), nil
	}
	if err := repository.Migrate(p.DB); err != nil {
		return nil, err
	}
	p.Log.Named("storage.records").Debug("device_records migrated")
	return repository.NewGorm(p.DB, p.Cfg.DeviceID), nil
}
