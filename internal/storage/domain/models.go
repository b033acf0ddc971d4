package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
)

// Record keys shared by every device store implementation.
const (
	KeyProfile      = "snapcount_profile"
	KeyDailyEntries = "snapcount_daily_entries"
)

// DeviceRecord is one keyed blob of device-local state.
type DeviceRecord struct {
	DeviceID  string         `gorm:"primaryKey;size:64" json:"device_id"`
	Key       string         `gorm:"column:record_key;primaryKey;size:64" json:"key"`
	Value     datatypes.JSON `gorm:"not null" json:"value"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (DeviceRecord) TableName() string { return "device_records" }

// Records is the load/save boundary for device-local state.
// Load reports found=false for a key that was never written.
type Records interface {
	Load(ctx context.Context, key string) (value []byte, found bool, err error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

var (
	ErrInvalidKey = errors.New("invalid_key")
)
