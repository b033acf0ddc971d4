package repository

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/snapcount/internal/storage/domain"
	"gorm.io/gorm"
)

type gormRecords struct {
	db       *gorm.DB
	deviceID string
	now      func() time.Time
}

func NewGorm(db *gorm.DB, deviceID string) domain.Records {
	return &gormRecords{db: db, deviceID: deviceID, now: time.Now}
}

// Migrate creates the device_records table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.DeviceRecord{})
}

func (r *gormRecords) Load(ctx context.Context, key string) ([]byte, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false, domain.ErrInvalidKey
	}
	var records []domain.DeviceRecord
	err := r.db.WithContext(ctx).Raw(
		`SELECT device_id, record_key, value, updated_at FROM device_records WHERE device_id = ? AND record_key = ? LIMIT 1`,
		r.deviceID,
		key,
	).Scan(&records).Error
	if err != nil {
		return nil, false, err
	}
	if len(records) == 0 {
		return nil, false, nil
	}
	return []byte(records[0].Value), true, nil
}

// Save upserts the record so every mutation lands in a single statement.
func (r *gormRecords) Save(ctx context.Context, key string, value []byte) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.ErrInvalidKey
	}
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO device_records (device_id, record_key, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (device_id, record_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		r.deviceID,
		key,
		string(value),
		r.now().UTC(),
	).Error
}

func (r *gormRecords) Delete(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.ErrInvalidKey
	}
	return r.db.WithContext(ctx).Exec(
		`DELETE FROM device_records WHERE device_id = ? AND record_key = ?`,
		r.deviceID,
		key,
	).Error
}
