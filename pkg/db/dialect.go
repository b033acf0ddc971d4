package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/snapcount/internal/config"
	cgosqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Dialect picks the SQLite driver for the device store file.
// sqlite is pure Go; sqlite3 links the cgo driver for hosts that already ship libsqlite3.
func Dialect(cfg config.StoreConfig) (gorm.Dialector, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = "snapcount.db"
	}
	switch cfg.Driver {
	case config.StoreDriverSQLite:
		return sqlite.Open(dsn(path)), nil
	case config.StoreDriverSQLiteCGO:
		return cgosqlite.Open(dsn(path)), nil
	case config.StoreDriverMemory:
		return nil, fmt.Errorf("store driver %q has no sql dialect", cfg.Driver)
	default:
		return nil, fmt.Errorf("unsupported %s type", cfg.Driver)
	}
}

func dsn(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}
