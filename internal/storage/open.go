package storage

import (
	"fmt"

	"github.com/C4T-BuT-S4D/trialbot/internal/config"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open connects to the database selected by cfg.DatabaseDriver.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.PostgresDSN)
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", cfg.DatabaseDriver, err)
	}

	if cfg.DatabaseDriver == config.DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("getting sql db: %w", err)
		}
		// sqlite serializes writers anyway; one connection avoids SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}
