package testutil

import (
	"context"
	"testing"

	"github.com/C4T-BuT-S4D/trialbot/internal/storage"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestStorage creates a migrated storage backed by an in-memory sqlite database.
func NewTestStorage(t *testing.T) *storage.Storage {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql db: %v", err)
	}
	// Every new connection to :memory: is a fresh empty database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store := storage.New(db)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return store
}
