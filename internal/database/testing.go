package database

import (
	"fmt"
	"sync/atomic"
	"testing"

	"qabackend/config"

	"gorm.io/gorm"
)

var memSeq atomic.Int64

// NewTestDB returns a migrated, isolated in-memory SQLite database.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("%sfile:qa_test_%d?mode=memory&cache=shared&_busy_timeout=5000", sqlitePrefix, memSeq.Add(1))
	db, err := NewDB(&config.DatabaseConfig{DSN: dsn})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
