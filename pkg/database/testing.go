package database

import (
	"context"
	"path/filepath"
	"testing"

	"gorm.io/gorm"
)

// OpenTestDB opens a migrated sqlite database in the test's temp dir.
// The global logger must be initialized first.
func OpenTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "lineage_test.db") + "?_time_format=sqlite"
	db, err := Open(context.Background(), Options{Driver: DriverSQLite, DSN: dsn, MaxRetries: 1})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
