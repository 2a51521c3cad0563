package db

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yi-nology/mediaedge/biz/dal/model"
)

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// A single connection keeps every query on the same in-memory database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get underlying DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := NewDerivativeDAO().Migrate(context.Background(), db); err != nil {
		t.Fatalf("Failed to migrate tables: %v", err)
	}

	return db
}

// CleanupTestDB closes the database connection
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("Warning: Failed to get underlying DB: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		t.Logf("Warning: Failed to close DB: %v", err)
	}
}

// CreateTestDerivative records a derivative of originalKey for operations.
func CreateTestDerivative(t *testing.T, db *gorm.DB, originalKey, operations string) *model.Derivative {
	t.Helper()
	entity := &model.Derivative{
		DerivativeKey: originalKey + "/" + operations,
		OriginalKey:   originalKey,
		Operations:    operations,
		ContentType:   "image/webp",
		Size:          128,
	}
	if err := NewDerivativeDAO().Upsert(context.Background(), db, entity); err != nil {
		t.Fatalf("Failed to create test derivative: %v", err)
	}
	return entity
}
