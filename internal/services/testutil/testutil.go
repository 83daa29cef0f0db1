// Package testutil provides shared test utilities for database-backed tests.
package testutil

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bbernstein/lacylights-ddp/internal/database/models"
	"github.com/bbernstein/lacylights-ddp/internal/database/repositories"
)

// TestDB holds the test database and repositories.
type TestDB struct {
	DB          *gorm.DB
	SettingRepo *repositories.SettingRepository
	OutputRepo  *repositories.OutputRepository
}

// SetupTestDB creates an in-memory SQLite database for testing.
// It returns a TestDB with all repositories initialized and a cleanup function.
func SetupTestDB(t *testing.T) (*TestDB, func()) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	testDB := &TestDB{
		DB:          db,
		SettingRepo: repositories.NewSettingRepository(db),
		OutputRepo:  repositories.NewOutputRepository(db),
	}

	cleanup := func() {
		_ = sqlDB.Close()
	}

	return testDB, cleanup
}

// SeedOutputs saves one output per device id, each sized to size bytes.
func SeedOutputs(t *testing.T, repo *repositories.OutputRepository, size int, deviceIDs ...int) {
	t.Helper()
	for _, id := range deviceIDs {
		if err := repo.Save(context.Background(), &models.Output{DeviceID: id, Size: size}); err != nil {
			t.Fatalf("Failed to seed output %d: %v", id, err)
		}
	}
}
