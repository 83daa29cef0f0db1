package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bbernstein/lacylights-ddp/internal/database/models"
)

func TestOpen_InMemory(t *testing.T) {
	db, err := Open(Config{URL: ":memory:"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = Close(db) }()

	var result int
	if err := db.Raw("SELECT 1").Scan(&result).Error; err != nil {
		t.Errorf("Failed to query database: %v", err)
	}
	if result != 1 {
		t.Errorf("Expected 1, got %d", result)
	}

	if !db.Migrator().HasTable(&models.Output{}) {
		t.Error("Expected outputs table to be migrated")
	}
	if !db.Migrator().HasTable(&models.Setting{}) {
		t.Error("Expected settings table to be migrated")
	}
}

func TestOpen_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	nestedPath := filepath.Join(tmpDir, "nested", "dir", "test.db")

	db, err := Open(Config{URL: "file:" + nestedPath})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = Close(db) }()

	if _, err := os.Stat(filepath.Dir(nestedPath)); os.IsNotExist(err) {
		t.Error("Expected nested directory to be created")
	}
	if _, err := os.Stat(nestedPath); os.IsNotExist(err) {
		t.Error("Expected database file to be created")
	}
}

func TestOpen_DebugMode(t *testing.T) {
	db, err := Open(Config{URL: ":memory:", Debug: true})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := Close(db); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestClose_Nil(t *testing.T) {
	if err := Close(nil); err != nil {
		t.Errorf("Close(nil) should not error: %v", err)
	}
}
