package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	config "github.com/wxtools/wxctl/internal/config"
)

var (
	DB      *gorm.DB
	once    sync.Once
	initErr error
)

func Init() error {
	once.Do(func() {
		DB, initErr = SetupDatabase()
	})
	return initErr
}

func SetupDatabase() (*gorm.DB, error) {
	return SetupDatabaseAt(config.DBPath())
}

func SetupDatabaseAt(dbPath string) (*gorm.DB, error) {
	db, err := OpenDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	err = Migrate(db)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// OpenDatabase opens the archive without running migrations. Used by the
// `database` command group, which wants to inspect or mutate the schema
// itself.
func OpenDatabase(dbPath string) (*gorm.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA busy_timeout = 5000")

	return db, nil
}
