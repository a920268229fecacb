package config

import (
	"os"
	"path/filepath"
)

const (
	DB_NAME = "archive.sqlite"
)

func DBPath() string {
	if dbPath := os.Getenv("WXCTL_DB_PATH"); dbPath != "" {
		return dbPath
	}

	return filepath.Join(DataDir(), DB_NAME)
}
