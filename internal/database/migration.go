package database

import (
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"strconv"

	"gorm.io/gorm"
)

//go:embed migrations/*/up.sql migrations/*/down.sql
var migrationsFS embed.FS

type SchemaVersion uint64

type SchemaMigration struct {
	Version SchemaVersion `gorm:"primaryKey"`
}

func CurrentSchemaVersion(db *gorm.DB) SchemaVersion {
	var schemaMigration SchemaMigration

	db.
		Model(&SchemaMigration{}).
		Select("version").
		Order("version desc").
		Limit(1).
		Scan(&schemaMigration)

	return schemaMigration.Version
}

type Migration struct {
	Version SchemaVersion
	Dir     fs.DirEntry
}

func (migration *Migration) Up(db *gorm.DB) error {
	return migration.execFile(db, "up.sql")
}

func (migration *Migration) Down(db *gorm.DB) error {
	return migration.execFile(db, "down.sql")
}

func (migration *Migration) execFile(db *gorm.DB, name string) error {
	sql, err := fs.ReadFile(migrationsFS, fmt.Sprintf("migrations/%s/%s", migration.Dir.Name(), name))
	if err != nil {
		return fmt.Errorf("failed to read %s for migration %s: %w", name, migration.Dir.Name(), err)
	}

	result := db.Exec(string(sql))
	if result.Error != nil {
		db.Rollback()
		return result.Error
	}

	return nil
}

func Migrate(db *gorm.DB) error {
	db.AutoMigrate(&SchemaMigration{})

	currentVersion := CurrentSchemaVersion(db)
	migrations, err := MigrationsNewerThan(currentVersion)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		err := db.Transaction(func(tx *gorm.DB) error {
			schemaMigration := SchemaMigration{
				Version: migration.Version,
			}

			tx.Create(&schemaMigration)

			return migration.Up(tx)
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

func MigrationsNewerThan(minVersion SchemaVersion) ([]Migration, error) {
	migrationVersionRegex := regexp.MustCompile(`^(\d+)`)

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}

	var migrations []Migration
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		match := migrationVersionRegex.FindStringSubmatch(entry.Name())

		if len(match) != 2 {
			return nil, fmt.Errorf("invalid migration directory name: %s", entry.Name())
		}

		versionInt, err := strconv.ParseUint(match[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid migration version: %s - %w", match[1], err)
		}

		version := SchemaVersion(versionInt)

		if version <= minVersion {
			continue
		}

		migrations = append(migrations, Migration{
			Version: version,
			Dir:     entry,
		})
	}

	return migrations, nil
}
