package archive

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/wxtools/wxctl/internal/models"
)

var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Columns returns the archive table's column names in schema order.
func (s *Store) Columns(ctx context.Context) ([]string, error) {
	var columns []string
	err := s.db.WithContext(ctx).
		Raw("SELECT name FROM pragma_table_info(?)", models.ArchiveRecord{}.TableName()).
		Scan(&columns).Error
	return columns, err
}

func (s *Store) hasColumn(ctx context.Context, name string) (bool, error) {
	columns, err := s.Columns(ctx)
	if err != nil {
		return false, err
	}
	for _, column := range columns {
		if strings.EqualFold(column, name) {
			return true, nil
		}
	}
	return false, nil
}

// AddColumn adds a column to the archive table. columnType must be REAL or
// INTEGER.
func (s *Store) AddColumn(ctx context.Context, name, columnType string, dryRun bool) error {
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("invalid column name %q", name)
	}
	columnType = strings.ToUpper(columnType)
	if columnType == "INT" {
		columnType = "INTEGER"
	}
	if columnType != "REAL" && columnType != "INTEGER" {
		return fmt.Errorf("invalid column type %q: must be REAL or INTEGER", columnType)
	}

	exists, err := s.hasColumn(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("column %q already exists", name)
	}

	if dryRun {
		return nil
	}

	return s.db.WithContext(ctx).
		Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
			models.ArchiveRecord{}.TableName(), name, columnType)).Error
}

// RenameColumn renames an archive table column.
func (s *Store) RenameColumn(ctx context.Context, from, to string, dryRun bool) error {
	if !identifierRegex.MatchString(from) || !identifierRegex.MatchString(to) {
		return fmt.Errorf("invalid column name")
	}

	exists, err := s.hasColumn(ctx, from)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("column %q does not exist", from)
	}

	if dryRun {
		return nil
	}

	return s.db.WithContext(ctx).
		Exec(fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
			models.ArchiveRecord{}.TableName(), from, to)).Error
}

// DropColumns removes one or more columns from the archive table. All names
// are validated before the first drop so the operation is all-or-nothing.
func (s *Store) DropColumns(ctx context.Context, names []string, dryRun bool) error {
	for _, name := range names {
		if !identifierRegex.MatchString(name) {
			return fmt.Errorf("invalid column name %q", name)
		}
		exists, err := s.hasColumn(ctx, name)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("column %q does not exist", name)
		}
	}

	if dryRun {
		return nil
	}

	for _, name := range names {
		err := s.db.WithContext(ctx).
			Exec(fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s",
				models.ArchiveRecord{}.TableName(), name)).Error
		if err != nil {
			return fmt.Errorf("failed to drop column %q: %w", name, err)
		}
	}
	return nil
}
