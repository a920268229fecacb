package archive

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"github.com/wxtools/wxctl/internal/models"
)

// Store wraps the archive database. All writes go through tranche-sized
// transactions; a record whose timestamp already exists is skipped, logged
// and never retried.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// InsertResult reports the outcome of an InsertRecords call.
type InsertResult struct {
	Inserted   int
	Duplicates []int64
}

// InsertRecords writes records in transactions of trancheSize. Records whose
// timestamp is already present in the archive are reported in Duplicates.
func (s *Store) InsertRecords(ctx context.Context, records []models.ArchiveRecord, trancheSize int) (InsertResult, error) {
	var result InsertResult

	if trancheSize <= 0 {
		trancheSize = len(records)
	}

	for start := 0; start < len(records); start += trancheSize {
		end := start + trancheSize
		if end > len(records) {
			end = len(records)
		}
		tranche := records[start:end]

		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			timestamps := make([]int64, len(tranche))
			for i, record := range tranche {
				timestamps[i] = record.Timestamp
			}

			var existing []int64
			if err := tx.Model(&models.ArchiveRecord{}).
				Where("timestamp IN ?", timestamps).
				Pluck("timestamp", &existing).Error; err != nil {
				return err
			}

			taken := make(map[int64]bool, len(existing))
			for _, ts := range existing {
				taken[ts] = true
			}

			for i := range tranche {
				record := tranche[i]
				if taken[record.Timestamp] {
					s.logger.Warn("record already exists in archive, skipping",
						"timestamp", record.Timestamp)
					result.Duplicates = append(result.Duplicates, record.Timestamp)
					continue
				}

				record.ID = 0
				if err := tx.Create(&record).Error; err != nil {
					if errors.Is(err, gorm.ErrDuplicatedKey) {
						s.logger.Warn("record already exists in archive, skipping",
							"timestamp", record.Timestamp)
						result.Duplicates = append(result.Duplicates, record.Timestamp)
						continue
					}
					return err
				}
				result.Inserted++
			}

			return nil
		})
		if err != nil {
			return result, err
		}
	}

	return result, nil
}

// RecordsBetween returns archive records with start <= timestamp < end,
// ordered by timestamp.
func (s *Store) RecordsBetween(ctx context.Context, start, end int64) ([]models.ArchiveRecord, error) {
	var records []models.ArchiveRecord
	err := s.db.WithContext(ctx).
		Where("timestamp >= ? AND timestamp < ?", start, end).
		Order("timestamp").
		Find(&records).Error
	return records, err
}

// LatestRecord returns the newest record at or before asOf, or nil when the
// archive holds none.
func (s *Store) LatestRecord(ctx context.Context, asOf int64) (*models.ArchiveRecord, error) {
	var record models.ArchiveRecord
	err := s.db.WithContext(ctx).
		Where("timestamp <= ?", asOf).
		Order("timestamp DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Count returns the number of archive records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ArchiveRecord{}).Count(&count).Error
	return count, err
}

// Timespan returns the first and last record timestamps. ok is false when
// the archive is empty.
func (s *Store) Timespan(ctx context.Context) (first, last int64, ok bool, err error) {
	count, err := s.Count(ctx)
	if err != nil || count == 0 {
		return 0, 0, false, err
	}

	row := s.db.WithContext(ctx).Model(&models.ArchiveRecord{}).
		Select("MIN(timestamp), MAX(timestamp)").Row()
	if err := row.Scan(&first, &last); err != nil {
		return 0, 0, false, err
	}
	return first, last, true, nil
}
