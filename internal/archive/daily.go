package archive

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wxtools/wxctl/internal/models"
)

const dateLayout = "2006-01-02"

// RebuildDaily recomputes daily summaries for every local calendar day in
// [from, to]. Zero from/to default to the archive's full timespan. Returns
// the number of days rebuilt. Under dryRun nothing is written.
func (s *Store) RebuildDaily(ctx context.Context, from, to time.Time, dryRun bool) (int, error) {
	first, last, ok, err := s.Timespan(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}

	if from.IsZero() {
		from = time.Unix(first, 0)
	}
	if to.IsZero() {
		to = time.Unix(last, 0)
	}

	// The daily summary table may have been dropped; recreate it on demand.
	if !dryRun {
		if err := s.db.WithContext(ctx).AutoMigrate(&models.DailySummary{}); err != nil {
			return 0, err
		}
	}

	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	lastDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location())

	days := 0
	for !day.After(lastDay) {
		next := day.AddDate(0, 0, 1)

		records, err := s.RecordsBetween(ctx, day.Unix(), next.Unix())
		if err != nil {
			return days, err
		}

		if len(records) > 0 {
			summaries := summarizeDay(day.Format(dateLayout), records)
			if !dryRun {
				if err := s.replaceSummaries(ctx, day.Format(dateLayout), summaries); err != nil {
					return days, err
				}
			}
			days++
			s.logger.Debug("rebuilt daily summary",
				"date", day.Format(dateLayout), "records", len(records), "dry_run", dryRun)
		}

		day = next
	}

	return days, nil
}

// DropDaily removes the daily summary table entirely.
func (s *Store) DropDaily(ctx context.Context, dryRun bool) error {
	if dryRun {
		return nil
	}
	if err := s.db.WithContext(ctx).Migrator().DropTable(&models.DailySummary{}); err != nil {
		return fmt.Errorf("failed to drop daily summaries: %w", err)
	}
	return nil
}

// SummariesForDate returns the stored summaries for a "2006-01-02" date.
func (s *Store) SummariesForDate(ctx context.Context, date string) ([]models.DailySummary, error) {
	var summaries []models.DailySummary
	err := s.db.WithContext(ctx).
		Where("date = ?", date).
		Order("observation").
		Find(&summaries).Error
	return summaries, err
}

func (s *Store) replaceSummaries(ctx context.Context, date string, summaries []models.DailySummary) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("date = ?", date).Delete(&models.DailySummary{}).Error; err != nil {
			return err
		}
		for i := range summaries {
			if err := tx.Create(&summaries[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func summarizeDay(date string, records []models.ArchiveRecord) []models.DailySummary {
	byObservation := map[string]*models.DailySummary{}

	for i := range records {
		record := &records[i]
		for name, value := range record.Observations() {
			summary, seen := byObservation[name]
			if !seen {
				summary = &models.DailySummary{
					Date:        date,
					Observation: name,
					Min:         value,
					MinTime:     record.Timestamp,
					Max:         value,
					MaxTime:     record.Timestamp,
				}
				byObservation[name] = summary
			}

			if value < summary.Min {
				summary.Min = value
				summary.MinTime = record.Timestamp
			}
			if value > summary.Max {
				summary.Max = value
				summary.MaxTime = record.Timestamp
			}
			summary.Sum += value
			summary.Count++
		}
	}

	summaries := make([]models.DailySummary, 0, len(byObservation))
	for _, summary := range byObservation {
		summaries = append(summaries, *summary)
	}
	return summaries
}
