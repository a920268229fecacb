package importer

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wxtools/wxctl/internal/config"
	"github.com/wxtools/wxctl/internal/models"
)

// CSVSource reads delimiter-separated files with a header row. Columns are
// mapped to archive observations through the config's field map; unmapped
// columns whose header happens to be an observation name map to themselves.
type CSVSource struct {
	cfg *config.ImportConfig
}

func (s *CSVSource) Periods() ([]string, error) {
	return globPeriods(s.cfg.Path)
}

func (s *CSVSource) ReadPeriod(name string) ([]models.ArchiveRecord, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open period %s: %w", name, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if s.cfg.CSV.Delimiter != "" {
		reader.Comma = rune(s.cfg.CSV.Delimiter[0])
	}
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read period %s: %w", name, err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	header := rows[0]
	timeIndex := -1
	observations := map[int]string{}
	for i, column := range header {
		column = strings.TrimSpace(column)
		if column == s.cfg.CSV.TimeField {
			timeIndex = i
			continue
		}
		if mapped, ok := s.cfg.CSV.FieldMap[column]; ok {
			observations[i] = mapped
		} else if models.IsObservation(column) {
			observations[i] = column
		}
	}
	if timeIndex < 0 {
		return nil, fmt.Errorf("period %s: time column %q not found", name, s.cfg.CSV.TimeField)
	}

	var records []models.ArchiveRecord
	for rowNum, row := range rows[1:] {
		when, err := time.ParseInLocation(s.cfg.CSV.TimeFormat, strings.TrimSpace(row[timeIndex]), time.Local)
		if err != nil {
			return nil, fmt.Errorf("period %s row %d: bad timestamp %q: %w", name, rowNum+2, row[timeIndex], err)
		}

		record := models.ArchiveRecord{
			Timestamp:  when.Unix(),
			Interval:   s.cfg.Interval,
			UnitSystem: s.cfg.Units,
		}

		for i, observation := range observations {
			if i >= len(row) {
				continue
			}
			field := strings.TrimSpace(row[i])
			if field == "" {
				continue
			}
			value, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("period %s row %d: bad value %q for %s: %w",
					name, rowNum+2, field, observation, err)
			}
			record.SetObservation(observation, value)
		}

		records = append(records, record)
	}

	return records, nil
}
