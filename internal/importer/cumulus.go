package importer

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wxtools/wxctl/internal/config"
	"github.com/wxtools/wxctl/internal/models"
)

// CumulusSource reads Cumulus monthly log files: headerless comma-separated
// rows starting with "dd/mm/yy,HH:MM". Only the leading standard columns
// are used; trailing columns vary between Cumulus versions and are ignored.
//
// Column layout: date, time, outTemp, outHumidity, dewpoint, windSpeed,
// windGust, windDir, rainRate, rainToday, barometer.
type CumulusSource struct {
	cfg *config.ImportConfig
}

const cumulusMinColumns = 11

func (s *CumulusSource) Periods() ([]string, error) {
	return globPeriods(s.cfg.Path)
}

func (s *CumulusSource) ReadPeriod(name string) ([]models.ArchiveRecord, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open period %s: %w", name, err)
	}
	defer file.Close()

	var records []models.ArchiveRecord

	// Rain is logged as a daily running total; the per-record amount is the
	// delta, clamped at day rollover.
	lastRainDay := ""
	lastRainTotal := 0.0

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) < cumulusMinColumns {
			return nil, fmt.Errorf("period %s line %d: want at least %d fields, got %d",
				name, lineNum, cumulusMinColumns, len(fields))
		}

		when, err := time.ParseInLocation("02/01/06 15:04", fields[0]+" "+fields[1], time.Local)
		if err != nil {
			return nil, fmt.Errorf("period %s line %d: bad timestamp: %w", name, lineNum, err)
		}

		values := make([]float64, cumulusMinColumns-2)
		for i := range values {
			values[i], err = strconv.ParseFloat(strings.TrimSpace(fields[i+2]), 64)
			if err != nil {
				return nil, fmt.Errorf("period %s line %d: bad field %d: %w", name, lineNum, i+2, err)
			}
		}

		rainToday := values[7]
		day := fields[0]
		rain := rainToday - lastRainTotal
		if day != lastRainDay || rain < 0 {
			rain = rainToday
		}
		lastRainDay = day
		lastRainTotal = rainToday

		record := models.ArchiveRecord{
			Timestamp:  when.Unix(),
			Interval:   s.cfg.Interval,
			UnitSystem: s.cfg.Units,
		}
		record.SetObservation("outTemp", values[0])
		record.SetObservation("outHumidity", values[1])
		record.SetObservation("dewpoint", values[2])
		record.SetObservation("windSpeed", values[3])
		record.SetObservation("windGust", values[4])
		record.SetObservation("windDir", values[5])
		record.SetObservation("rainRate", values[6])
		record.SetObservation("rain", rain)
		record.SetObservation("barometer", values[8])

		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read period %s: %w", name, err)
	}

	return records, nil
}
