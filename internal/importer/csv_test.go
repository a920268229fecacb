package importer_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wxtools/wxctl/internal/config"
	"github.com/wxtools/wxctl/internal/importer"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func csvConfig(path string) *config.ImportConfig {
	return &config.ImportConfig{
		Source:   "csv",
		Path:     path,
		Tranche:  250,
		Interval: 300,
		Units:    "METRIC",
		CSV: config.CSVOptions{
			Delimiter:  ",",
			TimeField:  "timestamp",
			TimeFormat: "2006-01-02 15:04:05",
			FieldMap: map[string]string{
				"Temperature": "outTemp",
				"Barometer":   "barometer",
			},
		},
	}
}

func TestCSVSource_ReadPeriod(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2024-01.csv",
		"timestamp,Temperature,Barometer,rain,ignored\n"+
			"2024-01-01 00:00:00,4.2,1013.1,0.0,junk\n"+
			"2024-01-01 00:05:00,4.1,1013.0,0.2,junk\n")

	source, err := importer.NewSource(csvConfig(filepath.Join(dir, "*.csv")))
	require.NoError(t, err)

	periods, err := source.Periods()
	require.NoError(t, err)
	require.Len(t, periods, 1)

	records, err := source.ReadPeriod(periods[0])
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local).Unix()
	assert.Equal(t, want, first.Timestamp)
	require.NotNil(t, first.OutTemp)
	assert.InDelta(t, 4.2, *first.OutTemp, 1e-9)
	require.NotNil(t, first.Barometer)
	assert.InDelta(t, 1013.1, *first.Barometer, 1e-9)
	// "rain" maps to itself by observation name; "ignored" is dropped.
	require.NotNil(t, first.Rain)
	assert.Nil(t, first.WindSpeed)
}

func TestCSVSource_EmptyFieldsSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sparse.csv",
		"timestamp,Temperature,Barometer\n"+
			"2024-01-01 00:00:00,4.2,\n")

	source, err := importer.NewSource(csvConfig(filepath.Join(dir, "*.csv")))
	require.NoError(t, err)

	records, err := source.ReadPeriod(filepath.Join(dir, "sparse.csv"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NotNil(t, records[0].OutTemp)
	assert.Nil(t, records[0].Barometer)
}

func TestCSVSource_MissingTimeColumn(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.csv", "when,Temperature\n2024-01-01 00:00:00,4.2\n")

	source, err := importer.NewSource(csvConfig(filepath.Join(dir, "*.csv")))
	require.NoError(t, err)

	_, err = source.ReadPeriod(filepath.Join(dir, "bad.csv"))
	assert.ErrorContains(t, err, `time column "timestamp" not found`)
}

func TestCSVSource_PeriodsSortedChronologically(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"2024-03.csv", "2024-01.csv", "2024-02.csv"} {
		writeFile(t, dir, name, "timestamp,Temperature\n")
	}

	source, err := importer.NewSource(csvConfig(filepath.Join(dir, "*.csv")))
	require.NoError(t, err)

	periods, err := source.Periods()
	require.NoError(t, err)
	require.Len(t, periods, 3)
	assert.Equal(t, filepath.Join(dir, "2024-01.csv"), periods[0])
	assert.Equal(t, filepath.Join(dir, "2024-03.csv"), periods[2])
}

func TestCSVSource_NoMatches(t *testing.T) {
	source, err := importer.NewSource(csvConfig(filepath.Join(t.TempDir(), "*.csv")))
	require.NoError(t, err)

	_, err = source.Periods()
	assert.ErrorContains(t, err, "no source files match")
}

func TestCumulusSource_ReadPeriod(t *testing.T) {
	dir := t.TempDir()
	// date, time, outTemp, outHum, dewpoint, windSpeed, windGust, windDir,
	// rainRate, rainToday, barometer
	writeFile(t, dir, "Jan24log.txt",
		"01/01/24,00:00,4.2,90,2.8,10.1,15.2,270,0.0,0.0,1013.1\n"+
			"01/01/24,00:05,4.1,91,2.8,11.0,16.0,265,2.4,0.2,1013.0\n"+
			"01/01/24,00:10,4.0,91,2.7,11.2,16.1,260,1.2,0.5,1012.9\n"+
			"02/01/24,00:00,3.9,92,2.6,10.0,15.0,255,0.6,0.1,1012.8\n")

	cfg := csvConfig(filepath.Join(dir, "*.txt"))
	cfg.Source = "cumulus"

	source, err := importer.NewSource(cfg)
	require.NoError(t, err)

	records, err := source.ReadPeriod(filepath.Join(dir, "Jan24log.txt"))
	require.NoError(t, err)
	require.Len(t, records, 4)

	// Cumulus dates are dd/mm/yy.
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local).Unix(), records[0].Timestamp)

	// Rain is derived from the daily running total.
	assert.InDelta(t, 0.0, *records[0].Rain, 1e-9)
	assert.InDelta(t, 0.2, *records[1].Rain, 1e-9)
	assert.InDelta(t, 0.3, *records[2].Rain, 1e-9)
	// Day rollover resets the running total.
	assert.InDelta(t, 0.1, *records[3].Rain, 1e-9)

	assert.InDelta(t, 4.2, *records[0].OutTemp, 1e-9)
	assert.InDelta(t, 1013.1, *records[0].Barometer, 1e-9)
}

func TestCumulusSource_ShortLine(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.txt", "01/01/24,00:00,4.2\n")

	cfg := csvConfig(filepath.Join(dir, "*.txt"))
	cfg.Source = "cumulus"

	source, err := importer.NewSource(cfg)
	require.NoError(t, err)

	_, err = source.ReadPeriod(filepath.Join(dir, "bad.txt"))
	assert.Error(t, err)
}
