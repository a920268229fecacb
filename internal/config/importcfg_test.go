package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeImportConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "import.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadImportConfigDefaults(t *testing.T) {
	path := writeImportConfig(t, `path = "logs/*.csv"`)

	cfg, err := LoadImportConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "csv", cfg.Source)
	assert.Equal(t, 250, cfg.Tranche)
	assert.Equal(t, 300, cfg.Interval)
	assert.Equal(t, "METRIC", cfg.Units)
	assert.Equal(t, "timestamp", cfg.CSV.TimeField)
	assert.Equal(t, "2006-01-02 15:04:05", cfg.CSV.TimeFormat)
}

func TestLoadImportConfigFull(t *testing.T) {
	path := writeImportConfig(t, `
source = "cumulus"
path = "data/*.txt"
tranche = 500
interval = 600
units = "ENGLISH"

[csv]
delimiter = ";"
time_field = "dateTime"

[csv.field_map]
temp_out = "outTemp"
hum_out = "outHumidity"
`)

	cfg, err := LoadImportConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "cumulus", cfg.Source)
	assert.Equal(t, 500, cfg.Tranche)
	assert.Equal(t, 600, cfg.Interval)
	assert.Equal(t, "ENGLISH", cfg.Units)
	assert.Equal(t, ";", cfg.CSV.Delimiter)
	assert.Equal(t, "outTemp", cfg.CSV.FieldMap["temp_out"])
}

func TestLoadImportConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing path", `source = "csv"`},
		{"unknown source", "source = \"wunderground\"\npath = \"x.csv\""},
		{"bad tranche", "path = \"x.csv\"\ntranche = 0"},
		{"bad interval", "path = \"x.csv\"\ninterval = -1"},
		{"bad units", "path = \"x.csv\"\nunits = \"SI\""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadImportConfig(writeImportConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadImportConfigMissingFile(t *testing.T) {
	_, err := LoadImportConfig(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}
