package config

import (
	"fmt"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigtoml"
)

// ImportConfig describes one import job, loaded from a TOML file passed to
// `wxctl import --import-config`.
type ImportConfig struct {
	Source   string     `toml:"source" default:"csv" usage:"Source type (csv or cumulus)"`
	Path     string     `toml:"path" usage:"File or glob of per-period source files"`
	Tranche  int        `toml:"tranche" default:"250" usage:"Records per database transaction"`
	Interval int        `toml:"interval" default:"300" usage:"Archive interval stamped on imported records, in seconds"`
	Units    string     `toml:"units" default:"METRIC" usage:"Unit system of the source data"`
	CSV      CSVOptions `toml:"csv"`
}

// CSVOptions configure the csv source type.
type CSVOptions struct {
	Delimiter  string            `toml:"delimiter" default:"," usage:"Field delimiter"`
	TimeField  string            `toml:"time_field" default:"timestamp" usage:"Name of the timestamp column"`
	TimeFormat string            `toml:"time_format" default:"2006-01-02 15:04:05" usage:"Go time layout of the timestamp column"`
	FieldMap   map[string]string `toml:"field_map" usage:"Source column to archive observation mapping"`
}

func LoadImportConfig(path string) (*ImportConfig, error) {
	var cfg ImportConfig

	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags:          true,
		SkipEnv:            true,
		FailOnFileNotFound: true,
		Files:              []string{path},
		FileDecoders: map[string]aconfig.FileDecoder{
			".toml": aconfigtoml.New(),
		},
	})

	if err := loader.Load(); err != nil {
		return nil, fmt.Errorf("failed to load import config %s: %w", path, err)
	}

	if cfg.Path == "" {
		return nil, fmt.Errorf("import config %s: path is required", path)
	}
	if cfg.Source != "csv" && cfg.Source != "cumulus" {
		return nil, fmt.Errorf("import config %s: unknown source type %q", path, cfg.Source)
	}
	if cfg.Tranche <= 0 {
		return nil, fmt.Errorf("import config %s: tranche must be positive", path)
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("import config %s: interval must be positive", path)
	}
	if cfg.Units != "METRIC" && cfg.Units != "ENGLISH" {
		return nil, fmt.Errorf("import config %s: units must be METRIC or ENGLISH", path)
	}

	return &cfg, nil
}
