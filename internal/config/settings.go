package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

type Settings struct {
	// StationAddress is the host:port of the logger's serial bridge.
	StationAddress string `json:"station_address"`
	// UnitSystem is the unit system records are stored in ("METRIC" or "ENGLISH").
	UnitSystem string `json:"unit_system"`
	// Reports are the configured report definitions, in run order.
	Reports []ReportDefinition `json:"reports"`
}

// ReportDefinition describes one configured report.
type ReportDefinition struct {
	Name    string `json:"name"`
	Skin    string `json:"skin"`
	Enabled bool   `json:"enabled"`
	Units   string `json:"units"`
	Lang    string `json:"lang"`
}

func DefaultSettingsPath() string {
	return filepath.Join(ConfigDir(), "settings.json")
}

func LoadOrInitializeSettingsFromDefaultLocation() (bool, *Settings) {
	return LoadOrInitializeSettings(DefaultSettingsPath())
}

func LoadOrInitializeSettings(path string) (bool, *Settings) {
	if settings, err := LoadSettings(path); err == nil {
		return false, settings
	}

	return true, &Settings{
		StationAddress: "wxlogger.local:8899",
		UnitSystem:     "METRIC",
		Reports: []ReportDefinition{
			{Name: "standard", Skin: "Standard", Enabled: true, Units: "METRIC", Lang: "en"},
			{Name: "seasons", Skin: "Seasons", Enabled: false, Units: "METRIC", Lang: "en"},
		},
	}
}

func LoadSettings(path string) (*Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, err
	}

	return &settings, nil
}

// Report looks up a configured report by name.
func (s *Settings) Report(name string) (ReportDefinition, bool) {
	for _, report := range s.Reports {
		if report.Name == name {
			return report, true
		}
	}
	return ReportDefinition{}, false
}

func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
