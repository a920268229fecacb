package report

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/wxtools/wxctl/internal/archive"
	"github.com/wxtools/wxctl/internal/config"
	"github.com/wxtools/wxctl/internal/models"
	"github.com/wxtools/wxctl/internal/units"
)

// Engine regenerates configured reports from the archive as of a given
// instant. Skin template rendering is out of scope; a report is a plain
// text summary of the as-of day and the latest record.
type Engine struct {
	store     *archive.Store
	settings  *config.Settings
	clock     clockwork.Clock
	logger    *slog.Logger
	outputDir string
}

type Option func(*Engine)

func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

func WithOutputDir(dir string) Option {
	return func(e *Engine) { e.outputDir = dir }
}

func NewEngine(store *archive.Store, settings *config.Settings, logger *slog.Logger, opts ...Option) *Engine {
	engine := &Engine{
		store:     store,
		settings:  settings,
		clock:     clockwork.NewRealClock(),
		logger:    logger,
		outputDir: filepath.Join(config.DataDir(), "reports"),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// List returns the configured reports in run order.
func (e *Engine) List() []config.ReportDefinition {
	return e.settings.Reports
}

// Generated describes one written report.
type Generated struct {
	Report string
	Path   string
}

// Run regenerates reports as of asOf (zero means now). With no names, all
// enabled reports run; naming a report runs it even when disabled. Unknown
// names are an error.
func (e *Engine) Run(ctx context.Context, names []string, asOf time.Time) ([]Generated, error) {
	if asOf.IsZero() {
		asOf = e.clock.Now()
	}

	var selected []config.ReportDefinition
	if len(names) == 0 {
		for _, definition := range e.settings.Reports {
			if definition.Enabled {
				selected = append(selected, definition)
			}
		}
	} else {
		for _, name := range names {
			definition, ok := e.settings.Report(name)
			if !ok {
				return nil, fmt.Errorf("unknown report %q: configured reports are %v", name, e.reportNames())
			}
			selected = append(selected, definition)
		}
	}

	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	var generated []Generated
	for _, definition := range selected {
		path, err := e.generate(ctx, definition, asOf)
		if err != nil {
			return generated, fmt.Errorf("failed to generate report %s: %w", definition.Name, err)
		}
		generated = append(generated, Generated{Report: definition.Name, Path: path})
		e.logger.Info("generated report", "report", definition.Name, "path", path, "as_of", asOf)
	}
	return generated, nil
}

func (e *Engine) reportNames() []string {
	names := make([]string, len(e.settings.Reports))
	for i, definition := range e.settings.Reports {
		names[i] = definition.Name
	}
	return names
}

func (e *Engine) generate(ctx context.Context, definition config.ReportDefinition, asOf time.Time) (string, error) {
	latest, err := e.store.LatestRecord(ctx, asOf.Unix())
	if err != nil {
		return "", err
	}

	dayStart := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, asOf.Location())
	records, err := e.store.RecordsBetween(ctx, dayStart.Unix(), asOf.Unix()+1)
	if err != nil {
		return "", err
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "Report: %s (skin %s, lang %s)\n", definition.Name, definition.Skin, definition.Lang)
	fmt.Fprintf(&out, "As of: %s\n", asOf.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&out, "Units: %s\n\n", definition.Units)

	if latest == nil {
		fmt.Fprintln(&out, "No records in archive.")
	} else {
		display := *latest
		if err := units.ConvertRecord(&display, display.UnitSystem, definition.Units); err != nil {
			return "", err
		}

		fmt.Fprintf(&out, "Latest record: %s\n", time.Unix(display.Timestamp, 0).Format("2006-01-02 15:04:05"))
		writeObservations(&out, display.Observations(), definition.Units)

		if len(records) > 0 {
			fmt.Fprintf(&out, "\nDay so far (%d records):\n", len(records))
			writeDayExtremes(&out, records, definition.Units)
		}
	}

	path := filepath.Join(e.outputDir, definition.Name+".txt")
	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func writeObservations(out *bytes.Buffer, observations map[string]float64, unitSystem string) {
	names := make([]string, 0, len(observations))
	for name := range observations {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(out, "  %-12s %8.1f %s\n", name, observations[name], units.Label(name, unitSystem))
	}
}

func writeDayExtremes(out *bytes.Buffer, records []models.ArchiveRecord, unitSystem string) {
	type extremes struct {
		min, max float64
		seen     bool
	}
	byObservation := map[string]*extremes{}

	for i := range records {
		display := records[i]
		if err := units.ConvertRecord(&display, display.UnitSystem, unitSystem); err != nil {
			continue
		}
		for name, value := range display.Observations() {
			entry, ok := byObservation[name]
			if !ok {
				entry = &extremes{min: value, max: value, seen: true}
				byObservation[name] = entry
				continue
			}
			if value < entry.min {
				entry.min = value
			}
			if value > entry.max {
				entry.max = value
			}
		}
	}

	names := make([]string, 0, len(byObservation))
	for name := range byObservation {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := byObservation[name]
		fmt.Fprintf(out, "  %-12s min %8.1f  max %8.1f %s\n",
			name, entry.min, entry.max, units.Label(name, unitSystem))
	}
}
