package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wxtools/wxctl/internal/archive"
	"github.com/wxtools/wxctl/internal/config"
	"github.com/wxtools/wxctl/internal/database"
	"github.com/wxtools/wxctl/internal/globals"
	"github.com/wxtools/wxctl/internal/importer"
)

var importFlags struct {
	configPath string
	dryRun     bool
	noPrompt   bool
	date       string
	from       string
	to         string
}

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import --import-config=FILE",
	Short: "Import historical log files into the archive",
	Long: `Import historical log files into the archive database.

The import definition file names the source type, the per-period source
files and how their columns map to archive observations. Each period (one
source file) is processed as a unit and reported with its unique record
count and last timestamp. Records whose timestamp already exists in the
archive are skipped.

Do not run an import while the collection service is writing the same
archive; the importer refuses to start while the archive lock is held.

Examples:
  wxctl import --import-config=csv.toml --dry-run
  wxctl import --import-config=cumulus.toml --date=2024-01-15
  wxctl import --import-config=cumulus.toml --from=2024-01-01 --to=2024-03-31`,
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	globals.Initialize(verbose)

	if importFlags.configPath == "" {
		return fmt.Errorf("--import-config is required")
	}
	if importFlags.date != "" && (importFlags.from != "" || importFlags.to != "") {
		return fmt.Errorf("--date cannot be combined with --from/--to")
	}

	from, to, err := importDateRange()
	if err != nil {
		return err
	}

	cfg, err := config.LoadImportConfig(importFlags.configPath)
	if err != nil {
		return err
	}

	source, err := importer.NewSource(cfg)
	if err != nil {
		return err
	}

	store := archive.NewStore(database.DB, globals.Logger)

	imp := importer.New(store, source, cfg, globals.Settings.UnitSystem, globals.Logger,
		importer.WithLockPath(config.DBPath()+".lock"),
		importer.WithDryRun(importFlags.dryRun),
		importer.WithNoPrompt(importFlags.noPrompt),
		importer.WithDateRange(from, to))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := imp.Run(ctx); err != nil {
		if errors.Is(err, importer.ErrAborted) {
			return nil
		}
		return err
	}
	return nil
}

func importDateRange() (from, to time.Time, err error) {
	parse := func(value, flag string) (time.Time, error) {
		if value == "" {
			return time.Time{}, nil
		}
		parsed, err := time.ParseInLocation("2006-01-02", value, time.Local)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid %s %q: want YYYY-mm-dd", flag, value)
		}
		return parsed, nil
	}

	if importFlags.date != "" {
		day, err := parse(importFlags.date, "--date")
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return day, day, nil
	}

	if from, err = parse(importFlags.from, "--from"); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to, err = parse(importFlags.to, "--to"); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func init() {
	flags := importCmd.Flags()

	flags.StringVar(&importFlags.configPath, "import-config", "", "Path to the import definition file")
	flags.BoolVar(&importFlags.dryRun, "dry-run", false, "Parse and report, but do not write to the archive")
	flags.BoolVar(&importFlags.noPrompt, "no-prompt", false, "Skip the confirmation prompt")
	flags.StringVar(&importFlags.date, "date", "", "Import records for this date only (YYYY-mm-dd)")
	flags.StringVar(&importFlags.from, "from", "", "Import records starting with this date (YYYY-mm-dd)")
	flags.StringVar(&importFlags.to, "to", "", "Import records ending with this date (YYYY-mm-dd)")

	rootCmd.AddCommand(importCmd)
}
