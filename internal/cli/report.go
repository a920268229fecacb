package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ijt/go-anytime"
	"github.com/spf13/cobra"

	"github.com/wxtools/wxctl/internal/archive"
	"github.com/wxtools/wxctl/internal/database"
	"github.com/wxtools/wxctl/internal/globals"
	"github.com/wxtools/wxctl/internal/report"
)

var reportFlags struct {
	epoch int64
	date  string
	time  string
}

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:     "report",
	Aliases: []string{"reports"},
	Short:   "List and run configured reports",
}

// reportListCmd represents the report list command
var reportListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List configured reports",
	Long:    `List all configured reports with their skin, enabled flag, unit system and language.`,
	RunE:    runReportList,
}

// reportRunCmd represents the report run command
var reportRunCmd = &cobra.Command{
	Use:   "run [NAME ...]",
	Short: "Regenerate reports from the archive",
	Long: `Regenerate reports as of a given time. Without names, all enabled
reports run; naming a report runs it even when disabled.

Examples:
  wxctl report run
  wxctl report run standard
  wxctl report run --epoch=1706742000
  wxctl report run --date=2024-01-31 --time=23:55`,
	RunE: runReportRun,
}

func runReportList(cmd *cobra.Command, args []string) error {
	globals.Initialize(verbose)

	store := archive.NewStore(database.DB, globals.Logger)
	engine := report.NewEngine(store, globals.Settings, globals.Logger)

	reports := engine.List()
	if len(reports) == 0 {
		fmt.Println("No reports configured.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "NAME\tSKIN\tENABLED\tUNITS\tLANG")
	for _, definition := range reports {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n",
			definition.Name, definition.Skin, definition.Enabled, definition.Units, definition.Lang)
	}
	return nil
}

func runReportRun(cmd *cobra.Command, args []string) error {
	globals.Initialize(verbose)

	asOf, err := reportAsOf(cmd)
	if err != nil {
		return err
	}

	store := archive.NewStore(database.DB, globals.Logger)
	engine := report.NewEngine(store, globals.Settings, globals.Logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	generated, err := engine.Run(ctx, args, asOf)
	if err != nil {
		return err
	}

	for _, g := range generated {
		fmt.Printf("Generated %s: %s\n", g.Report, g.Path)
	}
	return nil
}

func reportAsOf(cmd *cobra.Command) (time.Time, error) {
	epochGiven := cmd.Flags().Changed("epoch")
	dateGiven := reportFlags.date != "" || reportFlags.time != ""

	if epochGiven && dateGiven {
		return time.Time{}, fmt.Errorf("--epoch cannot be combined with --date/--time")
	}

	if epochGiven {
		return time.Unix(reportFlags.epoch, 0), nil
	}

	if dateGiven {
		if reportFlags.date == "" {
			return time.Time{}, fmt.Errorf("--time requires --date")
		}
		value := strings.TrimSpace(reportFlags.date + " " + reportFlags.time)
		asOf, err := anytime.Parse(value, time.Now())
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --date/--time %q: %w", value, err)
		}
		return asOf, nil
	}

	return time.Time{}, nil
}

func init() {
	flags := reportRunCmd.Flags()
	flags.Int64Var(&reportFlags.epoch, "epoch", 0, "Generate as of this unix timestamp")
	flags.StringVar(&reportFlags.date, "date", "", "Generate as of this date (YYYY-mm-dd)")
	flags.StringVar(&reportFlags.time, "time", "", "Generate as of this time of day (HH:MM), with --date")

	reportCmd.AddCommand(reportListCmd)
	reportCmd.AddCommand(reportRunCmd)
	rootCmd.AddCommand(reportCmd)
}
