package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/wxtools/wxctl/internal/archive"
	"github.com/wxtools/wxctl/internal/config"
	"github.com/wxtools/wxctl/internal/database"
	"github.com/wxtools/wxctl/internal/globals"
	"github.com/wxtools/wxctl/internal/models"
)

var databaseFlags struct {
	dryRun     bool
	columnType string
	toName     string
	date       string
	from       string
	to         string
}

// databaseCmd represents the database command
var databaseCmd = &cobra.Command{
	Use:   "database",
	Short: "Manage the archive database",
	Long:  `Manage the archive database schema and daily summaries. Make a backup before any mutating action.`,
}

var databaseCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the archive database",
	RunE:  runDatabaseCreate,
}

var databaseDropDailyCmd = &cobra.Command{
	Use:   "drop-daily",
	Short: "Drop the daily summaries",
	RunE:  runDatabaseDropDaily,
}

var databaseRebuildDailyCmd = &cobra.Command{
	Use:   "rebuild-daily",
	Short: "Rebuild the daily summaries from archive records",
	RunE:  runDatabaseRebuildDaily,
}

var databaseAddColumnCmd = &cobra.Command{
	Use:   "add-column NAME",
	Short: "Add a column to the archive table",
	Args:  cobra.ExactArgs(1),
	RunE:  runDatabaseAddColumn,
}

var databaseRenameColumnCmd = &cobra.Command{
	Use:   "rename-column FROM-NAME --to-name=NEW-NAME",
	Short: "Rename a column in the archive table",
	Args:  cobra.ExactArgs(1),
	RunE:  runDatabaseRenameColumn,
}

var databaseDropColumnsCmd = &cobra.Command{
	Use:   "drop-columns NAME...",
	Short: "Drop one or more columns from the archive table",
	Long: `Drop (remove) one or more columns from the archive table.

For example:
  wxctl database drop-columns soil_temp1 battery_status`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDatabaseDropColumns,
}

// openDatabaseStore opens the archive without running the automatic
// migration, so schema commands see the database as it is on disk.
func openDatabaseStore() (*archive.Store, *gorm.DB, error) {
	globals.InitializeCore(verbose)

	db, err := database.OpenDatabase(config.DBPath())
	if err != nil {
		return nil, nil, err
	}
	return archive.NewStore(db, globals.Logger), db, nil
}

func runDatabaseCreate(cmd *cobra.Command, args []string) error {
	_, db, err := openDatabaseStore()
	if err != nil {
		return err
	}

	if db.Migrator().HasTable(models.ArchiveRecord{}.TableName()) {
		return fmt.Errorf("archive database already exists at %s", config.DBPath())
	}

	if databaseFlags.dryRun {
		fmt.Printf("Would create archive database at %s\n", config.DBPath())
		return nil
	}

	if err := database.Migrate(db); err != nil {
		return err
	}
	fmt.Printf("Created archive database at %s\n", config.DBPath())
	return nil
}

func runDatabaseDropDaily(cmd *cobra.Command, args []string) error {
	store, _, err := openDatabaseStore()
	if err != nil {
		return err
	}

	if databaseFlags.dryRun {
		fmt.Println("Would drop the daily summaries.")
		return nil
	}

	if err := store.DropDaily(databaseContext(cmd), false); err != nil {
		return err
	}
	fmt.Println("Dropped the daily summaries.")
	return nil
}

func runDatabaseRebuildDaily(cmd *cobra.Command, args []string) error {
	if databaseFlags.date != "" && (databaseFlags.from != "" || databaseFlags.to != "") {
		return fmt.Errorf("--date cannot be combined with --from/--to")
	}

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

	var from, to time.Time
	var err error
	if databaseFlags.date != "" {
		if from, err = parse(databaseFlags.date, "--date"); err != nil {
			return err
		}
		to = from
	} else {
		if from, err = parse(databaseFlags.from, "--from"); err != nil {
			return err
		}
		if to, err = parse(databaseFlags.to, "--to"); err != nil {
			return err
		}
	}

	store, _, err := openDatabaseStore()
	if err != nil {
		return err
	}

	days, err := store.RebuildDaily(databaseContext(cmd), from, to, databaseFlags.dryRun)
	if err != nil {
		return err
	}

	if databaseFlags.dryRun {
		fmt.Printf("Would rebuild daily summaries for %d day(s).\n", days)
	} else {
		fmt.Printf("Rebuilt daily summaries for %d day(s).\n", days)
	}
	return nil
}

func runDatabaseAddColumn(cmd *cobra.Command, args []string) error {
	store, _, err := openDatabaseStore()
	if err != nil {
		return err
	}

	name := args[0]
	if err := store.AddColumn(databaseContext(cmd), name, databaseFlags.columnType, databaseFlags.dryRun); err != nil {
		return err
	}

	if databaseFlags.dryRun {
		fmt.Printf("Would add column %q.\n", name)
	} else {
		fmt.Printf("Added column %q.\n", name)
	}
	return nil
}

func runDatabaseRenameColumn(cmd *cobra.Command, args []string) error {
	if databaseFlags.toName == "" {
		return fmt.Errorf("--to-name is required")
	}

	store, _, err := openDatabaseStore()
	if err != nil {
		return err
	}

	from := args[0]
	if err := store.RenameColumn(databaseContext(cmd), from, databaseFlags.toName, databaseFlags.dryRun); err != nil {
		return err
	}

	if databaseFlags.dryRun {
		fmt.Printf("Would rename column %q to %q.\n", from, databaseFlags.toName)
	} else {
		fmt.Printf("Renamed column %q to %q.\n", from, databaseFlags.toName)
	}
	return nil
}

func runDatabaseDropColumns(cmd *cobra.Command, args []string) error {
	store, _, err := openDatabaseStore()
	if err != nil {
		return err
	}

	if err := store.DropColumns(databaseContext(cmd), args, databaseFlags.dryRun); err != nil {
		return err
	}

	if databaseFlags.dryRun {
		fmt.Printf("Would drop %d column(s).\n", len(args))
	} else {
		fmt.Printf("Dropped %d column(s).\n", len(args))
	}
	return nil
}

func databaseContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func init() {
	for _, sub := range []*cobra.Command{
		databaseCreateCmd, databaseDropDailyCmd, databaseRebuildDailyCmd,
		databaseAddColumnCmd, databaseRenameColumnCmd, databaseDropColumnsCmd,
	} {
		sub.Flags().BoolVar(&databaseFlags.dryRun, "dry-run", false, "Print what would happen, but do not actually do it")
		databaseCmd.AddCommand(sub)
	}

	databaseAddColumnCmd.Flags().StringVar(&databaseFlags.columnType, "type", "REAL", "Type of the new column (REAL or INTEGER)")
	databaseRenameColumnCmd.Flags().StringVar(&databaseFlags.toName, "to-name", "", "New name of the column")
	databaseRebuildDailyCmd.Flags().StringVar(&databaseFlags.date, "date", "", "Rebuild for this date only (YYYY-mm-dd)")
	databaseRebuildDailyCmd.Flags().StringVar(&databaseFlags.from, "from", "", "Rebuild starting with this date (YYYY-mm-dd)")
	databaseRebuildDailyCmd.Flags().StringVar(&databaseFlags.to, "to", "", "Rebuild ending with this date (YYYY-mm-dd)")

	rootCmd.AddCommand(databaseCmd)
}
