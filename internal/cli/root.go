package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wxtools/wxctl/internal/version"
)

var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wxctl",
	Short: "Weather station logger, archive and report tool",
	Long: `wxctl operates a weather station data logger, imports historical log
files into the local archive database, and runs reports against that
archive.

The logger is reached over its network serial bridge. The archive is a
local sqlite database; its location can be overridden with WXCTL_DB_PATH.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the wxctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetVersion())
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug) logging")

	rootCmd.AddCommand(versionCmd)
}
