package globals

import (
	"log/slog"
	"os"
	"sync"

	"github.com/wxtools/wxctl/internal/config"
	"github.com/wxtools/wxctl/internal/database"
)

var (
	// Global instances
	Settings *config.Settings
	Logger   *slog.Logger

	// Ensure initialization happens only once
	coreOnce sync.Once
	dbOnce   sync.Once
)

// Initialize sets up global instances and the archive database exactly once
func Initialize(verbose bool) {
	InitializeCore(verbose)

	dbOnce.Do(func() {
		if err := database.Init(); err != nil {
			Logger.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		Logger.Debug("Database initialized")
	})
}

// InitializeCore sets up the logger and settings without touching the
// database. The `database` command group manages the schema itself and must
// not trigger the automatic migration.
func InitializeCore(verbose bool) {
	coreOnce.Do(func() {
		// Setup logger first
		setupLogger(verbose)

		Logger.Debug("Initializing global instances")

		// Load or create settings
		newSettings, settingsLoaded := config.LoadOrInitializeSettingsFromDefaultLocation()
		Settings = settingsLoaded
		if newSettings {
			Logger.Debug("Created new settings file")
			if err := Settings.Save(); err != nil {
				Logger.Error("Failed to save new settings", "error", err)
			}
		} else {
			Logger.Debug("Loaded existing settings")
		}
	})
}

// setupLogger configures the global logger
func setupLogger(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	// Set as default logger
	slog.SetDefault(Logger)
}

// MustBeInitialized panics if globals haven't been initialized
func MustBeInitialized() {
	if Settings == nil || Logger == nil {
		panic("globals not initialized - call globals.Initialize() first")
	}
}
