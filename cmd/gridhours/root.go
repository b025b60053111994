package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jgoulah/gridhours/internal/config"
	"github.com/jgoulah/gridhours/internal/console"
	"github.com/jgoulah/gridhours/internal/database"
	"github.com/jgoulah/gridhours/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	dbPath   string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "gridhours",
	Short: "Summarize battery grid purchase and feed-in by hour of day",
	Long: `GridHours loads delimited battery metering exports, cleans them, and writes
an hourly summary of grid purchase and grid feed-in that flags the peak feed-in hour.
Runs can be kept in a local SQLite database and published over MQTT.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file, YAML or TOML (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default from config, else ./data.db)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// getDBPath returns the database file path (local directory)
func getDBPath(cfg *config.Config) string {
	if dbPath != "" {
		return dbPath
	}
	if cfg.Database != "" {
		return cfg.Database
	}
	return config.DefaultDatabase
}

// loadConfig loads the configuration file
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

// newLogger builds the run logger on stderr
func newLogger(cfg *config.Config) *slog.Logger {
	return logging.New(os.Stderr, cfg.GetLogLevel(), cfg.GetLogFormat())
}

func newConsole(cmd *cobra.Command) *console.Console {
	return console.New(cmd.OutOrStdout())
}

// openDB opens the database connection
func openDB(cfg *config.Config) (*database.DB, error) {
	path := getDBPath(cfg)

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return database.New(path)
}
