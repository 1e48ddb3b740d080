package main

import (
	"fmt"
	"os"
	"time"

	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	version = "dev"

	configPath  string
	userFlag    string
	dataDirFlag string
	logLevel    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wattwise",
	Short: "WattWise - Track device power usage and save energy",
	Long: `WattWise tracks how much energy your devices draw, keeps a per-user
usage ledger, and turns the numbers into daily statistics, a shared
leaderboard, and AI-powered saving recommendations.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to the run command when no subcommand is provided
		return runRun(cmd, args)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "Username that owns the usage ledger")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Directory holding per-user ledger files")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads the configuration and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if userFlag != "" {
		cfg.User = userFlag
	}
	if dataDirFlag != "" {
		cfg.DataDir = dataDirFlag
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	return cfg, nil
}

// requireUser returns the configured username. Every command that touches
// a ledger fails without one.
func requireUser(cfg *config.Config) (string, error) {
	if cfg.User == "" {
		return "", fmt.Errorf("no username configured: set --user, the user config key, or WATTWISE_USER")
	}
	return cfg.User, nil
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// JSON goes to stdout for log collectors; console output stays on
	// stderr so command output on stdout remains clean.
	if cfg.Format == "json" {
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

// quietLogger returns a logger for one-shot commands that should only
// surface errors.
func quietLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.ErrorLevel).With().Timestamp().Logger()
}

// parseDuration parses a duration string with a fallback
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
