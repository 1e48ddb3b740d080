package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/storage/textfile"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check configuration and data directory",
	Long:  `Validate the configuration, report effective settings, and verify the data directory is usable.`,
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Println()
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	cyan.Println("WATTWISE CONFIGURATION CHECK")
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	fmt.Printf("User:       %s\n", orUnset(cfg.User))
	fmt.Printf("Data dir:   %s\n", cfg.DataDir)
	fmt.Printf("Logging:    %s (%s)\n", cfg.Logging.Level, cfg.Logging.Format)
	fmt.Printf("Tick:       %s\n", cfg.Tracker.TickInterval)
	if d := parseDuration(cfg.Tracker.AutosaveInterval, 0); d > 0 {
		fmt.Printf("Autosave:   every %s\n", d)
	} else {
		fmt.Printf("Autosave:   disabled\n")
	}
	if cfg.Control.Enabled {
		fmt.Printf("Control:    http://%s\n", cfg.ControlAddr())
	} else {
		fmt.Printf("Control:    disabled\n")
	}
	if cfg.Metrics.Enabled {
		fmt.Printf("Metrics:    http://%s/metrics\n", cfg.MetricsAddr())
	} else {
		fmt.Printf("Metrics:    disabled\n")
	}
	fmt.Printf("AI model:   %s\n", cfg.AI.Model)
	fmt.Println()

	ok := true

	if cfg.User == "" {
		yellow.Println("No username configured")
		fmt.Println("            → Set --user, the user config key, or WATTWISE_USER")
		ok = false
	} else {
		green.Printf("Username:   %s\n", cfg.User)
	}

	// Probe the data directory for writability
	probe := filepath.Join(cfg.DataDir, ".wattwise-check")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		red.Println("Data directory is not writable")
		fmt.Printf("            → %v\n", err)
		ok = false
	} else {
		os.Remove(probe)
		green.Println("Data directory is writable")

		store, err := textfile.New(cfg.DataDir, quietLogger())
		if err == nil {
			if users, err := store.ListUsers(context.Background()); err == nil {
				fmt.Printf("            → %d user ledger(s) found\n", len(users))
			}
		}
	}

	if _, err := time.ParseDuration(cfg.Tracker.TickInterval); err != nil {
		yellow.Printf("Tick interval %q is invalid, 1s will be used\n", cfg.Tracker.TickInterval)
	}
	if cfg.Tracker.AutosaveInterval != "" {
		if _, err := time.ParseDuration(cfg.Tracker.AutosaveInterval); err != nil {
			yellow.Printf("Autosave interval %q is invalid, autosave stays off\n", cfg.Tracker.AutosaveInterval)
		}
	}

	if cfg.AI.APIKey == "" {
		yellow.Println("AI recommendations disabled (no API key)")
		fmt.Println("            → Set GOOGLE_API_KEY or run: wattwise auth set-key")
	} else {
		green.Println("AI recommendations enabled")
	}

	fmt.Println()
	if ok {
		green.Println("Ready to run")
	} else {
		yellow.Println("Fix the items above before running the tracker")
	}
	fmt.Println()
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	return nil
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
