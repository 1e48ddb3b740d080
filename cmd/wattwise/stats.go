package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/stats"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/storage/textfile"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/tracker"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the daily usage table for the last 7 days",
	Long: `Replay the usage ledger into a per-device, per-day table of consumed
units. The Today column reports each device's lifetime total so it always
matches the live tracker view.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := quietLogger()

	username, err := requireUser(cfg)
	if err != nil {
		return err
	}

	store, err := textfile.New(cfg.DataDir, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	tr := tracker.New(username, store, tracker.RealClock{}, logger)

	snap, err := store.ReadUser(context.Background(), username)
	if err != nil {
		return fmt.Errorf("failed to read usage log: %w", err)
	}

	table := stats.Daily(snap.Events, tr.Snapshot(), time.Now())
	if table.Empty() {
		fmt.Println("No usage data to display. Add devices and use them.")
		return nil
	}

	printStatsTable(username, table)
	return nil
}

func printStatsTable(username string, table stats.Table) {
	color.New(color.Bold).Printf("Daily usage for %s (units)\n", username)
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "Device\t%s\t\n", strings.Join(table.Headers, "\t"))
	for _, row := range table.Rows {
		cells := make([]string, len(row.Cells))
		for i, units := range row.Cells {
			cells[i] = fmt.Sprintf("%.3f", units)
		}
		fmt.Fprintf(w, "%s\t%s\t\n", row.Device, strings.Join(cells, "\t"))
	}
	w.Flush()
}
