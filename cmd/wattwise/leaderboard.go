package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/leaderboard"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/storage/textfile"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/tracker"
	"github.com/spf13/cobra"
)

var leaderboardCmd = &cobra.Command{
	Use:     "leaderboard",
	Aliases: []string{"lb"},
	Short:   "Show the energy-saving leaderboard",
	Long: `Rank every user ledger in the data directory by total consumed units,
lowest first. The active user's total is taken live from the tracker.`,
	RunE: runLeaderboard,
}

func init() {
	rootCmd.AddCommand(leaderboardCmd)
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
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

	board, err := leaderboard.New(store, cfg.Tracker.LeaderboardCacheSize, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize leaderboard: %w", err)
	}

	entries, err := board.Compute(context.Background(), username, tr.TotalUnits())
	if err != nil {
		return fmt.Errorf("failed to compute leaderboard: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No users found for leaderboard. Create more user data files.")
		return nil
	}

	printLeaderboard(entries)
	return nil
}

func printLeaderboard(entries []leaderboard.Entry) {
	color.New(color.Bold).Println("Energy Saving Leaderboard (lowest usage wins)")
	fmt.Println()

	you := color.New(color.FgGreen, color.Bold)

	fmt.Printf("%-6s %-24s %12s\n", "Rank", "User", "Units")
	for _, e := range entries {
		rank := strconv.Itoa(e.Rank)
		if e.Rank == 1 {
			rank = "🥇"
		}

		name := e.Username
		if e.Active {
			name += " (You)"
		}

		line := fmt.Sprintf("%-6s %-24s %12.3f", rank, name, e.TotalUnits)
		if e.Active {
			you.Println(line)
		} else {
			fmt.Println(line)
		}
	}
}
