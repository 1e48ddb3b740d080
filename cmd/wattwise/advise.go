package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/advisor"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/markup"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/storage/textfile"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/tracker"
	"github.com/spf13/cobra"
)

var adviseCmd = &cobra.Command{
	Use:   "advise",
	Short: "Get AI energy-saving recommendations",
	Long: `Send the usage ledger and current device states to Gemini and print
its energy-saving recommendations. Requires an API key, set via
GOOGLE_API_KEY or "wattwise auth set-key".`,
	RunE: runAdvise,
}

func init() {
	rootCmd.AddCommand(adviseCmd)
}

func runAdvise(cmd *cobra.Command, args []string) error {
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

	client := advisor.NewClient(advisor.Config{
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		BaseURL: cfg.AI.BaseURL,
		Timeout: parseDuration(cfg.AI.Timeout, 30*time.Second),
	}, logger)
	service := advisor.NewService(client, store, logger)

	// Ctrl-C cancels the in-flight request instead of killing the process
	// mid-print.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	id, results, err := service.Request(ctx, username, tr.Snapshot())
	switch {
	case errors.Is(err, advisor.ErrNoCredential):
		renderMarkup("AI recommendations unavailable: **API Key not set**. Set the GOOGLE_API_KEY environment variable or run `wattwise auth set-key`.")
		return nil
	case errors.Is(err, advisor.ErrNoUsageData):
		fmt.Println("No usage data found. Please use the app (turn devices ON/OFF, save usage) to generate logs for AI analysis.")
		return nil
	case err != nil:
		return fmt.Errorf("failed to request recommendations: %w", err)
	}

	fmt.Printf("Fetching AI recommendations (model %s)...\n\n", client.Model())

	select {
	case res := <-results:
		if res.Err != nil {
			renderMarkup(fmt.Sprintf("**Error fetching AI recommendations:**\n_%s_\nEnsure your API Key is correct and you have internet access.", res.Err))
			return nil
		}
		renderMarkup(res.Text)

	case <-ctx.Done():
		service.Cancel(id)
		<-results
		fmt.Println()
		fmt.Println("Recommendation request canceled.")
	}

	return nil
}

// renderMarkup prints advisor text, translating its lightweight markup
// into terminal styles.
func renderMarkup(text string) {
	boldStyle := color.New(color.Bold)
	italicStyle := color.New(color.Italic)
	underlineStyle := color.New(color.Underline)

	for _, span := range markup.Parse(text) {
		switch span.Style {
		case markup.Bold:
			boldStyle.Print(span.Text)
		case markup.Italic:
			italicStyle.Print(span.Text)
		case markup.Underline:
			underlineStyle.Print(span.Text)
		default:
			fmt.Print(span.Text)
		}
	}
	fmt.Println()
}
