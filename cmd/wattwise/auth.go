package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the Gemini API key",
}

var authSetKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Store the Gemini API key in the config file",
	Long: `Prompt for the Gemini API key without echoing it and store it in the
configuration file. The file is written with 0600 permissions.`,
	Args: cobra.NoArgs,
	RunE: runAuthSetKey,
}

var authShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show AI configuration status",
	Args:  cobra.NoArgs,
	RunE:  runAuthShow,
}

func init() {
	authCmd.AddCommand(authSetKeyCmd)
	authCmd.AddCommand(authShowCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthSetKey(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine config location: %w", err)
		}
		dir := filepath.Join(home, ".config", "wattwise")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		path = filepath.Join(dir, "wattwise.yaml")
	}

	fmt.Print("Enter Gemini API key: ")
	key, err := readSecret()
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("no API key entered")
	}

	// Merge into the existing file rather than rewriting it from defaults.
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	v.Set("ai.api_key", key)
	v.SetConfigPermissions(0600)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("API key saved to %s\n", path)
	return nil
}

// readSecret reads a line without echo when stdin is a terminal.
func readSecret() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		return string(b), err
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runAuthShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Report presence only; the key itself is never printed.
	if cfg.AI.APIKey != "" {
		fmt.Println("API key:  configured")
	} else {
		fmt.Println("API key:  not set")
	}
	fmt.Printf("Model:    %s\n", cfg.AI.Model)
	fmt.Printf("Base URL: %s\n", cfg.AI.BaseURL)
	fmt.Printf("Timeout:  %s\n", cfg.AI.Timeout)
	return nil
}
