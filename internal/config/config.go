package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	User    string        `mapstructure:"user"`
	DataDir string        `mapstructure:"data_dir"`
	Logging LoggingConfig `mapstructure:"logging"`
	Tracker TrackerConfig `mapstructure:"tracker"`
	Control ControlConfig `mapstructure:"control"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	AI      AIConfig      `mapstructure:"ai"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TrackerConfig defines usage tracking settings
type TrackerConfig struct {
	TickInterval         string `mapstructure:"tick_interval"`
	AutosaveInterval     string `mapstructure:"autosave_interval"` // empty or "0" disables autosave
	LeaderboardCacheSize int    `mapstructure:"leaderboard_cache_size"`
}

// ControlConfig defines the local control API settings
type ControlConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BindAddress string `mapstructure:"bind_address"`
	Port        int    `mapstructure:"port"`
}

// MetricsConfig defines Prometheus metrics settings
type MetricsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BindAddress string `mapstructure:"bind_address"`
	Port        int    `mapstructure:"port"`
}

// AIConfig defines the recommendation service settings
type AIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
	Timeout string `mapstructure:"timeout"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("wattwise")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/wattwise")
		}
		v.AddConfigPath("/etc/wattwise")
	}
	v.SetEnvPrefix("WATTWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The Gemini key is conventionally exported as GOOGLE_API_KEY, so
	// accept that name alongside WATTWISE_AI_API_KEY.
	_ = v.BindEnv("ai.api_key", "WATTWISE_AI_API_KEY", "GOOGLE_API_KEY")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Data defaults
	v.SetDefault("user", "")
	v.SetDefault("data_dir", ".")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Tracker defaults
	v.SetDefault("tracker.tick_interval", "1s")
	v.SetDefault("tracker.autosave_interval", "0")
	v.SetDefault("tracker.leaderboard_cache_size", 128)

	// Control API defaults
	v.SetDefault("control.enabled", true)
	v.SetDefault("control.bind_address", "127.0.0.1")
	v.SetDefault("control.port", 7516)

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.bind_address", "127.0.0.1")
	v.SetDefault("metrics.port", 9090)

	// AI defaults
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "gemini-1.5-flash")
	v.SetDefault("ai.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("ai.timeout", "30s")
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.DataDir == "" {
		return fmt.Errorf("data directory is required")
	}

	if cfg.Control.Enabled {
		if cfg.Control.Port <= 0 || cfg.Control.Port > 65535 {
			return fmt.Errorf("invalid control port: %d", cfg.Control.Port)
		}
	}
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port <= 0 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("invalid metrics port: %d", cfg.Metrics.Port)
		}
	}

	switch cfg.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid logging format: %q", cfg.Logging.Format)
	}

	// Ensure the data directory exists
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	return nil
}

// ControlAddr returns the listen address for the control API.
func (c *Config) ControlAddr() string {
	return fmt.Sprintf("%s:%d", c.Control.BindAddress, c.Control.Port)
}

// MetricsAddr returns the listen address for the metrics endpoint.
func (c *Config) MetricsAddr() string {
	return fmt.Sprintf("%s:%d", c.Metrics.BindAddress, c.Metrics.Port)
}
