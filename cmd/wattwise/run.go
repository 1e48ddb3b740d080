package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/advisor"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/control"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/leaderboard"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/metrics"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/sched"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/storage/textfile"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/systemd"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/tracker"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the WattWise tracker daemon",
	Long: `Run the tracker with its usage tick, the local control API, and the
optional Prometheus metrics endpoint. State is saved on shutdown and on
SIGHUP.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	// The one fatal startup condition: a ledger needs an owner.
	username, err := requireUser(cfg)
	if err != nil {
		return err
	}

	logger.Info().
		Str("version", version).
		Str("user", username).
		Str("data_dir", cfg.DataDir).
		Msg("Starting WattWise")

	// Check for systemd socket activation
	sdListeners, err := systemd.GetListeners()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to get systemd listeners")
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	// Initialize storage
	store, err := textfile.New(cfg.DataDir, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	logger.Info().Str("data_dir", cfg.DataDir).Msg("Storage initialized")

	// Initialize the tracker; a missing or damaged ledger is not fatal,
	// the tracker starts from whatever it could load.
	tr := tracker.New(username, store, tracker.RealClock{}, logger)
	defer func() {
		if err := tr.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to save final state")
		}
	}()

	logger.Info().Int("devices", len(tr.Snapshot())).Msg("Tracker initialized")

	// Initialize the leaderboard with its ledger cache
	board, err := leaderboard.New(store, cfg.Tracker.LeaderboardCacheSize, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize leaderboard: %w", err)
	}

	watcher, err := leaderboard.NewWatcher(board, cfg.DataDir, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("Leaderboard file watcher unavailable, cached totals may lag")
		watcher = nil
	} else {
		watcher.Start()
	}

	// Initialize the AI recommendation service
	aiClient := advisor.NewClient(advisor.Config{
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		BaseURL: cfg.AI.BaseURL,
		Timeout: parseDuration(cfg.AI.Timeout, 30*time.Second),
	}, logger)
	if !aiClient.Configured() {
		logger.Info().Msg("AI recommendations disabled: no API key configured")
	}
	advice := advisor.NewService(aiClient, store, logger)

	// Start the usage tick
	scheduler := sched.New(tr, sched.Config{
		TickInterval:     parseDuration(cfg.Tracker.TickInterval, time.Second),
		AutosaveInterval: parseDuration(cfg.Tracker.AutosaveInterval, 0),
	}, logger)
	scheduler.Start()

	// Initialize the control API
	var controlServer *control.Server
	if cfg.Control.Enabled {
		controlServer = control.NewServer(
			control.Config{ListenAddr: cfg.ControlAddr()},
			tr,
			store,
			board,
			advice,
			tracker.RealClock{},
			logger,
		)

		// Use systemd socket-activated listener if available
		if sdListeners.Activated && sdListeners.Control != nil {
			controlServer.SetListener(sdListeners.Control)
		}

		if err := controlServer.Start(); err != nil {
			return fmt.Errorf("failed to start control API: %w", err)
		}

		logger.Info().Str("addr", cfg.ControlAddr()).Msg("Control API started")
	}

	// Initialize Metrics Server
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.MetricsAddr(), logger)

		// Use systemd socket-activated listener if available
		if sdListeners.Activated && sdListeners.Metrics != nil {
			metricsServer.SetListener(sdListeners.Metrics)
		}

		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}

		logger.Info().Str("addr", cfg.MetricsAddr()).Msg("Metrics server started")
	}

	logger.Info().Msg("WattWise startup complete")

	// Notify systemd that we're ready
	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd ready notification")
	}

	stopWatchdog := startWatchdog(logger)

	// Wait for signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan

		if sig == syscall.SIGHUP {
			logger.Info().Msg("SIGHUP received, saving state")
			if err := tr.Save(); err != nil {
				logger.Error().Err(err).Msg("Failed to save state")
			}
			continue
		}

		logger.Info().Msg("Shutdown signal received, gracefully stopping...")
		break
	}

	// Notify systemd that we're stopping
	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd stopping notification")
	}

	stopWatchdog()
	scheduler.Stop()

	if controlServer != nil {
		if err := controlServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping control API")
		}
	}

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping metrics server")
		}
	}

	if watcher != nil {
		watcher.Stop()
	}

	logger.Info().Msg("WattWise stopped")

	// The deferred tracker close writes the final consolidated state.
	return nil
}

// startWatchdog pings the systemd watchdog at half the configured interval.
// The returned function stops the pinger.
func startWatchdog(logger zerolog.Logger) func() {
	interval, err := systemd.WatchdogInterval()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read systemd watchdog configuration")
		return func() {}
	}
	if interval <= 0 {
		return func() {}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)

		ticker := time.NewTicker(interval / 2)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := systemd.NotifyWatchdog(); err != nil {
					logger.Warn().Err(err).Msg("Failed to ping systemd watchdog")
				}
			}
		}
	}()

	logger.Info().Dur("interval", interval).Msg("Systemd watchdog enabled")
	return func() {
		close(stop)
		<-done
	}
}
