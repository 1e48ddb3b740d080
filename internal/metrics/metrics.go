package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Ledger metrics
	Devices = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wattwise_devices",
			Help: "Number of devices in the active user's ledger",
		},
	)

	DevicesOn = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wattwise_devices_on",
			Help: "Number of devices currently switched on",
		},
	)

	UsageUnitsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wattwise_usage_units_total",
			Help: "Live total energy units (saved plus in-session) for the active user",
		},
	)

	// Persistence metrics
	EventsAppended = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wattwise_events_appended_total",
			Help: "Toggle events appended to the user ledger",
		},
		[]string{"status"},
	)

	StoreWriteErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wattwise_store_write_errors_total",
			Help: "Ledger writes and appends that failed",
		},
	)

	// Advisory metrics
	AdviceRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wattwise_advice_requests_total",
			Help: "AI recommendation requests by outcome",
		},
		[]string{"outcome"},
	)

	// Leaderboard metrics
	LeaderboardRank = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wattwise_leaderboard_rank",
			Help: "Active user's rank on the savings leaderboard (1 is best)",
		},
	)

	LeaderboardCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wattwise_leaderboard_cache_hits_total",
			Help: "Per-user total lookups served from the cache",
		},
	)

	LeaderboardCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wattwise_leaderboard_cache_misses_total",
			Help: "Per-user total lookups that re-read the ledger file",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		Devices,
		DevicesOn,
		UsageUnitsTotal,
		EventsAppended,
		StoreWriteErrors,
		AdviceRequests,
		LeaderboardRank,
		LeaderboardCacheHits,
		LeaderboardCacheMisses,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			// Use systemd socket-activated listener
			s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
			err = s.server.Serve(s.listener)
		} else {
			// Create and bind listener ourselves
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
