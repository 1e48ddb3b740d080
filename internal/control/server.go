// Package control exposes the HTTP API a running tracker is driven
// through: device operations, saves, stats, the leaderboard and the AI
// advisory task.
package control

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/advisor"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/leaderboard"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/storage"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/tracker"
)

// Config holds control server configuration.
type Config struct {
	ListenAddr string
}

// Server is the control HTTP server. It owns no state of its own; every
// handler delegates to the tracker and its services.
type Server struct {
	config   Config
	tracker  *tracker.Tracker
	store    storage.Store
	board    *leaderboard.Board
	advice   *advisor.Service
	clock    tracker.Clock
	server   *http.Server
	router   *mux.Router
	listener net.Listener
	logger   zerolog.Logger
}

// NewServer creates the control server.
func NewServer(cfg Config, tr *tracker.Tracker, store storage.Store, board *leaderboard.Board, advice *advisor.Service, clock tracker.Clock, logger zerolog.Logger) *Server {
	router := mux.NewRouter()

	s := &Server{
		config:  cfg,
		tracker: tr,
		store:   store,
		board:   board,
		advice:  advice,
		clock:   clock,
		router:  router,
		logger:  logger.With().Str("component", "control").Logger(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/devices", s.handleListDevices).Methods("GET")
	api.HandleFunc("/devices", s.handleAddDevice).Methods("POST")
	api.HandleFunc("/devices/{name}", s.handleRemoveDevice).Methods("DELETE")
	api.HandleFunc("/devices/{name}/toggle", s.handleToggleDevice).Methods("POST")
	api.HandleFunc("/save", s.handleSave).Methods("POST")
	api.HandleFunc("/stats/daily", s.handleDailyStats).Methods("GET")
	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods("GET")
	api.HandleFunc("/recommendations", s.handleStartRecommendations).Methods("POST")
	api.HandleFunc("/recommendations/{id}", s.handleGetRecommendations).Methods("GET")
	api.HandleFunc("/recommendations/{id}", s.handleCancelRecommendations).Methods("DELETE")
}

// Handler returns the configured router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetListener overrides the listener, for systemd socket activation.
func (s *Server) SetListener(l net.Listener) {
	s.listener = l
}

// Start starts the control server.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.config.ListenAddr).Msg("Starting control server")

	go func() {
		var err error
		if s.listener != nil {
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Control server error")
		}
	}()

	return nil
}

// Stop gracefully stops the control server.
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping control server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("control server shutdown: %w", err)
	}

	return nil
}

// loggingMiddleware logs each request at debug level.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"user":   s.tracker.Username(),
	})
}
