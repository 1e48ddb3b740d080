// Package sched owns the periodic work of a running tracker: the usage
// tick that rolls live sessions forward and, when enabled, a periodic
// autosave.
package sched

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Target is the tracker surface the scheduler drives.
type Target interface {
	RefreshAll()
	Save() error
}

// Config holds scheduler configuration.
type Config struct {
	// TickInterval is the cadence of the usage tick.
	TickInterval time.Duration
	// AutosaveInterval enables periodic saves when positive. Saving
	// consolidates sessions, so it is safe at any cadence.
	AutosaveInterval time.Duration
}

// Scheduler runs the tick loop in a single goroutine.
type Scheduler struct {
	target   Target
	config   Config
	logger   zerolog.Logger
	kickChan chan struct{}
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

// New creates a scheduler. A non-positive tick interval falls back to one
// second.
func New(target Target, cfg Config, logger zerolog.Logger) *Scheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}

	return &Scheduler{
		target:   target,
		config:   cfg,
		logger:   logger.With().Str("component", "sched").Logger(),
		kickChan: make(chan struct{}, 1),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start() {
	go s.run()
	s.logger.Info().
		Dur("tick", s.config.TickInterval).
		Bool("autosave", s.config.AutosaveInterval > 0).
		Msg("Scheduler started")
}

// Kick requests an immediate refresh outside the tick cadence. A kick
// while one is already pending is dropped.
func (s *Scheduler) Kick() {
	select {
	case s.kickChan <- struct{}{}:
	default:
	}
}

// Stop halts the loop and waits for it to exit. Safe to call more than
// once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	<-s.doneChan
}

func (s *Scheduler) run() {
	defer close(s.doneChan)

	tick := time.NewTicker(s.config.TickInterval)
	defer tick.Stop()

	var autosave <-chan time.Time
	if s.config.AutosaveInterval > 0 {
		t := time.NewTicker(s.config.AutosaveInterval)
		defer t.Stop()
		autosave = t.C
	}

	for {
		select {
		case <-s.stopChan:
			return

		case <-tick.C:
			s.target.RefreshAll()

		case <-s.kickChan:
			s.target.RefreshAll()

		case <-autosave:
			if err := s.target.Save(); err != nil {
				s.logger.Error().Err(err).Msg("Autosave failed")
			} else {
				s.logger.Debug().Msg("Autosave complete")
			}
		}
	}
}
