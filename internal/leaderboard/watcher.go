package leaderboard

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/storage/textfile"
)

// Watcher drops cached totals when ledger files change on disk, so the
// board notices other users saving without waiting for a stale mtime
// check.
type Watcher struct {
	board    *Board
	dataDir  string
	notify   *fsnotify.Watcher
	logger   zerolog.Logger
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewWatcher creates a watcher over the data directory.
func NewWatcher(board *Board, dataDir string, logger zerolog.Logger) (*Watcher, error) {
	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := notify.Add(dataDir); err != nil {
		notify.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dataDir, err)
	}

	return &Watcher{
		board:    board,
		dataDir:  dataDir,
		notify:   notify,
		logger:   logger.With().Str("component", "leaderboard-watcher").Logger(),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}, nil
}

// Start begins watching the data directory.
func (w *Watcher) Start() {
	go w.run()
	w.logger.Info().Str("dir", w.dataDir).Msg("Leaderboard file watcher started")
}

// Stop stops the watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	close(w.stopChan)
	w.notify.Close()
	<-w.doneChan
	w.logger.Info().Msg("Leaderboard file watcher stopped")
}

func (w *Watcher) run() {
	defer close(w.doneChan)

	for {
		select {
		case <-w.stopChan:
			return

		case event, ok := <-w.notify.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, textfile.FileSuffix) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.logger.Debug().
					Str("file", event.Name).
					Str("op", event.Op.String()).
					Msg("Ledger changed, dropping cached total")
				w.board.Invalidate(event.Name)
			}

		case err, ok := <-w.notify.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("File watcher error")
		}
	}
}
