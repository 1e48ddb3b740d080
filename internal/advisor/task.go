package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/metrics"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/storage"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/tracker"
)

// Status of the advice task.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusDone     Status = "done"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
)

var (
	// ErrBusy means a request is already in flight.
	ErrBusy = errors.New("advisor: request already running")

	// ErrNoUsageData means the user's ledger is missing or blank.
	ErrNoUsageData = errors.New("advisor: no usage data")
)

// Result is the outcome of one advice request.
type Result struct {
	Text string
	Err  error
}

// Snapshot describes the latest advice task.
type Snapshot struct {
	ID     string
	Status Status
	Text   string
	Err    error
}

// Service runs at most one advice request at a time. A run is detached
// from the caller's context, so an HTTP handler can accept work and
// return; callers either wait on the returned channel or poll State.
type Service struct {
	client *Client
	store  storage.Store
	logger zerolog.Logger

	mu     sync.Mutex
	id     string
	status Status
	text   string
	err    error
	cancel context.CancelFunc
}

// NewService creates the advice task service.
func NewService(client *Client, store storage.Store, logger zerolog.Logger) *Service {
	return &Service{
		client: client,
		store:  store,
		logger: logger.With().Str("component", "advisor-task").Logger(),
		status: StatusIdle,
	}
}

// Request starts an advice run for the user and returns its task ID. It
// fails fast with ErrNoCredential when no key is set, ErrNoUsageData when
// the ledger is missing or blank, and ErrBusy when a run is already in
// flight. The returned channel delivers exactly one Result and is then
// closed.
func (s *Service) Request(ctx context.Context, username string, devices []tracker.DeviceState) (string, <-chan Result, error) {
	if !s.client.Configured() {
		metrics.AdviceRequests.WithLabelValues("rejected").Inc()
		return "", nil, ErrNoCredential
	}

	raw, err := s.store.ReadRaw(ctx, username)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		metrics.AdviceRequests.WithLabelValues("rejected").Inc()
		return "", nil, ErrNoUsageData
	}

	prompt := BuildPrompt(raw, devices)

	s.mu.Lock()
	if s.status == StatusRunning {
		s.mu.Unlock()
		metrics.AdviceRequests.WithLabelValues("busy").Inc()
		return "", nil, ErrBusy
	}
	// Detached from the request context: the caller may return before
	// the model answers.
	runCtx, cancel := context.WithCancel(context.Background())
	s.id = generateID("adv")
	s.status = StatusRunning
	s.text = ""
	s.err = nil
	s.cancel = cancel
	id := s.id
	s.mu.Unlock()

	ch := make(chan Result, 1)
	go s.run(runCtx, cancel, prompt, ch)
	return id, ch, nil
}

// generateID generates a task ID with a prefix.
func generateID(prefix string) string {
	return prefix + "-" + time.Now().Format("20060102150405")
}

func (s *Service) run(ctx context.Context, cancel context.CancelFunc, prompt string, ch chan<- Result) {
	defer cancel()

	text, err := s.client.Generate(ctx, prompt)

	s.mu.Lock()
	s.text = text
	s.err = err
	s.cancel = nil
	switch {
	case err == nil:
		s.status = StatusDone
	case errors.Is(err, context.Canceled):
		s.status = StatusCanceled
	default:
		s.status = StatusFailed
	}
	status := s.status
	s.mu.Unlock()

	switch status {
	case StatusDone:
		metrics.AdviceRequests.WithLabelValues("ok").Inc()
		s.logger.Info().Int("reply_bytes", len(text)).Msg("Recommendations ready")
	case StatusCanceled:
		metrics.AdviceRequests.WithLabelValues("canceled").Inc()
		s.logger.Info().Msg("Recommendation request canceled")
	default:
		metrics.AdviceRequests.WithLabelValues("error").Inc()
		s.logger.Error().Err(err).Msg("Recommendation request failed")
	}

	ch <- Result{Text: text, Err: err}
	close(ch)
}

// Cancel stops the in-flight request, if any, and reports whether one was
// running. A non-empty id must match the running task's ID.
func (s *Service) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusRunning || s.cancel == nil {
		return false
	}
	if id != "" && id != s.id {
		return false
	}
	s.cancel()
	return true
}

// State returns the latest task's ID, status and result.
func (s *Service) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{ID: s.id, Status: s.status, Text: s.text, Err: s.err}
}
