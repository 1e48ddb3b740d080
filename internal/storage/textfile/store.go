package textfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/storage"
	"github.com/rs/zerolog"
)

// FileSuffix is appended to a username to form the ledger filename.
const FileSuffix = "_data.txt"

// Store keeps one plain-text ledger file per user inside a shared data
// directory. All users of a machine point at the same directory; that is
// what the leaderboard scans.
//
// Files are rewritten in place, not via an atomic rename, so a crash in the
// middle of a rewrite can truncate the ledger. Concurrent processes writing
// the same user's file are not coordinated either; only accesses within this
// process are serialized.
type Store struct {
	dataDir string
	logger  zerolog.Logger
	mu      sync.Mutex
}

// New creates a text-file store rooted at dataDir, creating the directory if
// needed.
func New(dataDir string, logger zerolog.Logger) (*Store, error) {
	if err := storage.EnsureDir(dataDir); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{
		dataDir: dataDir,
		logger:  logger.With().Str("component", "textfile-store").Logger(),
	}, nil
}

// Path returns the ledger path for a username.
func (s *Store) Path(username string) string {
	return filepath.Join(s.dataDir, username+FileSuffix)
}

// ReadUser implements storage.Store.
func (s *Store) ReadUser(_ context.Context, username string) (*storage.UserSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readUserLocked(username)
}

func (s *Store) readUserLocked(username string) (*storage.UserSnapshot, error) {
	snap := &storage.UserSnapshot{Username: username}

	data, err := os.ReadFile(s.Path(username))
	if errors.Is(err, os.ErrNotExist) {
		return snap, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read user ledger: %w", err)
	}

	head, block, _ := splitLogBlock(string(data))
	snap.LogBlock = block

	inDevices := false
	for _, line := range strings.Split(head, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if trimmed == SummaryHeader {
			inDevices = true
			continue
		}
		if !inDevices {
			continue
		}
		rec, err := ParseSummaryLine(trimmed)
		if err != nil {
			s.logger.Warn().Str("user", username).Str("line", trimmed).Err(err).Msg("Skipping malformed summary line")
			continue
		}
		snap.Devices = append(snap.Devices, rec)
	}

	for _, line := range strings.Split(block, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		event, err := ParseEventLine(line)
		if err != nil {
			s.logger.Debug().Str("user", username).Str("line", line).Err(err).Msg("Skipping malformed log line")
			continue
		}
		snap.Events = append(snap.Events, event)
	}

	return snap, nil
}

// WriteSummary implements storage.Store. The ledger is re-read first so the
// log block, including events appended since the last read, survives the
// rewrite byte for byte.
func (s *Store) WriteSummary(_ context.Context, username string, records []storage.DeviceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.readUserLocked(username)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString(SummaryHeader + "\n")
	for _, rec := range records {
		b.WriteString(FormatSummaryLine(rec))
		b.WriteByte('\n')
	}
	b.WriteString("\n" + LogHeader + "\n")
	b.WriteString(snap.LogBlock)

	// In-place rewrite, not an atomic rename.
	if err := os.WriteFile(s.Path(username), []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write user ledger: %w", err)
	}

	s.logger.Debug().Str("user", username).Int("devices", len(records)).Msg("Summary written")
	return nil
}

// AppendEvent implements storage.Store. A missing ledger is seeded with the
// section layout first, so events written before the first summary rewrite
// land inside the log block and survive it.
func (s *Store) AppendEvent(_ context.Context, username string, event storage.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(username)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		seed := SummaryHeader + "\n\n" + LogHeader + "\n"
		if err := os.WriteFile(path, []byte(seed), 0644); err != nil {
			return fmt.Errorf("seed user ledger: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open user ledger: %w", err)
	}
	if _, err := f.WriteString(FormatEvent(event) + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("append event: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close user ledger: %w", err)
	}
	return nil
}

// ReadRaw implements storage.Store.
func (s *Store) ReadRaw(_ context.Context, username string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path(username))
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("user %s: %w", username, storage.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read user ledger: %w", err)
	}
	return string(data), nil
}

// ListUsers implements storage.Store. os.ReadDir sorts by filename, so the
// discovery order is lexical and stable.
func (s *Store) ListUsers(_ context.Context) ([]storage.UserFile, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("scan data dir: %w", err)
	}

	var users []storage.UserFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		username, ok := strings.CutSuffix(entry.Name(), FileSuffix)
		if !ok || username == "" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		users = append(users, storage.UserFile{
			Username: username,
			Path:     filepath.Join(s.dataDir, entry.Name()),
			ModTime:  info.ModTime(),
			Size:     info.Size(),
		})
	}
	return users, nil
}
