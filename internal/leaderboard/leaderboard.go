package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/metrics"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/storage"
)

// Entry is one leaderboard row. Lower totals rank higher.
type Entry struct {
	Rank       int     `json:"rank"`
	Username   string  `json:"username"`
	TotalUnits float64 `json:"total_units"`
	Active     bool    `json:"active"`
}

// cachedTotal is a parsed per-user total, valid while the backing file
// keeps its modification time and size.
type cachedTotal struct {
	modTime time.Time
	size    int64
	units   float64
}

// Board ranks every user ledger in the data directory by total saved
// units, ascending. Totals come from the summary block only, so they
// reflect each user's last saved state; the active user's entry is
// replaced with their live total.
type Board struct {
	store  storage.Store
	cache  *lru.Cache[string, cachedTotal]
	logger zerolog.Logger
	mu     sync.RWMutex
}

// New creates a leaderboard over the given store.
func New(store storage.Store, cacheSize int, logger zerolog.Logger) (*Board, error) {
	cache, err := lru.New[string, cachedTotal](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create leaderboard cache: %w", err)
	}

	return &Board{
		store:  store,
		cache:  cache,
		logger: logger.With().Str("component", "leaderboard").Logger(),
	}, nil
}

// Compute builds the ranked board. activeUser's row, if their ledger
// exists, carries liveUnits instead of the saved total. Ties keep the
// store's listing order, so equal totals rank alphabetically. Ledgers
// that cannot be read are skipped with a warning.
func (b *Board) Compute(ctx context.Context, activeUser string, liveUnits float64) ([]Entry, error) {
	files, err := b.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list user ledgers: %w", err)
	}

	entries := make([]Entry, 0, len(files))
	for _, file := range files {
		if file.Username == activeUser {
			entries = append(entries, Entry{Username: file.Username, TotalUnits: liveUnits, Active: true})
			continue
		}

		units, err := b.savedTotal(ctx, file)
		if err != nil {
			b.logger.Warn().Err(err).Str("user", file.Username).Msg("Skipping unreadable user ledger")
			continue
		}
		entries = append(entries, Entry{Username: file.Username, TotalUnits: units})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalUnits < entries[j].TotalUnits
	})

	for i := range entries {
		entries[i].Rank = i + 1
		if entries[i].Active {
			metrics.LeaderboardRank.Set(float64(entries[i].Rank))
		}
	}

	return entries, nil
}

// savedTotal sums the saved units in one user's summary block, served
// from the cache while the file is unchanged on disk.
func (b *Board) savedTotal(ctx context.Context, file storage.UserFile) (float64, error) {
	b.mu.RLock()
	if c, ok := b.cache.Get(file.Path); ok && c.modTime.Equal(file.ModTime) && c.size == file.Size {
		b.mu.RUnlock()
		metrics.LeaderboardCacheHits.Inc()
		b.logger.Debug().Str("user", file.Username).Msg("Leaderboard cache hit")
		return c.units, nil
	}
	b.mu.RUnlock()

	metrics.LeaderboardCacheMisses.Inc()

	snap, err := b.store.ReadUser(ctx, file.Username)
	if err != nil {
		return 0, err
	}

	var units float64
	for _, rec := range snap.Devices {
		units += rec.SavedUnits
	}

	b.mu.Lock()
	b.cache.Add(file.Path, cachedTotal{modTime: file.ModTime, size: file.Size, units: units})
	b.mu.Unlock()

	return units, nil
}

// Invalidate drops the cached total for one ledger path.
func (b *Board) Invalidate(path string) {
	b.mu.Lock()
	b.cache.Remove(path)
	b.mu.Unlock()
}
