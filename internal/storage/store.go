package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store persists per-user device ledgers. Every user owns one ledger made of
// a rewritable device summary and an append-only toggle log.
type Store interface {
	// ReadUser loads the named user's ledger. A missing ledger yields an
	// empty snapshot, not an error.
	ReadUser(ctx context.Context, username string) (*UserSnapshot, error)

	// WriteSummary rewrites the user's summary block from the given records,
	// carrying the existing log block over unchanged.
	WriteSummary(ctx context.Context, username string, records []DeviceRecord) error

	// AppendEvent appends one toggle event to the user's log block.
	AppendEvent(ctx context.Context, username string, event Event) error

	// ReadRaw returns the user's ledger verbatim. Returns ErrNotFound when
	// the user has no ledger yet.
	ReadRaw(ctx context.Context, username string) (string, error)

	// ListUsers enumerates every user with a ledger, in lexical order.
	ListUsers(ctx context.Context) ([]UserFile, error)
}
