package storage

import "time"

// Status is the direction of a toggle event.
type Status string

const (
	StatusOn  Status = "ON"
	StatusOff Status = "OFF"
)

// DeviceRecord is one line of a user's summary block.
type DeviceRecord struct {
	Name       string  `json:"name"`
	PowerWatts float64 `json:"power_watts"`
	SavedUnits float64 `json:"saved_units"`
}

// Event is one parsed line of a user's toggle log.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Device    string    `json:"device"`
	Status    Status    `json:"status"`
	// Removed marks an OFF written when the device was deleted from the
	// ledger. The status still reads as OFF; the marker is informational.
	Removed bool `json:"-"`
}

// UserSnapshot is everything read from one user's ledger.
type UserSnapshot struct {
	Username string
	Devices  []DeviceRecord
	// LogBlock holds the raw bytes after the log header. Rewrites carry it
	// over verbatim.
	LogBlock string
	// Events are the parsed log lines; malformed lines are skipped.
	Events []Event
}

// UserFile identifies a discovered user ledger on disk.
type UserFile struct {
	Username string
	Path     string
	ModTime  time.Time
	Size     int64
}
