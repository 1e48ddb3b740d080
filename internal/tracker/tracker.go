package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/device"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/metrics"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/storage"
	"github.com/rs/zerolog"
)

var (
	// ErrUnknownDevice is returned when an operation names a device that is
	// not in the ledger.
	ErrUnknownDevice = errors.New("tracker: unknown device")

	// ErrDuplicateDevice is returned when adding a device whose name is taken.
	ErrDuplicateDevice = errors.New("tracker: device already exists")

	// ErrInvalidDevice is returned when device input fails validation.
	ErrInvalidDevice = errors.New("tracker: invalid device")
)

// DeviceState is a read-only copy of one device's live accounting.
type DeviceState struct {
	Name           string    `json:"name"`
	PowerWatts     float64   `json:"power_watts"`
	On             bool      `json:"on"`
	SessionSeconds float64   `json:"session_seconds"`
	SavedUnits     float64   `json:"saved_units"`
	TotalUnits     float64   `json:"total_units"`
	OnSince        time.Time `json:"on_since,omitempty"`
}

// Tracker owns one user's device ledger and its persistence. Devices keep
// their insertion order; the summary block is written in that order.
type Tracker struct {
	username string
	store    storage.Store
	clock    Clock
	devices  []*device.Device
	logger   zerolog.Logger
	mu       sync.RWMutex
}

// New creates a tracker for the named user and loads the saved ledger.
// All loaded devices start off with an empty session; a read failure is
// logged and the tracker starts empty.
func New(username string, store storage.Store, clock Clock, logger zerolog.Logger) *Tracker {
	t := &Tracker{
		username: username,
		store:    store,
		clock:    clock,
		logger:   logger.With().Str("component", "tracker").Str("user", username).Logger(),
	}

	snap, err := store.ReadUser(context.Background(), username)
	if err != nil {
		t.logger.Warn().Err(err).Msg("Could not load saved state, starting empty")
		return t
	}

	for _, rec := range snap.Devices {
		if existing := t.find(rec.Name); existing != nil {
			// Duplicate summary lines: the last one wins, keeping the
			// first occurrence's position.
			existing.Power = rec.PowerWatts
			existing.SavedUnits = rec.SavedUnits
			continue
		}
		d := device.New(rec.Name, rec.PowerWatts)
		d.SavedUnits = rec.SavedUnits
		t.devices = append(t.devices, d)
	}

	t.updateGaugesLocked()
	t.logger.Info().Int("devices", len(t.devices)).Msg("Loaded user state")
	return t
}

// Username returns the user this tracker accounts for.
func (t *Tracker) Username() string {
	return t.username
}

func (t *Tracker) find(name string) *device.Device {
	for _, d := range t.devices {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// AddDevice validates and adds a new device to the ledger. The ledger
// reaches disk on the next save; adding alone does not persist.
func (t *Tracker) AddDevice(name string, powerWatts float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidDevice)
	}
	if powerWatts <= 0 {
		return fmt.Errorf("%w: power must be greater than zero, got %g", ErrInvalidDevice, powerWatts)
	}
	if t.find(name) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateDevice, name)
	}

	t.devices = append(t.devices, device.New(name, powerWatts))
	t.updateGaugesLocked()

	t.logger.Info().Str("device", name).Float64("power_watts", powerWatts).Msg("Device added")
	return nil
}

// RemoveDevice drops a device from the ledger. A device that is on is
// toggled off first and a removal event is logged; the remaining ledger is
// consolidated and persisted.
func (t *Tracker) RemoveDevice(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	d := t.find(name)
	if d == nil {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, name)
	}

	now := t.clock.Now()
	if d.On {
		d.Toggle(now)
		t.appendEventLocked(storage.Event{
			Timestamp: now,
			Device:    name,
			Status:    storage.StatusOff,
			Removed:   true,
		})
	}

	for i, candidate := range t.devices {
		if candidate == d {
			t.devices = append(t.devices[:i], t.devices[i+1:]...)
			break
		}
	}
	t.updateGaugesLocked()

	t.logger.Info().Str("device", name).Msg("Device removed")
	return t.saveLocked(now)
}

// Toggle flips the named device and appends the toggle event. The flip is
// strict: a device is switched regardless of its current state. A failed
// event append is logged and swallowed; the in-memory flip stands.
func (t *Tracker) Toggle(name string) (DeviceState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	d := t.find(name)
	if d == nil {
		return DeviceState{}, fmt.Errorf("%w: %s", ErrUnknownDevice, name)
	}

	now := t.clock.Now()
	d.Toggle(now)

	status := storage.StatusOff
	if d.On {
		status = storage.StatusOn
	}
	t.appendEventLocked(storage.Event{Timestamp: now, Device: name, Status: status})
	t.updateGaugesLocked()

	t.logger.Info().Str("device", name).Bool("on", d.On).Msg("Device toggled")
	return stateOf(d), nil
}

// appendEventLocked writes one toggle event, logging instead of failing:
// a missing log line costs replay accuracy, not the live session.
func (t *Tracker) appendEventLocked(event storage.Event) {
	if err := t.store.AppendEvent(context.Background(), t.username, event); err != nil {
		metrics.StoreWriteErrors.Inc()
		t.logger.Error().Err(err).Str("device", event.Device).Msg("Failed to append toggle event")
		return
	}
	metrics.EventsAppended.WithLabelValues(string(event.Status)).Inc()
}

// RefreshAll rolls the elapsed on-time of every device into its session, so
// live totals are current. The scheduler calls this once a second.
func (t *Tracker) RefreshAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	for _, d := range t.devices {
		d.Refresh(now)
	}
	t.updateGaugesLocked()
}

// Consolidate folds every device's session into its saved units.
func (t *Tracker) Consolidate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	for _, d := range t.devices {
		d.Consolidate(now)
	}
}

// Save consolidates every session and rewrites the user's summary block.
// Every persist goes through here, so saved units on disk never contain a
// half-folded session.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveLocked(t.clock.Now())
}

func (t *Tracker) saveLocked(now time.Time) error {
	for _, d := range t.devices {
		d.Consolidate(now)
	}

	records := make([]storage.DeviceRecord, 0, len(t.devices))
	for _, d := range t.devices {
		records = append(records, storage.DeviceRecord{
			Name:       d.Name,
			PowerWatts: d.Power,
			SavedUnits: d.SavedUnits,
		})
	}

	if err := t.store.WriteSummary(context.Background(), t.username, records); err != nil {
		metrics.StoreWriteErrors.Inc()
		t.logger.Error().Err(err).Msg("Failed to write user summary")
		return fmt.Errorf("write summary: %w", err)
	}

	t.logger.Debug().Int("devices", len(records)).Msg("State saved")
	return nil
}

// Snapshot returns a copy of every device's live accounting, in ledger order.
func (t *Tracker) Snapshot() []DeviceState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	states := make([]DeviceState, 0, len(t.devices))
	for _, d := range t.devices {
		states = append(states, stateOf(d))
	}
	return states
}

// TotalUnits returns the live grand total across all devices.
func (t *Tracker) TotalUnits() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var total float64
	for _, d := range t.devices {
		total += d.TotalUnits()
	}
	return total
}

// Close persists the final state. It mirrors the on-exit save of the app:
// consolidate, then write.
func (t *Tracker) Close() error {
	err := t.Save()
	t.logger.Info().Msg("Tracker closed")
	return err
}

func stateOf(d *device.Device) DeviceState {
	return DeviceState{
		Name:           d.Name,
		PowerWatts:     d.Power,
		On:             d.On,
		SessionSeconds: d.SessionSeconds,
		SavedUnits:     d.SavedUnits,
		TotalUnits:     d.TotalUnits(),
		OnSince:        d.OnSince,
	}
}

// updateGaugesLocked refreshes the ledger gauges (must be called with the
// lock held).
func (t *Tracker) updateGaugesLocked() {
	var on int
	var total float64
	for _, d := range t.devices {
		if d.On {
			on++
		}
		total += d.TotalUnits()
	}
	metrics.Devices.Set(float64(len(t.devices)))
	metrics.DevicesOn.Set(float64(on))
	metrics.UsageUnitsTotal.Set(total)
}
