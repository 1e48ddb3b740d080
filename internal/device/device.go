package device

import "time"

// WattSecondsPerUnit converts accumulated watt-seconds into energy units.
// One unit is one kilowatt-hour: 1000 W sustained for 3600 s.
const WattSecondsPerUnit = 1000 * 3600

// Units converts a power draw in watts sustained for the given number of
// seconds into energy units.
func Units(powerWatts, seconds float64) float64 {
	return powerWatts * seconds / WattSecondsPerUnit
}

// Device is one tracked appliance in a user's ledger.
type Device struct {
	Name           string
	Power          float64   // rated draw in watts, always > 0
	On             bool
	SessionSeconds float64   // on-time not yet folded into SavedUnits
	SavedUnits     float64   // energy units already persisted
	OnSince        time.Time // set exactly when On
}

// New creates a device that is off with no accumulated usage.
func New(name string, powerWatts float64) *Device {
	return &Device{
		Name:  name,
		Power: powerWatts,
	}
}

// Toggle flips the device state at the given instant. Turning off folds the
// elapsed on-time into SessionSeconds. There is no idempotence guard: callers
// that must not repeat a flip check On first.
func (d *Device) Toggle(now time.Time) {
	if d.On {
		d.SessionSeconds += now.Sub(d.OnSince).Seconds()
		d.On = false
		d.OnSince = time.Time{}
		return
	}
	d.On = true
	d.OnSince = now
}

// Refresh folds the elapsed on-time into SessionSeconds and re-arms OnSince,
// so reads between toggles see current usage. The device stays on; off
// devices are untouched.
func (d *Device) Refresh(now time.Time) {
	if !d.On {
		return
	}
	d.SessionSeconds += now.Sub(d.OnSince).Seconds()
	d.OnSince = now
}

// SessionUnits returns the energy of the not-yet-consolidated session.
func (d *Device) SessionUnits() float64 {
	return Units(d.Power, d.SessionSeconds)
}

// TotalUnits returns persisted plus in-session energy.
func (d *Device) TotalUnits() float64 {
	return d.SavedUnits + d.SessionUnits()
}

// Consolidate refreshes the device, folds the session energy into SavedUnits
// and empties the session. It runs before every persist so an interrupted run
// never double-counts a session.
func (d *Device) Consolidate(now time.Time) {
	d.Refresh(now)
	d.SavedUnits += d.SessionUnits()
	d.SessionSeconds = 0
}
