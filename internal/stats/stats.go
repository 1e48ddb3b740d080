package stats

import (
	"sort"
	"time"

	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/device"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/storage"
	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/tracker"
)

// dateLayout keys usage buckets by civil date in the event's own location.
const dateLayout = "2006-01-02"

// WindowDays is how many days the usage table covers, today included.
const WindowDays = 7

// Table is a 7-day usage breakdown. Days run oldest to newest, with the
// rightmost column always today. Rows are sorted by device name.
type Table struct {
	Days    []time.Time `json:"days"`
	Headers []string    `json:"headers"`
	Rows    []Row       `json:"rows"`
}

// Row holds one device's units per day, aligned with Table.Days.
type Row struct {
	Device string    `json:"device"`
	Cells  []float64 `json:"cells"`
}

// Empty reports whether there is nothing to show.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

type dayDevice struct {
	date   string
	device string
}

// Daily replays a user's toggle log into a per-day usage table.
//
// Events are processed in timestamp order. An ON opens a session for its
// device, overwriting any session already open; an OFF closes it and
// attributes the interval, split at local midnights; an OFF with no open
// session is ignored. Events for devices no longer in the ledger are
// skipped. Devices still on have their running session attributed up to
// now. The today column is then overwritten with each device's lifetime
// total, matching what the summary view reports.
func Daily(events []storage.Event, devices []tracker.DeviceState, now time.Time) Table {
	power := make(map[string]float64, len(devices))
	totals := make(map[string]float64, len(devices))
	for _, d := range devices {
		power[d.Name] = d.PowerWatts
		totals[d.Name] = d.TotalUnits
	}

	usageSeconds := make(map[dayDevice]float64)

	ordered := make([]storage.Event, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	open := make(map[string]time.Time)
	for _, e := range ordered {
		if _, known := power[e.Device]; !known {
			continue
		}
		switch e.Status {
		case storage.StatusOn:
			open[e.Device] = e.Timestamp
		case storage.StatusOff:
			start, ok := open[e.Device]
			if !ok {
				continue
			}
			delete(open, e.Device)
			splitAcrossDays(usageSeconds, e.Device, start, e.Timestamp)
		}
	}

	for _, d := range devices {
		if d.On && !d.OnSince.IsZero() {
			splitAcrossDays(usageSeconds, d.Name, d.OnSince, now)
		}
	}

	names := make([]string, 0, len(devices))
	for _, d := range devices {
		names = append(names, d.Name)
	}
	sort.Strings(names)

	today := dateOf(now)
	days := make([]time.Time, 0, WindowDays)
	headers := make([]string, 0, WindowDays)
	for i := WindowDays - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		days = append(days, day)
		if i == 0 {
			headers = append(headers, "Today")
		} else {
			headers = append(headers, day.Format("Jan 02"))
		}
	}

	rows := make([]Row, 0, len(names))
	for _, name := range names {
		cells := make([]float64, len(days))
		for i, day := range days {
			seconds := usageSeconds[dayDevice{date: day.Format(dateLayout), device: name}]
			cells[i] = device.Units(power[name], seconds)
		}
		// The today cell reports the device's lifetime total rather than
		// today's replayed usage, so the table and the summary view agree.
		cells[len(cells)-1] = totals[name]
		rows = append(rows, Row{Device: name, Cells: cells})
	}

	return Table{Days: days, Headers: headers, Rows: rows}
}

// splitAcrossDays attributes the interval [start, end) to acc, split at
// local midnights. Day buckets are half-open, so a span crossing midnight
// divides exactly with no seconds lost at the boundary.
func splitAcrossDays(acc map[dayDevice]float64, name string, start, end time.Time) {
	if !start.Before(end) {
		return
	}
	for cur := dateOf(start); cur.Before(end); cur = cur.AddDate(0, 0, 1) {
		segStart := start
		if cur.After(segStart) {
			segStart = cur
		}
		segEnd := end
		if dayEnd := cur.AddDate(0, 0, 1); dayEnd.Before(segEnd) {
			segEnd = dayEnd
		}
		if d := segEnd.Sub(segStart).Seconds(); d > 0 {
			acc[dayDevice{date: cur.Format(dateLayout), device: name}] += d
		}
	}
}

// dateOf truncates t to local midnight of its day.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
