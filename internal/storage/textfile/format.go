package textfile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/storage"
)

const (
	// SummaryHeader opens the device summary block of a user ledger.
	SummaryHeader = "## DEVICES ##"
	// LogHeader opens the append-only toggle log block.
	LogHeader = "## LOGS ##"

	// TimeLayout is the fixed-width local timestamp used in log lines.
	TimeLayout = "2006-01-02 15:04:05"
)

// formatFloat renders floats in their shortest decimal form, so values
// round-trip through the parser without drift.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatSummaryLine renders one device record, e.g. `Heater (1500W) | 0.42`.
func FormatSummaryLine(rec storage.DeviceRecord) string {
	return fmt.Sprintf("%s (%sW) | %s", rec.Name, formatFloat(rec.PowerWatts), formatFloat(rec.SavedUnits))
}

// ParseSummaryLine parses one summary line back into a device record.
// The line splits on " | " into exactly two fields; the device name is the
// text before the first " (" and the power is the text before "W)".
func ParseSummaryLine(line string) (storage.DeviceRecord, error) {
	fields := strings.Split(line, " | ")
	if len(fields) != 2 {
		return storage.DeviceRecord{}, fmt.Errorf("summary line %q: expected 2 fields, got %d", line, len(fields))
	}

	parts := strings.Split(fields[0], " (")
	if len(parts) != 2 {
		return storage.DeviceRecord{}, fmt.Errorf("summary line %q: malformed device field", line)
	}

	powerStr, _, _ := strings.Cut(parts[1], "W)")
	power, err := strconv.ParseFloat(strings.TrimSpace(powerStr), 64)
	if err != nil {
		return storage.DeviceRecord{}, fmt.Errorf("summary line %q: bad power: %w", line, err)
	}

	saved, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return storage.DeviceRecord{}, fmt.Errorf("summary line %q: bad saved units: %w", line, err)
	}

	return storage.DeviceRecord{
		Name:       strings.TrimSpace(parts[0]),
		PowerWatts: power,
		SavedUnits: saved,
	}, nil
}

// FormatEvent renders one log line, e.g. `[2025-03-10 22:15:03] Heater turned ON`.
// Removal events carry a trailing `(Removed)` marker; their status still
// parses as OFF.
func FormatEvent(e storage.Event) string {
	line := fmt.Sprintf("[%s] %s turned %s", e.Timestamp.Format(TimeLayout), e.Device, e.Status)
	if e.Removed {
		line += " (Removed)"
	}
	return line
}

// ParseEventLine parses one log line. The timestamp occupies bytes 1..19,
// the device and status split on " turned ", and the status is the first
// space-delimited token after the separator.
func ParseEventLine(line string) (storage.Event, error) {
	if len(line) < 22 || line[0] != '[' || line[20] != ']' {
		return storage.Event{}, fmt.Errorf("log line %q: missing timestamp frame", line)
	}

	ts, err := time.ParseInLocation(TimeLayout, line[1:20], time.Local)
	if err != nil {
		return storage.Event{}, fmt.Errorf("log line %q: bad timestamp: %w", line, err)
	}

	device, statusPart, found := strings.Cut(line[22:], " turned ")
	if !found {
		return storage.Event{}, fmt.Errorf("log line %q: missing status separator", line)
	}

	tokens := strings.Fields(statusPart)
	if len(tokens) == 0 {
		return storage.Event{}, fmt.Errorf("log line %q: empty status", line)
	}

	return storage.Event{
		Timestamp: ts,
		Device:    strings.TrimSpace(device),
		Status:    storage.Status(tokens[0]),
		Removed:   strings.Contains(statusPart, "(Removed)"),
	}, nil
}

// splitLogBlock splits a ledger's raw text at the log header. head is
// everything before the header line and block everything after it, verbatim.
func splitLogBlock(text string) (head, block string, found bool) {
	offset := 0
	for offset < len(text) {
		lineEnd := strings.IndexByte(text[offset:], '\n')
		var line string
		var next int
		if lineEnd < 0 {
			line = text[offset:]
			next = len(text)
		} else {
			line = text[offset : offset+lineEnd]
			next = offset + lineEnd + 1
		}
		if strings.TrimSpace(line) == LogHeader {
			return text[:offset], text[next:], true
		}
		offset = next
	}
	return text, "", false
}
