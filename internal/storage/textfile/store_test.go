package textfile

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/indie-priyanshu12/WattWise-An-Energy-Saving-App/internal/storage"
	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return store
}

func TestSummaryLineRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		rec  storage.DeviceRecord
	}{
		{"simple", storage.DeviceRecord{Name: "Heater", PowerWatts: 1500, SavedUnits: 0.42}},
		{"fractional power", storage.DeviceRecord{Name: "Desk Fan", PowerWatts: 60.5, SavedUnits: 0}},
		{"long fraction", storage.DeviceRecord{Name: "TV", PowerWatts: 120, SavedUnits: 0.8333333333333334}},
		{"zero saved", storage.DeviceRecord{Name: "Washing Machine", PowerWatts: 2000, SavedUnits: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := FormatSummaryLine(tt.rec)
			got, err := ParseSummaryLine(line)
			if err != nil {
				t.Fatalf("parse %q: %v", line, err)
			}
			if got != tt.rec {
				t.Fatalf("round trip mismatch: %+v -> %q -> %+v", tt.rec, line, got)
			}
		})
	}
}

func TestParseSummaryLineMalformed(t *testing.T) {
	lines := []string{
		"",
		"just some text",
		"Heater (1500W)",
		"Heater 1500W | 0.42",
		"Heater (ovenW) | 0.42",
		"Heater (1500W) | lots",
		"Heater (1500W) | 0.1 | 0.2",
	}

	for _, line := range lines {
		if _, err := ParseSummaryLine(line); err == nil {
			t.Errorf("ParseSummaryLine(%q) succeeded, want error", line)
		}
	}
}

func TestEventRoundTrip(t *testing.T) {
	ts := time.Date(2025, 3, 10, 22, 15, 3, 0, time.Local)

	event := storage.Event{Timestamp: ts, Device: "Heater", Status: storage.StatusOn}
	line := FormatEvent(event)
	if line != "[2025-03-10 22:15:03] Heater turned ON" {
		t.Fatalf("unexpected line: %q", line)
	}

	got, err := ParseEventLine(line)
	if err != nil {
		t.Fatalf("parse %q: %v", line, err)
	}
	if !got.Timestamp.Equal(ts) || got.Device != "Heater" || got.Status != storage.StatusOn {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestRemovalEventParsesAsOff(t *testing.T) {
	ts := time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local)

	line := FormatEvent(storage.Event{Timestamp: ts, Device: "Old Lamp", Status: storage.StatusOff, Removed: true})
	if !strings.HasSuffix(line, "Old Lamp turned OFF (Removed)") {
		t.Fatalf("unexpected removal line: %q", line)
	}

	got, err := ParseEventLine(line)
	if err != nil {
		t.Fatalf("parse %q: %v", line, err)
	}
	if got.Status != storage.StatusOff {
		t.Fatalf("status = %q, want OFF", got.Status)
	}
	if got.Device != "Old Lamp" {
		t.Fatalf("device = %q, want Old Lamp", got.Device)
	}
}

func TestParseEventLineMalformed(t *testing.T) {
	lines := []string{
		"",
		"Heater turned ON",
		"[not a timestamp here] Heater turned ON",
		"[2025-03-10 22:15:03] Heater switched ON",
		"[2025-03-10 22:15:03]",
	}

	for _, line := range lines {
		if _, err := ParseEventLine(line); err == nil {
			t.Errorf("ParseEventLine(%q) succeeded, want error", line)
		}
	}
}

func TestReadMissingUser(t *testing.T) {
	store := newTestStore(t)

	snap, err := store.ReadUser(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("read missing user: %v", err)
	}
	if len(snap.Devices) != 0 || len(snap.Events) != 0 || snap.LogBlock != "" {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestWriteSummaryRoundTrip(t *testing.T) {
	store := newTestStore(t)

	records := []storage.DeviceRecord{
		{Name: "Heater", PowerWatts: 1500, SavedUnits: 1.25},
		{Name: "Desk Fan", PowerWatts: 60.5, SavedUnits: 0.004},
	}

	if err := store.WriteSummary(context.Background(), "alice", records); err != nil {
		t.Fatalf("write summary: %v", err)
	}

	snap, err := store.ReadUser(context.Background(), "alice")
	if err != nil {
		t.Fatalf("read user: %v", err)
	}
	if len(snap.Devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(snap.Devices))
	}
	for i, rec := range records {
		if snap.Devices[i] != rec {
			t.Fatalf("device %d = %+v, want %+v", i, snap.Devices[i], rec)
		}
	}
}

func TestLogBlockPreservedAcrossRewrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.Local)
	events := []storage.Event{
		{Timestamp: base, Device: "Heater", Status: storage.StatusOn},
		{Timestamp: base.Add(time.Hour), Device: "Heater", Status: storage.StatusOff},
		{Timestamp: base.Add(2 * time.Hour), Device: "Old Lamp", Status: storage.StatusOff, Removed: true},
	}
	for _, event := range events {
		if err := store.AppendEvent(ctx, "alice", event); err != nil {
			t.Fatalf("append event: %v", err)
		}
	}

	// A line the event parser rejects must survive rewrites all the same.
	f, err := os.OpenFile(store.Path("alice"), os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	if _, err := f.WriteString("scribbles that are not an event\n"); err != nil {
		t.Fatalf("append garbage: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close ledger: %v", err)
	}

	raw, err := store.ReadRaw(ctx, "alice")
	if err != nil {
		t.Fatalf("read raw: %v", err)
	}
	_, blockBefore, found := splitLogBlock(raw)
	if !found {
		t.Fatal("log header missing after appends")
	}

	rewrites := [][]storage.DeviceRecord{
		{{Name: "Heater", PowerWatts: 1500, SavedUnits: 0.1}},
		{{Name: "Heater", PowerWatts: 1500, SavedUnits: 0.2}, {Name: "TV", PowerWatts: 120, SavedUnits: 0}},
		nil,
	}
	for i, records := range rewrites {
		if err := store.WriteSummary(ctx, "alice", records); err != nil {
			t.Fatalf("rewrite %d: %v", i, err)
		}
	}

	raw, err = store.ReadRaw(ctx, "alice")
	if err != nil {
		t.Fatalf("read raw after rewrites: %v", err)
	}
	_, blockAfter, found := splitLogBlock(raw)
	if !found {
		t.Fatal("log header missing after rewrites")
	}
	if blockAfter != blockBefore {
		t.Fatalf("log block changed across rewrites:\nbefore: %q\nafter:  %q", blockBefore, blockAfter)
	}
}

func TestAppendSeedsMissingLedger(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	event := storage.Event{
		Timestamp: time.Date(2025, 3, 10, 8, 0, 0, 0, time.Local),
		Device:    "Heater",
		Status:    storage.StatusOn,
	}
	if err := store.AppendEvent(ctx, "bob", event); err != nil {
		t.Fatalf("append event: %v", err)
	}

	// The event must land inside the log block, not before it, so a later
	// summary rewrite keeps it.
	if err := store.WriteSummary(ctx, "bob", nil); err != nil {
		t.Fatalf("write summary: %v", err)
	}

	snap, err := store.ReadUser(ctx, "bob")
	if err != nil {
		t.Fatalf("read user: %v", err)
	}
	if len(snap.Events) != 1 {
		t.Fatalf("expected 1 event after rewrite, got %d", len(snap.Events))
	}
	if snap.Events[0].Device != "Heater" || snap.Events[0].Status != storage.StatusOn {
		t.Fatalf("unexpected event: %+v", snap.Events[0])
	}
}

func TestReadUserSkipsMalformedSummaryLines(t *testing.T) {
	store := newTestStore(t)

	content := SummaryHeader + "\n" +
		"Heater (1500W) | 0.5\n" +
		"this line is broken\n" +
		"Fan (60W) | abc\n" +
		"TV (120W) | 0.25\n" +
		"\n" + LogHeader + "\n"
	if err := os.WriteFile(store.Path("carol"), []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	snap, err := store.ReadUser(context.Background(), "carol")
	if err != nil {
		t.Fatalf("read user: %v", err)
	}
	if len(snap.Devices) != 2 {
		t.Fatalf("expected 2 parsable devices, got %d", len(snap.Devices))
	}
	if snap.Devices[0].Name != "Heater" || snap.Devices[1].Name != "TV" {
		t.Fatalf("unexpected devices: %+v", snap.Devices)
	}
}

func TestListUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, user := range []string{"bob", "alice"} {
		if err := store.WriteSummary(ctx, user, nil); err != nil {
			t.Fatalf("write summary for %s: %v", user, err)
		}
	}
	if err := os.WriteFile(store.Path("stray")+".bak", []byte("x"), 0644); err != nil {
		t.Fatalf("write stray file: %v", err)
	}

	users, err := store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if users[0].Username != "alice" || users[1].Username != "bob" {
		t.Fatalf("expected lexical order alice,bob, got %+v", users)
	}
}

func TestReadRawMissingUser(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.ReadRaw(context.Background(), "nobody"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
