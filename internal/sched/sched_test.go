package sched

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeTarget struct {
	refreshes atomic.Int64
	saves     atomic.Int64
}

func (f *fakeTarget) RefreshAll() {
	f.refreshes.Add(1)
}

func (f *fakeTarget) Save() error {
	f.saves.Add(1)
	return nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSchedulerTicks(t *testing.T) {
	target := &fakeTarget{}
	s := New(target, Config{TickInterval: 2 * time.Millisecond}, zerolog.Nop())

	s.Start()
	defer s.Stop()

	waitFor(t, "refresh ticks", func() bool {
		return target.refreshes.Load() >= 3
	})
}

func TestSchedulerKick(t *testing.T) {
	target := &fakeTarget{}
	s := New(target, Config{TickInterval: time.Hour}, zerolog.Nop())

	s.Start()
	defer s.Stop()

	s.Kick()

	waitFor(t, "kicked refresh", func() bool {
		return target.refreshes.Load() >= 1
	})
}

func TestSchedulerAutosave(t *testing.T) {
	target := &fakeTarget{}
	s := New(target, Config{
		TickInterval:     time.Hour,
		AutosaveInterval: 2 * time.Millisecond,
	}, zerolog.Nop())

	s.Start()
	defer s.Stop()

	waitFor(t, "autosave", func() bool {
		return target.saves.Load() >= 2
	})
}

func TestSchedulerAutosaveDisabledByDefault(t *testing.T) {
	target := &fakeTarget{}
	s := New(target, Config{TickInterval: 2 * time.Millisecond}, zerolog.Nop())

	s.Start()
	waitFor(t, "refresh ticks", func() bool {
		return target.refreshes.Load() >= 3
	})
	s.Stop()

	if got := target.saves.Load(); got != 0 {
		t.Errorf("Save() called %d times with autosave disabled", got)
	}
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	s := New(&fakeTarget{}, Config{TickInterval: time.Millisecond}, zerolog.Nop())

	s.Start()
	s.Stop()
	s.Stop()
}

func TestSchedulerStopWaitsForLoopExit(t *testing.T) {
	target := &fakeTarget{}
	s := New(target, Config{TickInterval: time.Millisecond}, zerolog.Nop())

	s.Start()
	waitFor(t, "first tick", func() bool {
		return target.refreshes.Load() >= 1
	})
	s.Stop()

	before := target.refreshes.Load()
	time.Sleep(20 * time.Millisecond)
	if after := target.refreshes.Load(); after != before {
		t.Errorf("refreshes advanced from %d to %d after Stop", before, after)
	}
}

func TestDefaultTickInterval(t *testing.T) {
	s := New(&fakeTarget{}, Config{}, zerolog.Nop())

	if s.config.TickInterval != time.Second {
		t.Errorf("default tick interval = %v, want 1s", s.config.TickInterval)
	}
}
