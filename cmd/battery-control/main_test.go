package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sweeney/battery-control/internal/journal"
	"github.com/sweeney/battery-control/internal/lock"
	"github.com/sweeney/battery-control/internal/state"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFormatState(t *testing.T) {
	until := time.Date(2026, 3, 1, 7, 30, 0, 0, time.UTC)
	on := true
	st := state.State{Current: true, Default: false, Override: &on, OverrideExpires: &until}

	out, err := formatState(st)
	if err != nil {
		t.Fatalf("formatState: %v", err)
	}
	for _, want := range []string{
		`"currentState": true`,
		`"defaultState": false`,
		`"manualOverrideState": true`,
		"2026-03-01T07:30:00Z",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if !strings.HasPrefix(out, "{\n") {
		t.Errorf("expected indented JSON, got %q", out)
	}
}

func TestFormatStateOmitsUnsetFields(t *testing.T) {
	out, err := formatState(state.Initial())
	if err != nil {
		t.Fatalf("formatState: %v", err)
	}
	for _, unwanted := range []string{"manualOverrideState", "keepStateUntil"} {
		if strings.Contains(out, unwanted) {
			t.Errorf("output should omit %q:\n%s", unwanted, out)
		}
	}
}

func TestFormatHistory(t *testing.T) {
	pct := 72.0
	entries := []journal.Entry{
		{Timestamp: time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC), On: true, Operation: "poll", Battery: &pct},
		{Timestamp: time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC), On: false, Operation: "sleep"},
	}

	out := formatHistory(entries)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "PLUG_ON") || !strings.Contains(lines[0], "battery 72%") {
		t.Errorf("unexpected first line: %q", lines[0])
	}
	if !strings.Contains(lines[1], "PLUG_OFF") || !strings.Contains(lines[1], "sleep") {
		t.Errorf("unexpected second line: %q", lines[1])
	}
	if strings.Contains(lines[1], "battery") {
		t.Errorf("entry without a reading should not print one: %q", lines[1])
	}
}

func TestFormatHistoryEmpty(t *testing.T) {
	if out := formatHistory(nil); out != "no transitions recorded\n" {
		t.Errorf("unexpected empty output %q", out)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestWatchLoopPollsImmediatelyAndOnInterval(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- watchLoop(ctx, func(context.Context) error {
			calls.Add(1)
			return nil
		}, 20*time.Millisecond, discardLogger())
	}()

	waitFor(t, func() bool { return calls.Load() >= 3 })
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watchLoop: %v", err)
	}
}

func TestWatchLoopSurvivesFailedCycles(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- watchLoop(ctx, func(context.Context) error {
			if calls.Add(1) == 1 {
				return errors.New("plug unreachable")
			}
			return lock.ErrLocked
		}, 15*time.Millisecond, discardLogger())
	}()

	// Hard failures and lock contention alike are logged and skipped; the
	// loop keeps scheduling.
	waitFor(t, func() bool { return calls.Load() >= 3 })
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watchLoop should not surface cycle errors: %v", err)
	}
}
