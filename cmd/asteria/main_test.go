package main

import (
	"context"
	"testing"
	"time"

	"github.com/starwatch-station/asteria/internal/asteria/telemetry"
	"github.com/starwatch-station/asteria/internal/timeutil"
)

// TestLogTelemetryPeriodicallyUsesInjectedClock drives the ticker with a
// timeutil.MockClock instead of a real one second tick, confirming the
// diagnostics loop reads LogDiag off whatever clock it is handed.
func TestLogTelemetryPeriodicallyUsesInjectedClock(t *testing.T) {
	stats := telemetry.NewStats()
	stats.AddFrame()

	clock := timeutil.NewMockClock(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		logTelemetryPeriodically(ctx, stats, clock)
		close(done)
	}()

	// Let the goroutine register its ticker before advancing the clock.
	time.Sleep(20 * time.Millisecond)
	clock.Advance(time.Second)
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("logTelemetryPeriodically did not exit after context cancellation")
	}

	snap := stats.LatestSnapshot()
	if snap.TotalFrames != 1 {
		t.Errorf("TotalFrames = %d, want 1", snap.TotalFrames)
	}
}
