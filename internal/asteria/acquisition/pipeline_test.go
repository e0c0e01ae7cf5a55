package acquisition

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starwatch-station/asteria/internal/asteria/clip"
	"github.com/starwatch-station/asteria/internal/asteria/frame"
	"github.com/starwatch-station/asteria/internal/asteria/testsupport"
)

// buildFrames returns n frames of the given geometry whose pixel 0 takes
// value[i] at epoch i*1000.
func buildFrames(t *testing.T, values []byte) []*frame.Frame {
	t.Helper()
	frames := make([]*frame.Frame, len(values))
	for i, v := range values {
		f, err := frame.NewFrame(1, 1, []byte{v}, int64(i)*1000, frame.Progressive)
		if err != nil {
			t.Fatalf("NewFrame: %v", err)
		}
		frames[i] = f
	}
	return frames
}

func runPipeline(t *testing.T, p *Pipeline, frames []*frame.Frame) {
	t.Helper()
	src := testsupport.NewFakeSource(frames, time.Millisecond)
	p.Source = src

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var shutdown atomic.Bool
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, &shutdown, 5*time.Millisecond) }()

	// Drain live view so the producer never blocks/drops due to the test
	// not consuming it.
	go func() {
		for range p.LiveView {
		}
	}()

	deadline := time.After(2 * time.Second)
	for {
		if p.Stats.FramesCaptured.Load() >= uint64(len(frames)) {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for all frames to be captured")
		case <-time.After(time.Millisecond):
		}
	}
	shutdown.Store(true)
	<-done
}

// TestPreTriggerAssembly is scenario E1: no triggers fire, so no clips are
// emitted and the ring holds the last detection_head frames.
func TestPreTriggerAssembly(t *testing.T) {
	values := make([]byte, 10)
	for i := range values {
		values[i] = 100 // identical frames, never triggers
	}
	frames := buildFrames(t, values)

	persister := clip.NewPersister(t.TempDir(), 10)
	go func() {
		for range persister.Notifications {
		}
	}()

	p := NewPipeline(nil, Params{
		DetectionHead:            3,
		DetectionTail:            2,
		PixelDifferenceThreshold: 1000, // effectively infinite
		NChangedPixelsForTrigger: 1000000,
	}, persister, 32)

	runPipeline(t, p, frames)

	if p.Stats.ClipsPersisted.Load() != 0 {
		t.Fatalf("expected 0 persisted clip count, got %d", p.Stats.ClipsPersisted.Load())
	}

	ring := p.preTrigger.Unroll()
	if len(ring) != 3 {
		t.Fatalf("expected ring len 3, got %d", len(ring))
	}
	wantEpochs := []int64{7000, 8000, 9000}
	for i, f := range ring {
		if f.EpochMicros != wantEpochs[i] {
			t.Errorf("ring[%d].EpochMicros = %d, want %d", i, f.EpochMicros, wantEpochs[i])
		}
	}
}

// TestSingleTriggerWithTail is scenario E2: frames 4 and 5 trigger; the
// persisted clip should contain frames {1,2,3,4,5,6,7}, length 7.
func TestSingleTriggerWithTail(t *testing.T) {
	values := []byte{10, 10, 10, 10, 50, 90, 90, 90, 90, 90}
	frames := buildFrames(t, values)

	persister := clip.NewPersister(t.TempDir(), 10)
	var gotNotification clip.Persisted
	notified := make(chan struct{}, 1)
	go func() {
		for n := range persister.Notifications {
			gotNotification = n
			notified <- struct{}{}
		}
	}()

	p := NewPipeline(nil, Params{
		DetectionHead:            3,
		DetectionTail:            2,
		PixelDifferenceThreshold: 1,
		NChangedPixelsForTrigger: 1,
	}, persister, 32)

	runPipeline(t, p, frames)

	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for clip persistence notification")
	}

	if p.Stats.ClipsPersisted.Load() != 1 {
		t.Fatalf("expected exactly 1 persisted clip, got %d", p.Stats.ClipsPersisted.Load())
	}
	if gotNotification.ID == "" {
		t.Fatal("expected a non-empty clip ID in the notification")
	}
}
