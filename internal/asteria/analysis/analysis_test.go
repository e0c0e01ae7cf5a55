package analysis

import (
	"testing"

	"github.com/starwatch-station/asteria/internal/asteria/frame"
)

func mkFrame(t *testing.T, w, h int, samples []byte, epoch int64) *frame.Frame {
	t.Helper()
	f, err := frame.NewFrame(w, h, samples, epoch, frame.Progressive)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	return f
}

func TestAnalyzeSkipsFirstFrame(t *testing.T) {
	frames := []*frame.Frame{
		mkFrame(t, 3, 3, make([]byte, 9), 0),
		mkFrame(t, 3, 3, make([]byte, 9), 1000),
	}
	ms, err := Analyze(frames, Params{PixelDifferenceThreshold: 5, NChangedPixelsForTrigger: 1})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(ms) != 1 {
		t.Fatalf("got %d measurements, want 1 (frames-1)", len(ms))
	}
}

func TestAnalyzeFailedTriggerOnlyHasEpoch(t *testing.T) {
	flat := make([]byte, 9)
	frames := []*frame.Frame{
		mkFrame(t, 3, 3, flat, 0),
		mkFrame(t, 3, 3, flat, 1000),
	}
	ms, err := Analyze(frames, Params{PixelDifferenceThreshold: 5, NChangedPixelsForTrigger: 1})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if ms[0].Success {
		t.Fatal("expected Success=false for identical frames")
	}
	if ms[0].EpochMicros != 1000 {
		t.Errorf("EpochMicros = %d, want 1000", ms[0].EpochMicros)
	}
	if ms[0].XMin != 0 || ms[0].CX != 0 {
		t.Errorf("expected zero-valued bounding box/centroid on a failed measurement, got %+v", ms[0])
	}
}

func TestAnalyzeLocalizesTriggeredFrame(t *testing.T) {
	// 5x5 frame, a single bright 3x3 patch appears centered at (2,2) in
	// frame 1 relative to a flat frame 0.
	flat := make([]byte, 25)
	bright := make([]byte, 25)
	for y := 1; y <= 3; y++ {
		for x := 1; x <= 3; x++ {
			bright[y*5+x] = 200
		}
	}
	frames := []*frame.Frame{
		mkFrame(t, 5, 5, flat, 0),
		mkFrame(t, 5, 5, bright, 1000),
	}
	ms, err := Analyze(frames, Params{PixelDifferenceThreshold: 10, NChangedPixelsForTrigger: 1})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !ms[0].Success {
		t.Fatal("expected trigger on bright patch")
	}
	if ms[0].CX < 1.5 || ms[0].CX > 3.5 {
		t.Errorf("CX = %v, want roughly within the bright patch", ms[0].CX)
	}
	if ms[0].CY < 1.5 || ms[0].CY > 3.5 {
		t.Errorf("CY = %v, want roughly within the bright patch", ms[0].CY)
	}
}
