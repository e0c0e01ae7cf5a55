// Package clip defines the Clip and LocationMeasurement data model and the
// ClipPersister that writes a clip atomically to a date-sharded directory
// tree (spec §3, §4.4).
package clip

import (
	"fmt"

	"github.com/starwatch-station/asteria/internal/asteria/frame"
)

// LocationMeasurement is the per-frame diagnostic recorded by the offline
// AnalysisWorker (spec §3). When Success is false, only Epoch is meaningful.
type LocationMeasurement struct {
	EpochMicros int64
	Positive    []int
	Negative    []int
	Success     bool
	XMin, XMax  int
	YMin, YMax  int
	CX, CY      float64
}

// Clip is an ordered sequence of frames covering one detection, the
// per-pixel peak-hold frame, and a parallel measurement per frame.
type Clip struct {
	Frames       []*frame.Frame
	PeakHold     *frame.Frame
	Measurements []LocationMeasurement
}

// Validate checks the structural invariants from spec §3/§8: strictly
// increasing capture times, and a measurement slice parallel to Frames.
func (c *Clip) Validate() error {
	if len(c.Measurements) != 0 && len(c.Measurements) != len(c.Frames) {
		return fmt.Errorf("clip: %d measurements for %d frames", len(c.Measurements), len(c.Frames))
	}
	for i := 1; i < len(c.Frames); i++ {
		if c.Frames[i].EpochMicros <= c.Frames[i-1].EpochMicros {
			return fmt.Errorf("clip: frame epochs not strictly increasing at index %d", i)
		}
	}
	return nil
}

// ComputePeakHold rebuilds the per-pixel maximum over all frames in the
// clip. It is idempotent and safe to call after Frames is finalized.
func ComputePeakHold(frames []*frame.Frame) (*frame.Frame, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("clip: cannot compute peak-hold of zero frames")
	}
	w, h := frames[0].Width, frames[0].Height
	out := make([]byte, w*h)
	copy(out, frames[0].Samples)
	for _, f := range frames[1:] {
		if f.Width != w || f.Height != h {
			return nil, fmt.Errorf("clip: geometry mismatch in peak-hold stack")
		}
		for i, v := range f.Samples {
			if v > out[i] {
				out[i] = v
			}
		}
	}
	return frame.NewFrame(w, h, out, frames[len(frames)-1].EpochMicros, frames[0].FieldOrder)
}
