// Package detector implements EventDetector, the pure pixel-difference
// comparison used both by the live acquisition pipeline and by offline
// re-analysis (spec §4.2).
package detector

import (
	"fmt"

	"github.com/starwatch-station/asteria/internal/asteria/frame"
)

// Result is the outcome of comparing two frames.
type Result struct {
	// Positive holds the flat pixel indices where B[p]-A[p] > threshold.
	Positive []int
	// Negative holds the flat pixel indices where A[p]-B[p] > threshold.
	Negative []int
	Trigger  bool
}

// Params configures EventDetector.
type Params struct {
	// PixelDifferenceThreshold is τ in spec §4.2.
	PixelDifferenceThreshold int
	// NChangedPixelsForTrigger is k in spec §4.2.
	NChangedPixelsForTrigger int
}

// Compare walks every pixel of a and b, classifying each as a positive
// change, a negative change, or unchanged, and returns whether the combined
// change count meets the trigger threshold. a and b must share geometry.
// Arithmetic happens on widened signed ints to avoid unsigned wraparound.
func Compare(a, b *frame.Frame, p Params) (Result, error) {
	if a.Width != b.Width || a.Height != b.Height {
		return Result{}, fmt.Errorf("detector: geometry mismatch %dx%d vs %dx%d", a.Width, a.Height, b.Width, b.Height)
	}

	n := a.Width * a.Height
	var positive, negative []int
	tau := p.PixelDifferenceThreshold

	for i := 0; i < n; i++ {
		da := int(a.Samples[i])
		db := int(b.Samples[i])
		diff := db - da
		switch {
		case diff > tau:
			positive = append(positive, i)
		case -diff > tau:
			negative = append(negative, i)
		}
	}

	trigger := len(positive)+len(negative) >= p.NChangedPixelsForTrigger
	return Result{Positive: positive, Negative: negative, Trigger: trigger}, nil
}
