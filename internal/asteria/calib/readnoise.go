// Read-noise estimation (spec §9 Open Question 4): the reference
// implementation hard-codes this to 5.0 ADU with a TODO
// (infra/calibrationworker.cpp, "Get readnoise estimate from data"); the
// spec leaves a proper estimator as an open item, suggesting the low-signal
// tail of the noise-vs-signal scatter. We estimate read noise as the
// trimmed mean of the per-pixel noise values at the faintest background
// levels, since at low illumination the noise floor is dominated by read
// noise rather than photon shot noise, falling back to the source's
// heuristic constant when too few low-signal pixels are available to
// estimate confidently.
package calib

import (
	"sort"

	"github.com/starwatch-station/asteria/internal/asteria/frame"
)

// FallbackReadNoiseADU is the reference implementation's hard-coded
// heuristic, used when the low-signal tail doesn't contain enough pixels to
// estimate from.
const FallbackReadNoiseADU = 5.0

// minReadNoiseTailPoints is the minimum number of low-signal pixels
// required before trusting the tail estimate over the fallback heuristic.
const minReadNoiseTailPoints = 100

// lowSignalTailFraction is the fraction of pixels, by ascending background
// level, considered part of the low-signal tail.
const lowSignalTailFraction = 0.05

// estimateReadNoise computes the read-noise estimate from the background
// and noise images of a calibration stack.
func estimateReadNoise(background, noise *frame.ImageF64) float64 {
	n := len(background.Samples)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return background.Samples[order[a]] < background.Samples[order[b]]
	})

	tailCount := int(lowSignalTailFraction * float64(n))
	if tailCount < minReadNoiseTailPoints {
		diagf("readnoise: only %d low-signal pixels available, want >= %d; using fallback %.2f ADU", tailCount, minReadNoiseTailPoints, FallbackReadNoiseADU)
		return FallbackReadNoiseADU
	}

	tail := make([]float64, tailCount)
	for k, idx := range order[:tailCount] {
		tail[k] = noise.Samples[idx]
	}
	mean, _ := trimmedMeanStd(tail, 0.05)
	diagf("readnoise: estimated %.3f ADU from %d low-signal pixels", mean, tailCount)
	return mean
}
