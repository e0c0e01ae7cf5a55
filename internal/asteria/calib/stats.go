package calib

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/starwatch-station/asteria/internal/asteria/frame"
)

// trimmedMeanStd sorts values and computes the mean and standard deviation
// after dropping the lowest and highest floor(trim*N) entries, grounded on
// the original implementation's MathUtil::getTrimmedMeanStd
// (util/mathutil.cpp in the reference source): clamped pixel values never
// produce far outliers, so the trimmed mean stays unbiased while avoiding
// the median's quantization. The moments themselves come from
// gonum/stat.MeanVariance, matching the stat.Quantile usage already
// established for percentile work in the analysis package.
func trimmedMeanStd(values []float64, trim float64) (mean, std float64) {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	outliers := int(trim * float64(len(sorted)))
	lo, hi := outliers, len(sorted)-outliers
	if lo >= hi {
		lo, hi = 0, len(sorted)
	}
	if hi-lo < 2 {
		// stat.MeanVariance's unbiased estimator needs at least two samples.
		return sorted[lo], 0
	}

	var variance float64
	mean, variance = stat.MeanVariance(sorted[lo:hi], nil)
	if variance < 0 {
		variance = 0
	}
	std = math.Sqrt(variance)
	return mean, std
}

// stackStatistics computes the trimmed-mean signal and trimmed-stdev noise
// images from a stack of raw calibration frames (spec §4.5). All frames
// must share geometry.
func stackStatistics(frames []*frame.Frame, trim float64) (signal, noise *frame.ImageF64, err error) {
	w, h := frames[0].Width, frames[0].Height
	n := w * h

	signal = frame.NewImageF64(w, h, frames[0].EpochMicros)
	noise = frame.NewImageF64(w, h, frames[0].EpochMicros)

	samples := make([]float64, len(frames))
	for p := 0; p < n; p++ {
		for i, f := range frames {
			samples[i] = float64(f.Samples[p])
		}
		mean, std := trimmedMeanStd(samples, trim)
		signal.Samples[p] = mean
		noise.Samples[p] = std
	}
	return signal, noise, nil
}

// medianBackground estimates the source-free background level at each pixel
// as the median of the signal image over a square window of half-width hw,
// clipped to image bounds (spec §4.5).
func medianBackground(signal *frame.ImageF64, hw int) *frame.ImageF64 {
	w, h := signal.Width, signal.Height
	out := frame.NewImageF64(w, h, signal.EpochMicros)

	for k := 0; k < h; k++ {
		kMin, kMax := clampWindow(k, hw, h)
		for l := 0; l < w; l++ {
			lMin, lMax := clampWindow(l, hw, w)

			window := make([]float64, 0, (kMax-kMin)*(lMax-lMin))
			for kp := kMin; kp < kMax; kp++ {
				for lp := lMin; lp < lMax; lp++ {
					window = append(window, signal.Samples[signal.Index(lp, kp)])
				}
			}
			out.Samples[out.Index(l, k)] = median(window)
		}
	}
	return out
}

func clampWindow(center, hw, limit int) (min, max int) {
	min = center - hw
	if min < 0 {
		min = 0
	}
	max = center + hw + 1
	if max > limit {
		max = limit
	}
	return min, max
}

// median returns the median of values: the middle element of the sorted
// values, or the mean of the two middle elements when their count is even.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
