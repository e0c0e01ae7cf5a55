// Package analysis implements AnalysisWorker, the offline per-clip
// localization pass that recomputes a LocationMeasurement for every frame
// of an already-persisted clip (spec §4.3).
package analysis

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/starwatch-station/asteria/internal/asteria/clip"
	"github.com/starwatch-station/asteria/internal/asteria/detector"
	"github.com/starwatch-station/asteria/internal/asteria/frame"
)

// Params configures one analysis pass.
type Params struct {
	PixelDifferenceThreshold int
	NChangedPixelsForTrigger int
}

// Analyze walks frames[1:], comparing each to its predecessor, and returns
// one LocationMeasurement per frame in frames[1:] (frame 0 has no
// predecessor and is not measured, matching spec §4.3's "for each frame
// i ≥ 1" contract).
func Analyze(frames []*frame.Frame, p Params) ([]clip.LocationMeasurement, error) {
	measurements := make([]clip.LocationMeasurement, 0, len(frames)-1)
	for i := 1; i < len(frames); i++ {
		prev, cur := frames[i-1], frames[i]
		res, err := detector.Compare(prev, cur, detector.Params{
			PixelDifferenceThreshold: p.PixelDifferenceThreshold,
			NChangedPixelsForTrigger: p.NChangedPixelsForTrigger,
		})
		if err != nil {
			return nil, err
		}

		m := clip.LocationMeasurement{
			EpochMicros: cur.EpochMicros,
			Positive:    res.Positive,
			Negative:    res.Negative,
			Success:     res.Trigger,
		}
		if res.Trigger {
			localize(&m, cur, res)
		}
		measurements = append(measurements, m)
	}
	return measurements, nil
}

// localize computes the robust bounding box and flux-weighted centroid for
// a triggered frame, per spec §4.3.
func localize(m *clip.LocationMeasurement, cur *frame.Frame, res detector.Result) {
	changed := make([]int, 0, len(res.Positive)+len(res.Negative))
	changed = append(changed, res.Positive...)
	changed = append(changed, res.Negative...)

	xs := make([]float64, len(changed))
	ys := make([]float64, len(changed))
	for i, idx := range changed {
		x := idx % cur.Width
		y := idx / cur.Width
		xs[i] = float64(x)
		ys[i] = float64(y)
	}
	sort.Float64s(xs)
	sort.Float64s(ys)

	xMin := int(stat.Quantile(0.05, stat.Empirical, xs, nil))
	xMax := int(stat.Quantile(0.95, stat.Empirical, xs, nil))
	yMin := int(stat.Quantile(0.05, stat.Empirical, ys, nil))
	yMax := int(stat.Quantile(0.95, stat.Empirical, ys, nil))
	m.XMin, m.XMax, m.YMin, m.YMax = xMin, xMax, yMin, yMax

	var sumI, sumWX, sumWY float64
	for y := yMin; y <= yMax && y < cur.Height; y++ {
		if y < 0 {
			continue
		}
		for x := xMin; x <= xMax && x < cur.Width; x++ {
			if x < 0 {
				continue
			}
			intensity := float64(cur.At(x, y))
			sumI += intensity
			sumWX += (float64(x) + 0.5) * intensity
			sumWY += (float64(y) + 0.5) * intensity
		}
	}
	if sumI > 0 {
		m.CX = sumWX / sumI
		m.CY = sumWY / sumI
	}
}
