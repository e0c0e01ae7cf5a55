package diagnostics

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// defaultHistogramBins matches the bin count gridplotter.go's ring plots
// implicitly use for azimuth-bucketed series (a reasonable default for a
// few-thousand-pixel calibration stack, not a spec-mandated constant).
const defaultHistogramBins = 50

// PlotNoiseHistogram renders a histogram of per-pixel noise values (spec
// §4.7's per-pixel standard-deviation image flattened to a sample slice)
// to a PNG at path, for visually confirming the low-signal tail used by
// the read-noise estimator.
func PlotNoiseHistogram(samples []float64, path string) error {
	if len(samples) == 0 {
		return fmt.Errorf("diagnostics: empty noise sample set")
	}

	p := plot.New()
	p.Title.Text = "Calibration Signal/Noise Distribution"
	p.X.Label.Text = "Noise (ADU)"
	p.Y.Label.Text = "Pixel count"

	hist, err := plotter.NewHist(plotter.Values(samples), defaultHistogramBins)
	if err != nil {
		return fmt.Errorf("diagnostics: build noise histogram: %w", err)
	}
	p.Add(hist)

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("diagnostics: save noise histogram %s: %w", path, err)
	}
	return nil
}
