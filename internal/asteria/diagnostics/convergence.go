// Package diagnostics renders PNG plots of calibration-run internals for
// operator review, grounded on internal/lidar/monitor/gridplotter.go's
// gonum.org/v1/plot usage (plot.New, plotter.Line, vg.Inch-sized Save).
// This package exists because the GUI is out of scope (spec §1 Non-goals)
// but the operator still needs a way to inspect a calibration run's
// internal behavior.
package diagnostics

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotConvergence renders the LM χ² trajectory (one point per accepted
// step, per lmfit.Result.ChiSquareHistory) to a PNG at path.
func PlotConvergence(chiSquareHistory []float64, path string) error {
	if len(chiSquareHistory) == 0 {
		return fmt.Errorf("diagnostics: empty chi-square history")
	}

	p := plot.New()
	p.Title.Text = "Calibration LM Convergence"
	p.X.Label.Text = "Accepted step"
	p.Y.Label.Text = "χ²"

	pts := make(plotter.XYs, len(chiSquareHistory))
	for i, v := range chiSquareHistory {
		pts[i] = plotter.XY{X: float64(i), Y: v}
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("diagnostics: build convergence line: %w", err)
	}
	line.Width = vg.Points(1.5)
	p.Add(line)

	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("diagnostics: save convergence plot %s: %w", path, err)
	}
	return nil
}
