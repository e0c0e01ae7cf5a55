package diagnostics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlotConvergenceWritesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "convergence.png")
	err := PlotConvergence([]float64{120.5, 80.2, 40.1, 39.9, 39.88}, path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestPlotConvergenceRejectsEmptyHistory(t *testing.T) {
	err := PlotConvergence(nil, filepath.Join(t.TempDir(), "empty.png"))
	require.Error(t, err)
}

func TestPlotNoiseHistogramWritesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.png")
	samples := make([]float64, 500)
	for i := range samples {
		samples[i] = 4.5 + float64(i%10)*0.1
	}
	err := PlotNoiseHistogram(samples, path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}
