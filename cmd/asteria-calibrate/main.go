// Command asteria-calibrate runs one offline CalibrationEngine pass (spec
// §4.5): it reads a directory of calibration frames captured by asteria,
// loads the station's reference-star catalog, refines the camera model and
// site orientation by nonlinear least squares, and persists the resulting
// CalibrationInventory under the station's calibration root.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/starwatch-station/asteria/internal/asteria/calib"
	"github.com/starwatch-station/asteria/internal/asteria/camera"
	"github.com/starwatch-station/asteria/internal/asteria/catalog"
	"github.com/starwatch-station/asteria/internal/asteria/clip"
	"github.com/starwatch-station/asteria/internal/asteria/config"
	"github.com/starwatch-station/asteria/internal/asteria/diagnostics"
	"github.com/starwatch-station/asteria/internal/asteria/frame"
	"github.com/starwatch-station/asteria/internal/fsutil"
)

var (
	cfgPath  = flag.String("config", "", "station configuration file path (required)")
	framesIn = flag.String("frames", "", "directory of .pgm calibration frames (required)")
	plotsOut = flag.String("plots", "", "optional directory for convergence/noise diagnostic PNGs")
)

func main() {
	flag.Parse()

	if *cfgPath == "" || *framesIn == "" {
		fmt.Fprintln(os.Stderr, "asteria-calibrate: --config and --frames are required")
		os.Exit(1)
	}

	if err := run(*cfgPath, *framesIn, *plotsOut); err != nil {
		fmt.Fprintf(os.Stderr, "asteria-calibrate: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath, framesDir, plotsDir string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	fs := fsutil.OSFileSystem{}

	frames, err := loadFrames(fs, framesDir)
	if err != nil {
		return fmt.Errorf("load calibration frames: %w", err)
	}

	catalogFile, err := fs.Open(cfg.GetCatalogPath())
	if err != nil {
		return fmt.Errorf("open reference-star catalog %s: %w", cfg.GetCatalogPath(), err)
	}
	defer catalogFile.Close()
	stars, err := catalog.Load(catalogFile)
	if err != nil {
		return fmt.Errorf("parse reference-star catalog: %w", err)
	}

	initial, err := bootstrapInventory(cfg, frames[0])
	if err != nil {
		return fmt.Errorf("bootstrap initial camera model: %w", err)
	}

	inv, err := calib.Run(frames, initial, stars, calib.Params{
		BkgMedianFilterHalfWidth:       cfg.GetBkgMedianFilterHalfWidth(),
		SourceDetectionThresholdSigmas: cfg.GetSourceDetectionThresholdSigma(),
		RefStarFaintMagLimit:           cfg.GetRefStarFaintMagLimit(),
		MaxCrossMatchSeparation:        cfg.GetMaxCrossMatchSeparation(),
	})
	if err != nil {
		return fmt.Errorf("calibration run: %w", err)
	}

	persister := calib.NewPersister(cfg.GetCalibrationRoot())
	persisted, err := persister.Persist(inv)
	if err != nil {
		return fmt.Errorf("persist calibration run: %w", err)
	}
	fmt.Printf("calibration run %s persisted to %s (chi-square=%g, converged=%v, %d matches)\n",
		persisted.ID, persisted.Root, inv.FitResult.ChiSquare, inv.FitResult.Converged, len(inv.Matches))

	if plotsDir != "" {
		if err := writeDiagnostics(plotsDir, inv); err != nil {
			fmt.Fprintf(os.Stderr, "asteria-calibrate: diagnostics: %v\n", err)
		}
	}

	return nil
}

// loadFrames reads every *.pgm file in dir, sorted by filename so the
// resulting slice's epochs are already in capture order as calib.Run
// requires. Frame bytes are read through fs so tests can substitute a
// fsutil.MemoryFileSystem for a real calibration-frame directory.
func loadFrames(fs fsutil.FileSystem, dir string) ([]*frame.Frame, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".pgm" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil, fmt.Errorf("no .pgm frames found in %s", dir)
	}

	frames := make([]*frame.Frame, 0, len(names))
	for _, name := range names {
		f, err := readOneFrame(fs, filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		frames = append(frames, f)
	}
	return frames, nil
}

func readOneFrame(fs fsutil.FileSystem, path string) (*frame.Frame, error) {
	fh, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return clip.ReadPGM(fh)
}

// bootstrapInventory seeds the initial CalibrationInventory handed to
// calib.Run. The camera's focal length and principal point are not part of
// station configuration (spec §10.2): every run seeds the fit with a
// conservative guess of one focal length per pixel of frame width, centered
// on the frame, and LM refinement starts from that guess. No previously
// persisted calibration is read back.
func bootstrapInventory(cfg *config.Config, first *frame.Frame) (calib.Inventory, error) {
	width, height := first.Width, first.Height
	guessFocal := float64(width)
	principalI, principalJ := float64(width)/2, float64(height)/2

	var model camera.Model
	var err error
	switch cfg.GetCameraModel() {
	case "pinhole_radial":
		model, err = camera.NewPinholeRadial(width, height, guessFocal, guessFocal, principalI, principalJ, [5]float64{})
	default:
		model, err = camera.NewPinhole(width, height, guessFocal, guessFocal, principalI, principalJ)
	}
	if err != nil {
		return calib.Inventory{}, err
	}

	return calib.Inventory{
		EpochMicros:      first.EpochMicros,
		Camera:           model,
		QuaternionSEZCam: calib.Quaternion{W: 1},
		LongitudeDeg:     cfg.GetSiteLongitudeDeg(),
		LatitudeDeg:      cfg.GetSiteLatitudeDeg(),
		AltitudeM:        cfg.GetSiteAltitudeM(),
	}, nil
}

func writeDiagnostics(dir string, inv calib.Inventory) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create diagnostics dir: %w", err)
	}
	if len(inv.FitResult.ChiSquareHistory) > 0 {
		if err := diagnostics.PlotConvergence(inv.FitResult.ChiSquareHistory, filepath.Join(dir, "convergence.png")); err != nil {
			return fmt.Errorf("convergence plot: %w", err)
		}
	}
	if inv.Noise != nil && len(inv.Noise.Samples) > 0 {
		if err := diagnostics.PlotNoiseHistogram(inv.Noise.Samples, filepath.Join(dir, "noise_histogram.png")); err != nil {
			return fmt.Errorf("noise histogram: %w", err)
		}
	}
	return nil
}
