// Package calib implements CalibrationEngine (spec §4.5): estimating the
// signal/background/noise images from a stack of calibration frames,
// extracting stellar sources, projecting the reference-star catalog into
// the camera frame, cross-matching, and refining the camera model and
// orientation quaternion by nonlinear least squares. Grounded throughout on
// CalibrationWorker::process (infra/calibrationworker.cpp) in the reference
// implementation, which performs these same stages in the same order.
package calib

import (
	"fmt"

	"github.com/starwatch-station/asteria/internal/asteria/camera"
	"github.com/starwatch-station/asteria/internal/asteria/catalog"
	"github.com/starwatch-station/asteria/internal/asteria/frame"
	"github.com/starwatch-station/asteria/internal/asteria/lmfit"
	"github.com/starwatch-station/asteria/internal/asteria/source"
)

// Params configures one calibration run (spec §4.5).
type Params struct {
	// BkgMedianFilterHalfWidth is hw: the background estimate at each pixel
	// is the median signal value in a (2*hw+1)^2 window around it.
	BkgMedianFilterHalfWidth int

	// SourceDetectionThresholdSigmas is the ADU/sigmaADU cut applied by
	// SourceDetector.
	SourceDetectionThresholdSigmas float64

	// RefStarFaintMagLimit is m_faint: catalog stars fainter than this are
	// never projected.
	RefStarFaintMagLimit float64

	// MaxCrossMatchSeparation overrides DefaultMaxSeparation when nonzero.
	MaxCrossMatchSeparation float64
}

// Inventory is a snapshot of one calibration run's inputs and outputs
// (spec §3's CalibrationInventory).
type Inventory struct {
	EpochMicros int64

	Signal     *frame.ImageF64
	Background *frame.ImageF64
	Noise      *frame.ImageF64

	Sources []source.Source
	Matches []CrossMatch

	Camera           camera.Model
	QuaternionSEZCam Quaternion

	LongitudeDeg, LatitudeDeg, AltitudeM float64

	ReadNoiseADU float64

	FitResult lmfit.Result
}

// Run executes one full calibration pass over a stack of frames (spec
// §4.5). initial carries the prior camera model, orientation, and site
// coordinates to refine; catalogStars is the full reference-star catalog
// (not yet filtered by magnitude).
func Run(frames []*frame.Frame, initial Inventory, catalogStars []catalog.Star, p Params) (Inventory, error) {
	if len(frames) == 0 {
		return Inventory{}, fmt.Errorf("calib: cannot calibrate from zero frames")
	}
	if initial.Camera == nil {
		return Inventory{}, fmt.Errorf("calib: initial inventory has no camera model")
	}

	midEpoch := (frames[0].EpochMicros + frames[len(frames)-1].EpochMicros) / 2
	opsf("calibrating from %d frames, mid-epoch=%d", len(frames), midEpoch)

	signal, noise, err := stackStatistics(frames, 0.05)
	if err != nil {
		return Inventory{}, fmt.Errorf("calib: pixel statistics: %w", err)
	}
	signal.EpochMicros = midEpoch
	noise.EpochMicros = midEpoch
	background := medianBackground(signal, p.BkgMedianFilterHalfWidth)
	background.EpochMicros = midEpoch

	sources := source.Detect(signal, background, noise, source.Params{SigmaThreshold: p.SourceDetectionThresholdSigmas})
	diagf("detected %d sources from calibration stack", len(sources))

	gmstHours := EpochToGMST(midEpoch)
	lon := degToRad(initial.LongitudeDeg)
	lat := degToRad(initial.LatitudeDeg)

	rot := bcrfToCamRot(gmstHours, lon, lat, initial.QuaternionSEZCam)
	visibleStars := projectReferenceStars(catalogStars, rot, initial.Camera, p.RefStarFaintMagLimit)
	diagf("%d of %d catalog stars visible at mag<=%.2f", len(visibleStars), len(catalogStars), p.RefStarFaintMagLimit)

	maxSep := p.MaxCrossMatchSeparation
	if maxSep == 0 {
		maxSep = DefaultMaxSeparation
	}
	matches := CrossMatchSourcesAndStars(sources, visibleStars, maxSep)

	fittedQuaternion := initial.QuaternionSEZCam.Normalize()
	var fitResult lmfit.Result
	if len(matches) > 0 {
		fittedQuaternion, fitResult, err = refine(initial.Camera, fittedQuaternion, gmstHours, lon, lat, matches)
		if err != nil {
			opsf("LM refinement failed, retaining prior camera model/orientation: %v", err)
			fittedQuaternion = initial.QuaternionSEZCam.Normalize()
		}
	} else {
		opsf("no cross-matches available; skipping LM refinement")
	}

	readNoise := estimateReadNoise(background, noise)

	return Inventory{
		EpochMicros:      midEpoch,
		Signal:           signal,
		Background:       background,
		Noise:            noise,
		Sources:          sources,
		Matches:          matches,
		Camera:           initial.Camera,
		QuaternionSEZCam: fittedQuaternion,
		LongitudeDeg:     initial.LongitudeDeg,
		LatitudeDeg:      initial.LatitudeDeg,
		AltitudeM:        initial.AltitudeM,
		ReadNoiseADU:     readNoise,
		FitResult:        fitResult,
	}, nil
}
