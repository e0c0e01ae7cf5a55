// Package testsupport provides synthetic frame and image generators shared
// by the test suites of the acquisition, detector, calib, and camera
// packages.
package testsupport

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/starwatch-station/asteria/internal/asteria/frame"
)

// ErrExhausted names the exhausted state of a FakeSource. FakeSource.NextFrame
// does not return it: once every queued frame has been delivered it reports
// a plain timeout (nil, false, nil).
var ErrExhausted = errors.New("testsupport: frame source exhausted")

// FakeSource is a frame.Source backed by a fixed, pre-built slice of
// frames, used to drive deterministic acquisition-pipeline scenarios
// (spec §8, scenarios E1/E2).
type FakeSource struct {
	mu     sync.Mutex
	frames []*frame.Frame
	idx    int
	period time.Duration
	w, h   int
	fo     frame.FieldOrder
}

// NewFakeSource returns a FakeSource that yields frames in order, then
// reports timeout forever once exhausted.
func NewFakeSource(frames []*frame.Frame, period time.Duration) *FakeSource {
	w, h := 0, 0
	fo := frame.Progressive
	if len(frames) > 0 {
		w, h, fo = frames[0].Width, frames[0].Height, frames[0].FieldOrder
	}
	return &FakeSource{frames: frames, period: period, w: w, h: h, fo: fo}
}

func (s *FakeSource) NextFrame(ctx context.Context, timeout time.Duration) (*frame.Frame, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx >= len(s.frames) {
		return nil, false, nil
	}
	f := s.frames[s.idx]
	s.idx++
	return f, true, nil
}

func (s *FakeSource) NominalFramePeriod() time.Duration { return s.period }
func (s *FakeSource) Width() int                        { return s.w }
func (s *FakeSource) Height() int                       { return s.h }
func (s *FakeSource) FieldOrder() frame.FieldOrder       { return s.fo }

// UniformFrame builds a Frame of the given geometry filled with value.
func UniformFrame(width, height int, value byte, epochMicros int64) *frame.Frame {
	samples := make([]byte, width*height)
	for i := range samples {
		samples[i] = value
	}
	f, err := frame.NewFrame(width, height, samples, epochMicros, frame.Progressive)
	if err != nil {
		panic(err)
	}
	return f
}

// GaussianBlobImage builds a W×H ImageF64 with n Gaussian point sources of
// the given FWHM and peak amplitude over a flat background, used by
// SourceDetector's synthetic-field scenario (spec §8 E5). noiseFunc, if
// non-nil, is called once per pixel to add a perturbation (e.g. a seeded
// Gaussian generator); pass nil for a noise-free image.
func GaussianBlobImage(width, height int, background float64, blobs []Blob, noiseFunc func(x, y int) float64) *frame.ImageF64 {
	im := frame.NewImageF64(width, height, 0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := background
			for _, b := range blobs {
				sigma := b.FWHM / 2.3548200450309493 // FWHM = 2*sqrt(2*ln2)*sigma
				dx := float64(x) + 0.5 - b.X
				dy := float64(y) + 0.5 - b.Y
				v += b.Amplitude * math.Exp(-(dx*dx+dy*dy)/(2*sigma*sigma))
			}
			if noiseFunc != nil {
				v += noiseFunc(x, y)
			}
			im.Set(x, y, v)
		}
	}
	return im
}

// Blob describes one synthetic Gaussian point source. X and Y are continuous
// image coordinates in which pixel (x, y) has its centre at (x+0.5, y+0.5).
type Blob struct {
	X, Y      float64
	FWHM      float64
	Amplitude float64
}
