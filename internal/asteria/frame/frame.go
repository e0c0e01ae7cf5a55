// Package frame defines the immutable frame and image types that flow
// through the acquisition, detection, and calibration pipelines.
package frame

import (
	"context"
	"fmt"
	"time"
)

// FieldOrder records which half-raster of an interlaced frame was
// transmitted first. It is cosmetic: it affects metadata and display only,
// never detection or calibration arithmetic.
type FieldOrder int

const (
	// Progressive indicates a non-interlaced capture.
	Progressive FieldOrder = iota
	// InterlacedTopFirst indicates the top field was captured first.
	InterlacedTopFirst
	// InterlacedBottomFirst indicates the bottom field was captured first.
	InterlacedBottomFirst
	// Interlaced indicates an interlaced capture of unknown field order.
	Interlaced
)

// String renders the field order the way it appears in PGM comment headers.
func (f FieldOrder) String() string {
	switch f {
	case Progressive:
		return "progressive"
	case InterlacedTopFirst:
		return "interlaced-top-first"
	case InterlacedBottomFirst:
		return "interlaced-bottom-first"
	case Interlaced:
		return "interlaced"
	default:
		return "unknown"
	}
}

// ParseFieldOrder is the inverse of FieldOrder.String. Unrecognized values
// fall back to Progressive, matching the tolerant-read contract for clip
// metadata described in spec §6.
func ParseFieldOrder(s string) FieldOrder {
	switch s {
	case "interlaced-top-first":
		return InterlacedTopFirst
	case "interlaced-bottom-first":
		return InterlacedBottomFirst
	case "interlaced":
		return Interlaced
	default:
		return Progressive
	}
}

// Frame is a single immutable monochrome capture. Once constructed, a Frame
// is never mutated; it is shared read-only across the pipeline via ordinary
// Go slice/pointer sharing (the runtime's GC plays the role of the
// reference-counted ownership described in spec §3 — the frame is kept
// alive for as long as any Clip or ring buffer entry still references it).
type Frame struct {
	Width, Height int
	// Samples is a row-major raster of Width*Height bytes in [0,255].
	Samples []byte
	// EpochMicros is the monotonic capture time in microseconds since
	// 1970-01-01T00:00:00Z (spec §4.8).
	EpochMicros int64
	FieldOrder  FieldOrder
}

// NewFrame validates geometry and returns a Frame wrapping samples without
// copying. Callers must not mutate samples afterwards.
func NewFrame(width, height int, samples []byte, epochMicros int64, fo FieldOrder) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("frame: invalid geometry %dx%d", width, height)
	}
	if len(samples) != width*height {
		return nil, fmt.Errorf("frame: sample count %d does not match %dx%d", len(samples), width, height)
	}
	return &Frame{Width: width, Height: height, Samples: samples, EpochMicros: epochMicros, FieldOrder: fo}, nil
}

// At returns the sample at (x, y).
func (f *Frame) At(x, y int) byte {
	return f.Samples[y*f.Width+x]
}

// Epoch converts EpochMicros to a time.Time in UTC.
func (f *Frame) Epoch() time.Time {
	return EpochToTime(f.EpochMicros)
}

// EpochToTime converts an epoch in microseconds since the Unix epoch to UTC.
func EpochToTime(epochMicros int64) time.Time {
	sec := epochMicros / 1_000_000
	usec := epochMicros % 1_000_000
	if usec < 0 {
		sec--
		usec += 1_000_000
	}
	return time.Unix(sec, usec*1000).UTC()
}

// TimeToEpoch converts a UTC time.Time to microseconds since the Unix epoch.
func TimeToEpoch(t time.Time) int64 {
	return t.Unix()*1_000_000 + int64(t.Nanosecond())/1000
}

// utcFormat is the literal UTC string format spec §4.4/§4.8/§6 require for
// clip directory IDs and per-frame filenames (E6: "2018-03-13T22:27:41.891Z").
const utcFormat = "2006-01-02T15:04:05.000Z"

// EpochToUTC renders epochMicros as the millisecond-precision UTC string
// used to name clip/calibration directories and raw frame files.
func EpochToUTC(epochMicros int64) string {
	return EpochToTime(epochMicros).Format(utcFormat)
}

// UTCToEpoch parses a string previously produced by EpochToUTC back into
// microseconds since the Unix epoch.
func UTCToEpoch(s string) (int64, error) {
	t, err := time.Parse(utcFormat, s)
	if err != nil {
		return 0, fmt.Errorf("frame: parsing UTC string %q: %w", s, err)
	}
	return TimeToEpoch(t), nil
}

// ImageF64 carries the same geometry as Frame but with float64 samples. It
// is used for the signal/background/noise products computed by the
// calibration engine (spec §3).
type ImageF64 struct {
	Width, Height int
	Samples       []float64
	EpochMicros   int64
}

// NewImageF64 allocates a zeroed ImageF64 of the given geometry.
func NewImageF64(width, height int, epochMicros int64) *ImageF64 {
	return &ImageF64{Width: width, Height: height, Samples: make([]float64, width*height), EpochMicros: epochMicros}
}

// At returns the sample at (x, y).
func (im *ImageF64) At(x, y int) float64 {
	return im.Samples[y*im.Width+x]
}

// Set stores a sample at (x, y).
func (im *ImageF64) Set(x, y int, v float64) {
	im.Samples[y*im.Width+x] = v
}

// Index converts (x, y) to a flat sample index.
func (im *ImageF64) Index(x, y int) int { return y*im.Width + x }

// XY converts a flat sample index back to (x, y).
func (im *ImageF64) XY(idx int) (x, y int) { return idx % im.Width, idx / im.Width }

// Source produces a steady stream of timestamped frames. It is an external
// collaborator (spec §6) — device enumeration, V4L2 ioctl plumbing, and
// similar acquisition-hardware details live outside this module. The
// interface is deliberately narrow so test doubles and the netcam package's
// network-captured implementation can satisfy it equally well.
type Source interface {
	// NextFrame returns the next frame, or (nil, false) if no frame arrived
	// before the context is done or before timeout elapses, whichever is
	// sooner. A (nil, false) return with ctx.Err() == nil means a transient
	// timeout, not shutdown.
	NextFrame(ctx context.Context, timeout time.Duration) (*Frame, bool, error)

	// NominalFramePeriod is the source's expected inter-frame interval,
	// used to compute clip_max_length_minutes in frame-count terms.
	NominalFramePeriod() time.Duration

	Width() int
	Height() int
	FieldOrder() FieldOrder
}
