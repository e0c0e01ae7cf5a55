// Package acquisition drives the real-time capture → detection → clip
// pipeline (spec §4.1): it owns the pre-trigger ring buffer, classifies
// each incoming frame with the detector package, and hands finished clips
// to a clip.Persister while publishing every frame to an optional
// best-effort live-view sink.
package acquisition

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/starwatch-station/asteria/internal/asteria/clip"
	"github.com/starwatch-station/asteria/internal/asteria/detector"
	"github.com/starwatch-station/asteria/internal/asteria/frame"
	"github.com/starwatch-station/asteria/internal/asteria/ring"
)

// State is one of the acquisition worker's finite states.
type State int

const (
	Detecting State = iota
	Recording
	Idle
)

func (s State) String() string {
	switch s {
	case Detecting:
		return "detecting"
	case Recording:
		return "recording"
	case Idle:
		return "idle"
	default:
		return "unknown"
	}
}

// Params configures one run of the pipeline (spec §4.1).
type Params struct {
	DetectionHead            int
	DetectionTail            int
	PixelDifferenceThreshold int
	NChangedPixelsForTrigger int
	ClipMaxLengthMinutes     float64
}

// Stats is the observable counters record required by spec §7: no error
// category may silently lose data, so every drop or skip increments one of
// these fields.
type Stats struct {
	FramesCaptured  atomic.Uint64
	FramesDropped   atomic.Uint64
	LiveViewDropped atomic.Uint64
	ClipsPersisted  atomic.Uint64
	ClipsAbandoned  atomic.Uint64
	TransientErrors atomic.Uint64
}

// Pipeline owns the pre-trigger ring buffer and the acquisition state
// machine. It is driven by a single goroutine via Run; all mutable state
// below is touched only from that goroutine (spec §5).
type Pipeline struct {
	Source    frame.Source
	Params    Params
	Persister *clip.Persister

	// LiveView is best-effort: a full channel causes the frame to be
	// dropped rather than block capture (spec §4.1, §5).
	LiveView chan *frame.Frame

	Stats *Stats

	preTrigger *ring.Buffer[*frame.Frame]
	state      State
	eventBuf   []*frame.Frame
	prevFrame  *frame.Frame

	framesSinceLastTrigger int
	recordedFrames         int
}

// NewPipeline constructs a Pipeline. liveViewBufSize bounds the best-effort
// live-view channel.
func NewPipeline(src frame.Source, p Params, persister *clip.Persister, liveViewBufSize int) *Pipeline {
	return &Pipeline{
		Source:     src,
		Params:     p,
		Persister:  persister,
		LiveView:   make(chan *frame.Frame, liveViewBufSize),
		Stats:      &Stats{},
		preTrigger: ring.New[*frame.Frame](p.DetectionHead),
		state:      Detecting,
	}
}

// State returns the current FSM state. Safe to call only from the Run
// goroutine, or after Run has returned.
func (p *Pipeline) State() State { return p.state }

// maxRecordedFrames converts clip_max_length_minutes into a frame count
// using the source's nominal frame period.
func (p *Pipeline) maxRecordedFrames() int {
	if p.Params.ClipMaxLengthMinutes <= 0 {
		return 0
	}
	period := p.Source.NominalFramePeriod()
	if period <= 0 {
		return 0
	}
	fps := float64(time.Second) / float64(period)
	return int(p.Params.ClipMaxLengthMinutes * fps * 60)
}

// Run executes the acquisition loop until ctx is done or shutdown reports
// true, polled once per iteration (spec §5). Any in-progress clip is
// flushed before returning.
func (p *Pipeline) Run(ctx context.Context, shutdown *atomic.Bool, frameTimeout time.Duration) error {
	for {
		if shutdown != nil && shutdown.Load() {
			p.flushIfRecording()
			diagf("shutdown requested, worker exiting in state %s", p.state)
			return nil
		}
		select {
		case <-ctx.Done():
			p.flushIfRecording()
			return ctx.Err()
		default:
		}

		f, ok, err := p.Source.NextFrame(ctx, frameTimeout)
		if err != nil {
			if ctx.Err() != nil {
				p.flushIfRecording()
				return err
			}
			p.Stats.TransientErrors.Add(1)
			opsf("frame source transient error: %v", err)
			continue
		}
		if !ok {
			// Plain timeout: no frame arrived this period. Not an error.
			continue
		}

		p.Stats.FramesCaptured.Add(1)
		p.publishLiveView(f)
		p.step(f)
	}
}

func (p *Pipeline) publishLiveView(f *frame.Frame) {
	select {
	case p.LiveView <- f:
	default:
		p.Stats.LiveViewDropped.Add(1)
		tracef("live view full, dropped frame at epoch %d", f.EpochMicros)
	}
}

// step advances the state machine by exactly one captured frame.
func (p *Pipeline) step(f *frame.Frame) {
	switch p.state {
	case Idle:
		p.prevFrame = f
	case Detecting:
		p.stepDetecting(f)
	case Recording:
		p.stepRecording(f)
	}
}

func (p *Pipeline) stepDetecting(f *frame.Frame) {
	triggered := p.compareTriggered(p.prevFrame, f)
	p.prevFrame = f
	if !triggered {
		p.preTrigger.Push(f)
		return
	}

	pretrig := p.preTrigger.Unroll()
	p.preTrigger.Push(f)
	p.eventBuf = make([]*frame.Frame, 0, len(pretrig)+1)
	p.eventBuf = append(p.eventBuf, pretrig...)
	p.eventBuf = append(p.eventBuf, f)

	p.framesSinceLastTrigger = 0
	p.recordedFrames = len(pretrig) + 1
	p.state = Recording
	diagf("trigger detected, entering recording with %d pre-trigger frames", len(pretrig))
}

func (p *Pipeline) stepRecording(f *frame.Frame) {
	p.eventBuf = append(p.eventBuf, f)
	p.preTrigger.Push(f)

	triggered := p.compareTriggered(p.prevFrame, f)
	p.prevFrame = f
	p.recordedFrames++
	if triggered {
		p.framesSinceLastTrigger = 0
	} else {
		p.framesSinceLastTrigger++
	}

	maxFrames := p.maxRecordedFrames()
	shouldFlush := p.framesSinceLastTrigger >= p.Params.DetectionTail
	if maxFrames > 0 && p.recordedFrames >= maxFrames {
		shouldFlush = true
	}
	if shouldFlush {
		p.flush()
		p.state = Detecting
	}
}

func (p *Pipeline) compareTriggered(prev, cur *frame.Frame) bool {
	if prev == nil {
		return false
	}
	res, err := detector.Compare(prev, cur, detector.Params{
		PixelDifferenceThreshold: p.Params.PixelDifferenceThreshold,
		NChangedPixelsForTrigger: p.Params.NChangedPixelsForTrigger,
	})
	if err != nil {
		opsf("detector comparison failed: %v", err)
		return false
	}
	return res.Trigger
}

func (p *Pipeline) flushIfRecording() {
	if p.state == Recording {
		p.flush()
		p.state = Detecting
	}
}

// flush hands the accumulated event buffer off to the persister as a Clip.
// The ring buffer is deliberately left intact: its tail frames remain
// available as pre-trigger context for the next event (spec §4.1).
func (p *Pipeline) flush() {
	frames := p.eventBuf
	p.eventBuf = nil
	if len(frames) == 0 {
		return
	}

	c := &clip.Clip{Frames: frames}
	peakHold, err := clip.ComputePeakHold(frames)
	if err != nil {
		p.Stats.ClipsAbandoned.Add(1)
		opsf("peak-hold computation failed, abandoning clip: %v", err)
		return
	}
	c.PeakHold = peakHold

	if p.Persister == nil {
		p.Stats.ClipsAbandoned.Add(1)
		opsf("no persister configured, abandoning clip of %d frames", len(frames))
		return
	}
	if _, err := p.Persister.Persist(c); err != nil {
		p.Stats.ClipsAbandoned.Add(1)
		opsf("clip persistence failed: %v", err)
		return
	}
	p.Stats.ClipsPersisted.Add(1)
}
