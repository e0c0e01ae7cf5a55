package netcam

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/starwatch-station/asteria/internal/asteria/frame"
)

// FrameSource adapts a PacketReader (live UDP or PCAP replay) into a
// frame.Source, decoding each datagram with DecodeDatagram. It satisfies
// the FrameSource collaborator contract of spec §6: NextFrame blocks at
// most timeout, and geometry/field-order are fixed from the first frame
// decoded.
type FrameSource struct {
	reader             PacketReader
	nominalFramePeriod time.Duration

	mu          sync.Mutex
	width       int
	height      int
	fieldOrder  frame.FieldOrder
	geometrySet bool

	frames chan *frame.Frame
	errs   chan error
	done   chan struct{}
	once   sync.Once
}

// NewFrameSource starts a background goroutine pulling datagrams from
// reader and decoding them into frames, buffering up to one frame so a
// slow consumer does not block the network read loop indefinitely.
func NewFrameSource(reader PacketReader, nominalFramePeriod time.Duration) *FrameSource {
	s := &FrameSource{
		reader:             reader,
		nominalFramePeriod: nominalFramePeriod,
		frames:             make(chan *frame.Frame, 1),
		errs:               make(chan error, 1),
		done:               make(chan struct{}),
	}
	go s.pump()
	return s
}

func (s *FrameSource) pump() {
	for {
		pkt, err := s.reader.NextPacket()
		if err != nil {
			if err == io.EOF {
				diagf("packet reader exhausted")
			} else {
				opsf("packet read failed: %v", err)
			}
			close(s.errs)
			return
		}
		f, err := DecodeDatagram(pkt.Data)
		if err != nil {
			opsf("malformed datagram dropped: %v", err)
			continue
		}

		s.mu.Lock()
		if !s.geometrySet {
			s.width, s.height, s.fieldOrder = f.Width, f.Height, f.FieldOrder
			s.geometrySet = true
		}
		s.mu.Unlock()

		select {
		case s.frames <- f:
		case <-s.done:
			return
		}
	}
}

// NextFrame returns the next decoded frame, or (nil, false, nil) if
// timeout elapses first, or (nil, false, err) once the source is closed or
// ctx is done. A packet-reader failure or the end of a replay is not
// reported here: no further frames arrive and NextFrame keeps timing out.
func (s *FrameSource) NextFrame(ctx context.Context, timeout time.Duration) (*frame.Frame, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case f := <-s.frames:
		return f, true, nil
	case <-timer.C:
		return nil, false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case <-s.done:
		return nil, false, fmt.Errorf("netcam: frame source closed")
	}
}

// NominalFramePeriod returns the configured expected inter-frame interval.
func (s *FrameSource) NominalFramePeriod() time.Duration { return s.nominalFramePeriod }

// Width returns the frame width learned from the first decoded datagram.
func (s *FrameSource) Width() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width
}

// Height returns the frame height learned from the first decoded datagram.
func (s *FrameSource) Height() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.height
}

// FieldOrder returns the field order learned from the first decoded datagram.
func (s *FrameSource) FieldOrder() frame.FieldOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fieldOrder
}

// Close stops the pump goroutine and closes the underlying reader.
func (s *FrameSource) Close() error {
	s.once.Do(func() { close(s.done) })
	return s.reader.Close()
}
