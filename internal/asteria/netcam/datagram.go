// Package netcam implements a frame.Source that reads all-sky camera
// frames over the network instead of V4L2 (out of scope per spec §1):
// either a live UDP stream of fixed-header datagrams, or offline PCAP
// replay of a capture file (SPEC_FULL.md §12). Grounded on
// internal/lidar/network/pcap.go's BPF-filtered capture loop and
// pcap_interface.go's reader-abstraction/mock-for-testing pattern.
package netcam

import (
	"encoding/binary"
	"fmt"

	"github.com/starwatch-station/asteria/internal/asteria/frame"
)

// datagramHeaderSize is the fixed-size header preceding every frame's raw
// grayscale payload: epoch (int64), width (uint32), height (uint32),
// field order (uint8), 3 bytes padding, 20 bytes in all.
const datagramHeaderSize = 8 + 4 + 4 + 1 + 3

// EncodeDatagram serializes a frame into the wire format netcam reads, for
// use by test fixtures and by a camera-side forwarder.
func EncodeDatagram(f *frame.Frame) []byte {
	buf := make([]byte, datagramHeaderSize+len(f.Samples))
	binary.BigEndian.PutUint64(buf[0:8], uint64(f.EpochMicros))
	binary.BigEndian.PutUint32(buf[8:12], uint32(f.Width))
	binary.BigEndian.PutUint32(buf[12:16], uint32(f.Height))
	buf[16] = byte(f.FieldOrder)
	copy(buf[datagramHeaderSize:], f.Samples)
	return buf
}

// DecodeDatagram parses the wire format EncodeDatagram produces back into
// a frame.Frame, rejecting payloads whose declared dimensions don't match
// the number of sample bytes present.
func DecodeDatagram(payload []byte) (*frame.Frame, error) {
	if len(payload) < datagramHeaderSize {
		return nil, fmt.Errorf("datagram too short: %d bytes, want at least %d", len(payload), datagramHeaderSize)
	}
	epochMicros := int64(binary.BigEndian.Uint64(payload[0:8]))
	width := int(binary.BigEndian.Uint32(payload[8:12]))
	height := int(binary.BigEndian.Uint32(payload[12:16]))
	fieldOrder := frame.FieldOrder(payload[16])

	return frame.NewFrame(width, height, payload[datagramHeaderSize:], epochMicros, fieldOrder)
}
