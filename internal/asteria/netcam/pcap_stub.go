//go:build !pcap
// +build !pcap

package netcam

import "fmt"

// PCAPReader is unavailable in builds without the pcap build tag (no
// libpcap dependency pulled in). Mirrors
// internal/lidar/network/pcap_stub.go's stub-build pattern.
type PCAPReader struct{}

// OpenPCAPFile always fails: rebuild with -tags pcap for PCAP replay.
func OpenPCAPFile(path string, udpPort int) (*PCAPReader, error) {
	return nil, fmt.Errorf("netcam: built without pcap support; rebuild with -tags pcap to replay %s", path)
}

// NextPacket always fails; PCAPReader is never constructed in this build.
func (r *PCAPReader) NextPacket() (*Packet, error) {
	return nil, fmt.Errorf("netcam: built without pcap support")
}

// Close is a no-op.
func (r *PCAPReader) Close() error { return nil }
