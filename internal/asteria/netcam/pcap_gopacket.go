//go:build pcap
// +build pcap

package netcam

import (
	"fmt"
	"io"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

// PCAPReader replays camera datagrams captured to a PCAP file, decoding
// the UDP payload from each packet via gopacket. Grounded directly on
// internal/lidar/network/pcap.go's BPF-filtered gopacket.NewPacketSource
// loop.
type PCAPReader struct {
	handle *pcap.Handle
	source *gopacket.PacketSource
}

// OpenPCAPFile opens path for offline replay, restricting decode to UDP
// datagrams on udpPort via a BPF filter.
func OpenPCAPFile(path string, udpPort int) (*PCAPReader, error) {
	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return nil, fmt.Errorf("netcam: open pcap file %s: %w", path, err)
	}
	filter := fmt.Sprintf("udp port %d", udpPort)
	if err := handle.SetBPFFilter(filter); err != nil {
		handle.Close()
		return nil, fmt.Errorf("netcam: set BPF filter %q: %w", filter, err)
	}
	diagf("pcap replay: BPF filter set: %s", filter)
	return &PCAPReader{
		handle: handle,
		source: gopacket.NewPacketSource(handle, handle.LinkType()),
	}, nil
}

// NextPacket decodes packets from the capture file until it finds one
// carrying a non-empty UDP payload, returning io.EOF at end of file.
func (r *PCAPReader) NextPacket() (*Packet, error) {
	for {
		packet, err := r.source.NextPacket()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("netcam: decode pcap packet: %w", err)
		}
		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp, ok := udpLayer.(*layers.UDP)
		if !ok || len(udp.Payload) == 0 {
			continue
		}
		return &Packet{Data: udp.Payload, Timestamp: packet.Metadata().Timestamp}, nil
	}
}

// Close releases the underlying PCAP handle.
func (r *PCAPReader) Close() error {
	r.handle.Close()
	return nil
}
