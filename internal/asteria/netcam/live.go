package netcam

import (
	"fmt"
	"net"
	"time"
)

// pollInterval bounds how long a blocked UDP read can delay reacting to a
// Close call, matching cmd/lidar/lidar.go's 1-second read-deadline loop.
const pollInterval = 1 * time.Second

// maxDatagramSize is sized for a VGA-class all-sky camera frame
// (640x480 plus the datagram header) with headroom for larger sensors.
const maxDatagramSize = 4 * 1024 * 1024

// LiveReader reads camera frame datagrams from a UDP socket. It implements
// PacketReader with a read-deadline poll loop instead of blocking
// indefinitely, so Close always takes effect within pollInterval.
type LiveReader struct {
	conn   *net.UDPConn
	buffer []byte
}

// ListenUDP opens a UDP socket on address and returns a LiveReader.
func ListenUDP(address string) (*LiveReader, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("netcam: resolve %q: %w", address, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("netcam: listen %q: %w", address, err)
	}
	diagf("listening for camera datagrams on %s", address)
	return &LiveReader{conn: conn, buffer: make([]byte, maxDatagramSize)}, nil
}

// NextPacket blocks until a datagram arrives, re-polling the read deadline
// so a concurrent Close is observed promptly.
func (r *LiveReader) NextPacket() (*Packet, error) {
	for {
		if err := r.conn.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
			return nil, fmt.Errorf("netcam: set read deadline: %w", err)
		}
		n, _, err := r.conn.ReadFromUDP(r.buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			return nil, fmt.Errorf("netcam: read: %w", err)
		}
		data := make([]byte, n)
		copy(data, r.buffer[:n])
		return &Packet{Data: data, Timestamp: time.Now().UTC()}, nil
	}
}

// Close closes the underlying socket, unblocking any in-flight read within
// pollInterval.
func (r *LiveReader) Close() error {
	return r.conn.Close()
}
