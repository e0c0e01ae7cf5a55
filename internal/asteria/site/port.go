// Package site reads a GPS/time-reference serial device and publishes the
// latest parsed longitude/latitude/altitude and fix time through
// Reader.Latest, grounded on internal/serialmux/port.go's
// SerialPorter abstraction (an io.ReadWriter + io.Closer interface that
// lets the rest of the package stay hardware-free in tests).
package site

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// Port is the minimal interface site needs from a serial device,
// matching internal/serialmux/port.go's SerialPorter exactly so a GPS
// receiver can be driven through the same abstraction the teacher uses
// for its radar sensors.
type Port interface {
	io.ReadWriter
	io.Closer
}

// DefaultBaudRate matches common NMEA-output GPS receivers (u-blox and
// similar modules ship at 9600 8N1 by default).
const DefaultBaudRate = 9600

// OpenPort opens a real serial device at path for NMEA output, using
// go.bug.st/serial the same way internal/serialmux/factory.go's
// NewRealSerialMux does.
func OpenPort(path string) (Port, error) {
	mode := &serial.Mode{
		BaudRate: DefaultBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("site: open serial port %s: %w", path, err)
	}
	return port, nil
}
