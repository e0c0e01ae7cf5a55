package site

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// mockPort feeds a fixed NMEA transcript; Close does not block and may be
// called more than once, mirroring internal/serialmux's test doubles.
type mockPort struct {
	io.Reader
	closed chan struct{}
}

func newMockPort(transcript string) *mockPort {
	return &mockPort{Reader: strings.NewReader(transcript), closed: make(chan struct{})}
}

func (m *mockPort) Write(p []byte) (int, error) { return len(p), nil }

func (m *mockPort) Close() error {
	select {
	case <-m.closed:
	default:
		close(m.closed)
	}
	return nil
}

func TestReaderPublishesLatestFixFromTranscript(t *testing.T) {
	transcript := "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47\n" +
		"$GPGGA,123520,4807.038,N,01131.000,E,1,08,0.9,550.0,M,46.9,M,,*47\n"
	port := newMockPort(transcript)
	r := NewReader(port)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := r.Run(ctx)
	require.NoError(t, err)

	ref := r.Latest()
	require.NotNil(t, ref)
	require.InDelta(t, 550.0, ref.AltitudeM, 1e-6)
}

func TestReaderSkipsMalformedSentencesWithoutStopping(t *testing.T) {
	transcript := "garbage line\n" +
		"$GPGGA,123519,4807.038,N,01131.000,E,0,00,,,M,,M,,*66\n" +
		"$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A\n"
	port := newMockPort(transcript)
	r := NewReader(port)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := r.Run(ctx)
	require.NoError(t, err)

	ref := r.Latest()
	require.NotNil(t, ref)
	require.Equal(t, 1994, ref.FixUTC.Year())
}
