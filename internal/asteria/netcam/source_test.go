package netcam

import (
	"context"
	"testing"
	"time"

	"github.com/starwatch-station/asteria/internal/asteria/frame"
	"github.com/stretchr/testify/require"
)

func datagramPacket(t *testing.T, width, height int, epochMicros int64) Packet {
	t.Helper()
	f, err := frame.NewFrame(width, height, make([]byte, width*height), epochMicros, frame.Progressive)
	require.NoError(t, err)
	return Packet{Data: EncodeDatagram(f), Timestamp: time.Now()}
}

func TestFrameSourceDecodesPacketsInOrder(t *testing.T) {
	reader := NewMockPacketReader([]Packet{
		datagramPacket(t, 4, 4, 100),
		datagramPacket(t, 4, 4, 200),
	})
	src := NewFrameSource(reader, 40*time.Millisecond)
	defer src.Close()

	ctx := context.Background()
	f1, ok, err := src.NextFrame(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(100), f1.EpochMicros)

	f2, ok, err := src.NextFrame(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(200), f2.EpochMicros)

	require.Equal(t, 4, src.Width())
	require.Equal(t, 4, src.Height())
}

func TestFrameSourceTimesOutWithNoPackets(t *testing.T) {
	reader := NewMockPacketReader(nil)
	src := NewFrameSource(reader, 40*time.Millisecond)
	defer src.Close()

	_, ok, err := src.NextFrame(context.Background(), 20*time.Millisecond)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFrameSourceSkipsMalformedDatagrams(t *testing.T) {
	reader := NewMockPacketReader([]Packet{
		{Data: []byte{1, 2, 3}},
		datagramPacket(t, 2, 2, 500),
	})
	src := NewFrameSource(reader, 40*time.Millisecond)
	defer src.Close()

	f, ok, err := src.NextFrame(context.Background(), time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(500), f.EpochMicros)
}
