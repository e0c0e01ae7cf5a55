package clip

import (
	"bytes"
	"testing"

	"github.com/starwatch-station/asteria/internal/asteria/frame"
)

func TestPGMRoundTrip(t *testing.T) {
	samples := []byte{1, 2, 3, 4, 5, 6}
	f, err := frame.NewFrame(3, 2, samples, 1_520_980_061_891_000, frame.InterlacedTopFirst)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}

	var buf bytes.Buffer
	if err := WritePGM(&buf, f); err != nil {
		t.Fatalf("WritePGM: %v", err)
	}

	got, err := ReadPGM(&buf)
	if err != nil {
		t.Fatalf("ReadPGM: %v", err)
	}
	if got.Width != f.Width || got.Height != f.Height {
		t.Fatalf("geometry = %dx%d, want %dx%d", got.Width, got.Height, f.Width, f.Height)
	}
	if got.EpochMicros != f.EpochMicros {
		t.Errorf("EpochMicros = %d, want %d", got.EpochMicros, f.EpochMicros)
	}
	if got.FieldOrder != f.FieldOrder {
		t.Errorf("FieldOrder = %v, want %v", got.FieldOrder, f.FieldOrder)
	}
	if !bytes.Equal(got.Samples, f.Samples) {
		t.Errorf("Samples = %v, want %v", got.Samples, f.Samples)
	}
}

func TestPGMMissingHeadersDefaultToProgressive(t *testing.T) {
	raw := []byte("P5\n2 1\n255\n\x0a\x14")
	got, err := ReadPGM(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadPGM: %v", err)
	}
	if got.FieldOrder != frame.Progressive {
		t.Errorf("FieldOrder = %v, want Progressive", got.FieldOrder)
	}
	if got.EpochMicros != 0 {
		t.Errorf("EpochMicros = %d, want 0", got.EpochMicros)
	}
}

func TestPFMRoundTrip(t *testing.T) {
	im := frame.NewImageF64(2, 2, 42)
	im.Set(0, 0, 1.5)
	im.Set(1, 0, -2.25)
	im.Set(0, 1, 3.0)
	im.Set(1, 1, 0)

	var buf bytes.Buffer
	if err := WritePFM(&buf, im); err != nil {
		t.Fatalf("WritePFM: %v", err)
	}

	got, err := ReadPFM(&buf)
	if err != nil {
		t.Fatalf("ReadPFM: %v", err)
	}
	if got.Width != im.Width || got.Height != im.Height {
		t.Fatalf("geometry = %dx%d, want %dx%d", got.Width, got.Height, im.Width, im.Height)
	}
	for i := range im.Samples {
		if float32(got.Samples[i]) != float32(im.Samples[i]) {
			t.Errorf("Samples[%d] = %v, want %v", i, got.Samples[i], im.Samples[i])
		}
	}
}
