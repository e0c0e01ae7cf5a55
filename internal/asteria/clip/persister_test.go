package clip

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starwatch-station/asteria/internal/asteria/frame"
)

func makeTestClip(t *testing.T, epochMicros int64) *Clip {
	t.Helper()
	f1, err := frame.NewFrame(2, 2, []byte{1, 2, 3, 4}, epochMicros, frame.Progressive)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	f2, err := frame.NewFrame(2, 2, []byte{5, 6, 7, 8}, epochMicros+1000, frame.Progressive)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	return &Clip{
		Frames: []*frame.Frame{f1, f2},
		Measurements: []LocationMeasurement{
			{EpochMicros: epochMicros, Success: true, XMin: 0, XMax: 1, YMin: 0, YMax: 1, CX: 0.5, CY: 0.5},
			{EpochMicros: epochMicros + 1000, Success: false},
		},
	}
}

func TestPersisterWritesDateShardedTreeAndNotifies(t *testing.T) {
	root := t.TempDir()
	p := NewPersister(root, 1)

	// 2018-03-13T22:27:41.891Z, matching the scenario E6 date-sharding epoch.
	epoch := int64(1_520_980_061_891_000)
	c := makeTestClip(t, epoch)

	result, err := p.Persist(c)
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}

	wantRootPrefix := filepath.Join(root, "2018", "03", "13")
	if filepath.Dir(result.Root) != wantRootPrefix {
		t.Errorf("Root = %s, want under %s", result.Root, wantRootPrefix)
	}
	if result.ID != "2018-03-13T22:27:41.891Z" {
		t.Errorf("ID = %s, want the clip's literal UTC string", result.ID)
	}

	for _, want := range []string{
		filepath.Join(result.Root, "raw", "2018-03-13T22:27:41.891Z.pgm"),
		filepath.Join(result.Root, "raw", "2018-03-13T22:27:41.892Z.pgm"),
		filepath.Join(result.Root, "processed", "peakhold.pgm"),
		filepath.Join(result.Root, "processed", "peakhold.jpg"),
		filepath.Join(result.Root, "processed", "localisation.xml"),
	} {
		if _, err := os.Stat(want); err != nil {
			t.Errorf("expected file %s: %v", want, err)
		}
	}

	select {
	case notified := <-p.Notifications:
		if notified.ID != result.ID {
			t.Errorf("notification ID = %s, want %s", notified.ID, result.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a notification after successful persist")
	}
}

func TestPersisterRejectsInvalidClip(t *testing.T) {
	root := t.TempDir()
	p := NewPersister(root, 1)

	f1, _ := frame.NewFrame(2, 2, []byte{1, 2, 3, 4}, 100, frame.Progressive)
	f2, _ := frame.NewFrame(2, 2, []byte{5, 6, 7, 8}, 50, frame.Progressive) // out of order
	c := &Clip{Frames: []*frame.Frame{f1, f2}}

	if _, err := p.Persist(c); err == nil {
		t.Fatal("expected error for non-increasing frame epochs")
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no partial output on rejected clip, found %v", entries)
	}
}
