package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/starwatch-station/asteria/internal/asteria/clip"
	"github.com/starwatch-station/asteria/internal/asteria/frame"
	"github.com/starwatch-station/asteria/internal/fsutil"
)

// TestReadOneFrameViaMemoryFileSystem confirms readOneFrame goes through the
// injected fsutil.FileSystem rather than the os package directly, so a
// calibration frame can be read back out of an in-memory filesystem.
func TestReadOneFrameViaMemoryFileSystem(t *testing.T) {
	want, err := frame.NewFrame(2, 2, []byte{1, 2, 3, 4}, 1_000_000, frame.Progressive)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	var buf bytes.Buffer
	if err := clip.WritePGM(&buf, want); err != nil {
		t.Fatalf("WritePGM: %v", err)
	}

	fs := fsutil.NewMemoryFileSystem()
	if err := fs.WriteFile("/frames/a.pgm", buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := readOneFrame(fs, "/frames/a.pgm")
	if err != nil {
		t.Fatalf("readOneFrame: %v", err)
	}
	if got.EpochMicros != want.EpochMicros {
		t.Errorf("EpochMicros = %d, want %d", got.EpochMicros, want.EpochMicros)
	}
}

// TestLoadFramesReadsSortedPGMFiles covers the on-disk path exercised in
// production: loadFrames lists dir with os.ReadDir and reads each file
// through the injected fsutil.FileSystem.
func TestLoadFramesReadsSortedPGMFiles(t *testing.T) {
	dir := t.TempDir()
	for i, epoch := range []int64{2_000_000, 1_000_000} {
		f, err := frame.NewFrame(2, 2, []byte{1, 2, 3, 4}, epoch, frame.Progressive)
		if err != nil {
			t.Fatalf("NewFrame: %v", err)
		}
		fh, err := os.Create(filepath.Join(dir, "f"+string(rune('0'+i))+".pgm"))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := clip.WritePGM(fh, f); err != nil {
			t.Fatalf("WritePGM: %v", err)
		}
		fh.Close()
	}

	frames, err := loadFrames(fsutil.OSFileSystem{}, dir)
	if err != nil {
		t.Fatalf("loadFrames: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("loadFrames returned %d frames, want 2", len(frames))
	}
	// Files are read in name order: f0.pgm (epoch 2s) before f1.pgm (epoch 1s).
	if frames[0].EpochMicros != 2_000_000 || frames[1].EpochMicros != 1_000_000 {
		t.Errorf("frame epochs = %d, %d, want 2000000, 1000000 (file-name order)", frames[0].EpochMicros, frames[1].EpochMicros)
	}
}
