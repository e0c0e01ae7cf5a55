package clip

import (
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/starwatch-station/asteria/internal/asteria/frame"
	"github.com/starwatch-station/asteria/internal/security"
)

// Persisted describes a clip that has been fully and successfully written
// to disk. It is sent on the persister's notification channel only after
// every constituent file has landed, so a consumer never observes a
// partially-written directory (spec §4.4).
type Persisted struct {
	ID   string
	Root string
}

// Persister writes clips atomically to a date-sharded directory tree rooted
// at RootDir: RootDir/YYYY/MM/DD/<clip-id>/{raw,processed}/.... A clip only
// becomes visible to readers of Notifications once every file for it has
// been written; a failure mid-write never advertises the clip at all.
type Persister struct {
	RootDir       string
	Notifications chan Persisted
}

// NewPersister returns a Persister rooted at rootDir. bufSize bounds the
// notification channel; callers that cannot keep up will block the
// persister's next Persist call once it fills (this channel carries one
// small struct per clip, so blocking the persister here is cheap relative
// to the file I/O it already performs).
func NewPersister(rootDir string, bufSize int) *Persister {
	return &Persister{RootDir: rootDir, Notifications: make(chan Persisted, bufSize)}
}

// Persist writes c to a new date-sharded subtree of p.RootDir and, only on
// complete success, advertises it on p.Notifications. The clip directory is
// named by c.Frames[0]'s capture epoch, matching scenario E6 in spec §8.
func (p *Persister) Persist(c *Clip) (Persisted, error) {
	if err := c.Validate(); err != nil {
		return Persisted{}, fmt.Errorf("clip: refusing to persist invalid clip: %w", err)
	}
	if len(c.Frames) == 0 {
		return Persisted{}, fmt.Errorf("clip: refusing to persist empty clip")
	}

	start := c.Frames[0].Epoch()
	clipID := frame.EpochToUTC(c.Frames[0].EpochMicros)
	root := filepath.Join(p.RootDir,
		fmt.Sprintf("%04d", start.Year()),
		fmt.Sprintf("%02d", int(start.Month())),
		fmt.Sprintf("%02d", start.Day()),
		clipID,
	)
	if err := security.ValidatePathWithinDirectory(root, p.RootDir); err != nil {
		return Persisted{}, fmt.Errorf("clip: refusing to write outside RootDir: %w", err)
	}

	if err := p.writeAll(c, root); err != nil {
		opsf("persist failed for clip %s: %v", clipID, err)
		return Persisted{}, err
	}

	diagf("persisted clip %s (%d frames) to %s", clipID, len(c.Frames), root)
	result := Persisted{ID: clipID, Root: root}
	p.Notifications <- result
	return result, nil
}

func (p *Persister) writeAll(c *Clip, root string) error {
	rawDir := filepath.Join(root, "raw")
	processedDir := filepath.Join(root, "processed")
	if err := os.MkdirAll(rawDir, 0o755); err != nil {
		return fmt.Errorf("clip: creating raw dir: %w", err)
	}
	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		return fmt.Errorf("clip: creating processed dir: %w", err)
	}

	for i, f := range c.Frames {
		name := frame.EpochToUTC(f.EpochMicros) + ".pgm"
		if err := writeFileAtomic(filepath.Join(rawDir, name), func(w *os.File) error {
			return WritePGM(w, f)
		}); err != nil {
			return fmt.Errorf("clip: writing %s: %w", name, err)
		}
		tracef("wrote raw frame %d/%d", i+1, len(c.Frames))
	}

	peakHold := c.PeakHold
	if peakHold == nil {
		var err error
		peakHold, err = ComputePeakHold(c.Frames)
		if err != nil {
			return fmt.Errorf("clip: computing peak-hold: %w", err)
		}
	}
	if err := writeFileAtomic(filepath.Join(processedDir, "peakhold.pgm"), func(w *os.File) error {
		return WritePGM(w, peakHold)
	}); err != nil {
		return fmt.Errorf("clip: writing peakhold.pgm: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(processedDir, "peakhold.jpg"), func(w *os.File) error {
		return encodePeakHoldJPEG(w, peakHold)
	}); err != nil {
		return fmt.Errorf("clip: writing peakhold.jpg: %w", err)
	}

	if err := writeFileAtomic(filepath.Join(processedDir, "localisation.xml"), func(w *os.File) error {
		return WriteLocalisationXML(w, c.Measurements)
	}); err != nil {
		return fmt.Errorf("clip: writing localisation.xml: %w", err)
	}

	return nil
}

// writeFileAtomic writes via a temp file in the same directory followed by
// an os.Rename, so a crash mid-write never leaves a half-written file at
// the final path.
func writeFileAtomic(path string, write func(*os.File) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-"+uuid.NewString())
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if werr := write(tmp); werr != nil {
		tmp.Close()
		return werr
	}
	if cerr := tmp.Close(); cerr != nil {
		return cerr
	}
	return os.Rename(tmpName, path)
}

func encodePeakHoldJPEG(w *os.File, f *frame.Frame) error {
	img := frameToGray(f)
	return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
}
