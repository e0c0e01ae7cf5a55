package calib

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/starwatch-station/asteria/internal/asteria/camera"
	"github.com/starwatch-station/asteria/internal/asteria/clip"
	"github.com/starwatch-station/asteria/internal/asteria/frame"
	"github.com/starwatch-station/asteria/internal/asteria/lmfit"
	"github.com/starwatch-station/asteria/internal/security"
)

// Persisted describes a calibration run that has been fully and
// successfully written to disk, mirroring clip.Persisted.
type Persisted struct {
	ID   string
	Root string
}

// Persister writes a calibration run atomically to a date-sharded
// directory tree rooted at RootDir: RootDir/YYYY/MM/DD/<run-id>/{
// calibration.xml, signal.pfm, background.pfm, noise.pfm} (spec §6's
// Calibration directory layout). Grounded on clip/persister.go's
// date-sharded, write-then-rename Persister.
type Persister struct {
	RootDir string
}

// NewPersister returns a Persister rooted at rootDir.
func NewPersister(rootDir string) *Persister {
	return &Persister{RootDir: rootDir}
}

// Persist writes inv to a new date-sharded subtree of p.RootDir, keyed by
// the epoch of the calibration frames that produced it.
func (p *Persister) Persist(inv Inventory) (Persisted, error) {
	start := frame.EpochToTime(inv.EpochMicros)
	runID := frame.EpochToUTC(inv.EpochMicros)
	root := filepath.Join(p.RootDir,
		fmt.Sprintf("%04d", start.Year()),
		fmt.Sprintf("%02d", int(start.Month())),
		fmt.Sprintf("%02d", start.Day()),
		runID,
	)
	if err := security.ValidatePathWithinDirectory(root, p.RootDir); err != nil {
		return Persisted{}, fmt.Errorf("calib: refusing to write outside RootDir: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return Persisted{}, fmt.Errorf("calib: creating run dir: %w", err)
	}

	if err := writeAtomic(filepath.Join(root, "signal.pfm"), func(w *os.File) error {
		return clip.WritePFM(w, inv.Signal)
	}); err != nil {
		return Persisted{}, fmt.Errorf("calib: writing signal.pfm: %w", err)
	}
	if err := writeAtomic(filepath.Join(root, "background.pfm"), func(w *os.File) error {
		return clip.WritePFM(w, inv.Background)
	}); err != nil {
		return Persisted{}, fmt.Errorf("calib: writing background.pfm: %w", err)
	}
	if err := writeAtomic(filepath.Join(root, "noise.pfm"), func(w *os.File) error {
		return clip.WritePFM(w, inv.Noise)
	}); err != nil {
		return Persisted{}, fmt.Errorf("calib: writing noise.pfm: %w", err)
	}
	if err := writeAtomic(filepath.Join(root, "calibration.xml"), func(w *os.File) error {
		return WriteCalibrationXML(w, inv)
	}); err != nil {
		return Persisted{}, fmt.Errorf("calib: writing calibration.xml: %w", err)
	}

	diagf("persisted calibration run %s (%d matches, chi-square %g) to %s", runID, len(inv.Matches), inv.FitResult.ChiSquare, root)
	return Persisted{ID: runID, Root: root}, nil
}

func writeAtomic(path string, write func(*os.File) error) (err error) {
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

// calibrationXML is the on-disk schema for calibration.xml: the camera
// model's type tag and parameter vector, the SEZ-to-CAM orientation
// quaternion, the site position used for the fit, and the fit diagnostics,
// named so a later run can reconstruct an Inventory to refine further.
type calibrationXML struct {
	XMLName      xml.Name  `xml:"calibration"`
	EpochTimeUs  int64     `xml:"epochTimeUs"`
	CameraModel  string    `xml:"camera_model"`
	Parameters   []float64 `xml:"parameters>value"`
	QuatW        float64   `xml:"quaternion_sez_cam>w"`
	QuatX        float64   `xml:"quaternion_sez_cam>x"`
	QuatY        float64   `xml:"quaternion_sez_cam>y"`
	QuatZ        float64   `xml:"quaternion_sez_cam>z"`
	LongitudeDeg float64   `xml:"longitude_deg"`
	LatitudeDeg  float64   `xml:"latitude_deg"`
	AltitudeM    float64   `xml:"altitude_m"`
	ReadNoiseADU float64   `xml:"read_noise_adu"`
	ChiSquare    float64   `xml:"fit>chi_square"`
	Iterations   int       `xml:"fit>iterations"`
	Converged    bool      `xml:"fit>converged"`
}

// cameraModelTag identifies which constructor rebuildCameraModel should use
// to reconstruct a camera.Model from a flat parameter vector.
func cameraModelTag(m camera.Model) string {
	switch m.(type) {
	case *camera.PinholeRadial:
		return "pinhole_radial"
	default:
		return "pinhole"
	}
}

// WriteCalibrationXML serializes inv to w in the document shape read by
// ReadCalibrationXML.
func WriteCalibrationXML(w io.Writer, inv Inventory) error {
	doc := calibrationXML{
		EpochTimeUs:  inv.EpochMicros,
		CameraModel:  cameraModelTag(inv.Camera),
		Parameters:   inv.Camera.Parameters(),
		QuatW:        inv.QuaternionSEZCam.W,
		QuatX:        inv.QuaternionSEZCam.X,
		QuatY:        inv.QuaternionSEZCam.Y,
		QuatZ:        inv.QuaternionSEZCam.Z,
		LongitudeDeg: inv.LongitudeDeg,
		LatitudeDeg:  inv.LatitudeDeg,
		AltitudeM:    inv.AltitudeM,
		ReadNoiseADU: inv.ReadNoiseADU,
		ChiSquare:    inv.FitResult.ChiSquare,
		Iterations:   inv.FitResult.Iterations,
		Converged:    inv.FitResult.Converged,
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(doc)
}

// ReadCalibrationXML parses a calibration.xml document and reconstructs the
// camera model named by its camera_model tag at width x height (the
// geometry is not itself persisted, since it belongs to the FrameSource the
// next run will be started with).
func ReadCalibrationXML(r io.Reader, width, height int) (Inventory, error) {
	var doc calibrationXML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return Inventory{}, fmt.Errorf("calib: decoding calibration.xml: %w", err)
	}

	cam, err := rebuildCameraModel(doc.CameraModel, width, height, doc.Parameters)
	if err != nil {
		return Inventory{}, err
	}

	return Inventory{
		EpochMicros:      doc.EpochTimeUs,
		Camera:           cam,
		QuaternionSEZCam: Quaternion{W: doc.QuatW, X: doc.QuatX, Y: doc.QuatY, Z: doc.QuatZ},
		LongitudeDeg:     doc.LongitudeDeg,
		LatitudeDeg:      doc.LatitudeDeg,
		AltitudeM:        doc.AltitudeM,
		ReadNoiseADU:     doc.ReadNoiseADU,
		FitResult: lmfit.Result{
			ChiSquare:  doc.ChiSquare,
			Iterations: doc.Iterations,
			Converged:  doc.Converged,
		},
	}, nil
}

func rebuildCameraModel(tag string, width, height int, params []float64) (camera.Model, error) {
	switch tag {
	case "pinhole_radial":
		if len(params) != 9 {
			return nil, fmt.Errorf("calib: pinhole_radial calibration expects 9 parameters, got %d", len(params))
		}
		var k [5]float64
		copy(k[:], params[4:])
		return camera.NewPinholeRadial(width, height, params[0], params[1], params[2], params[3], k)
	default:
		if len(params) != 4 {
			return nil, fmt.Errorf("calib: pinhole calibration expects 4 parameters, got %d", len(params))
		}
		return camera.NewPinhole(width, height, params[0], params[1], params[2], params[3])
	}
}
