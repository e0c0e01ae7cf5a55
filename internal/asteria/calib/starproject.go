package calib

import (
	"math"

	"github.com/starwatch-station/asteria/internal/asteria/camera"
	"github.com/starwatch-station/asteria/internal/asteria/catalog"
	"gonum.org/v1/gonum/mat"
)

// ReferenceStar is a catalog entry together with its derived camera-frame
// projection for one calibration epoch (spec §3).
type ReferenceStar struct {
	RaDeg, DecDeg float64
	Mag           float64

	Visible bool
	I, J    float64
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180.0 }

// projectReferenceStars rejects catalog stars fainter than maxMag, rotates
// each surviving star's BCRF unit vector into the camera frame via rot, and
// projects it with cam. Only stars that land inside the image are returned
// with Visible set (spec §4.5).
func projectReferenceStars(stars []catalog.Star, rot *mat.Dense, cam camera.Model, maxMag float64) []ReferenceStar {
	visible := make([]ReferenceStar, 0, len(stars))
	for _, s := range stars {
		if s.Mag > maxMag {
			continue
		}
		bcrf := raDecToBCRF(degToRad(s.RaDeg), degToRad(s.DecDeg))
		camFrame := rotMulVec(rot, bcrf)

		i, j, ok := cam.Project(camera.Vec3{X: camFrame.X, Y: camFrame.Y, Z: camFrame.Z})
		if !ok {
			continue
		}
		if i < 0 || i > float64(cam.Width()) || j < 0 || j > float64(cam.Height()) {
			continue
		}
		visible = append(visible, ReferenceStar{
			RaDeg: s.RaDeg, DecDeg: s.DecDeg, Mag: s.Mag,
			Visible: true, I: i, J: j,
		})
	}
	return visible
}
