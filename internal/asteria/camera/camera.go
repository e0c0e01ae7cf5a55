// Package camera implements the CameraModel variants from spec §4.7:
// Pinhole and PinholeRadial, with forward projection, deprojection, and
// iterative inverse radial distortion.
package camera

import (
	"fmt"
	"math"
)

// Vec3 is a 3-component Euclidean vector in the camera frame (right, down,
// forward along the optical axis, per spec GLOSSARY's CAM definition).
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) normalized() Vec3 {
	n := math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
	if n == 0 {
		return v
	}
	return Vec3{v.X / n, v.Y / n, v.Z / n}
}

// Model is the common contract implemented by every camera variant.
type Model interface {
	// Project maps a camera-frame ray to pixel coordinates. ok is false if
	// the ray cannot be projected (e.g. behind the camera, or distortion
	// does not converge for this radius).
	Project(r Vec3) (i, j float64, ok bool)

	// Deproject maps a pixel coordinate back to a unit camera-frame ray.
	Deproject(i, j float64) (r Vec3, ok bool)

	Parameters() []float64
	SetParameters(p []float64) error

	Width() int
	Height() int
}

// Pinhole is the distortion-free camera model: K = [[fi,0,pi],[0,fj,pj],[0,0,1]].
type Pinhole struct {
	width, height int
	Fi, Fj        float64
	Pi, Pj        float64
}

// NewPinhole validates that the principal point lies inside the image
// (spec §4.7 invariant) and returns a Pinhole model.
func NewPinhole(width, height int, fi, fj, pi, pj float64) (*Pinhole, error) {
	if pi < 0 || pi > float64(width) || pj < 0 || pj > float64(height) {
		return nil, fmt.Errorf("camera: principal point (%g, %g) outside %dx%d image", pi, pj, width, height)
	}
	if fi == 0 || fj == 0 {
		return nil, fmt.Errorf("camera: focal lengths must be nonzero")
	}
	return &Pinhole{width: width, height: height, Fi: fi, Fj: fj, Pi: pi, Pj: pj}, nil
}

func (c *Pinhole) Width() int  { return c.width }
func (c *Pinhole) Height() int { return c.height }

func (c *Pinhole) Project(r Vec3) (float64, float64, bool) {
	if r.Z <= 0 {
		return 0, 0, false
	}
	i := c.Fi*r.X/r.Z + c.Pi
	j := c.Fj*r.Y/r.Z + c.Pj
	return i, j, true
}

func (c *Pinhole) Deproject(i, j float64) (Vec3, bool) {
	v := Vec3{
		X: (i - c.Pi) / c.Fi,
		Y: (j - c.Pj) / c.Fj,
		Z: 1,
	}
	return v.normalized(), true
}

func (c *Pinhole) Parameters() []float64 {
	return []float64{c.Fi, c.Fj, c.Pi, c.Pj}
}

func (c *Pinhole) SetParameters(p []float64) error {
	if len(p) != 4 {
		return fmt.Errorf("camera: pinhole expects 4 parameters, got %d", len(p))
	}
	c.Fi, c.Fj, c.Pi, c.Pj = p[0], p[1], p[2], p[3]
	return nil
}

// radialDegree is the fixed polynomial order K0..K4 used by PinholeRadial
// (spec §4.7).
const radialDegree = 5

// PinholeRadial extends Pinhole with a fixed-order radial-distortion
// polynomial C(R) = 1 + Σ Kn·R^n.
type PinholeRadial struct {
	Pinhole
	K    [radialDegree]float64
	RMax float64
}

const (
	inverseDistortionTolerancePx = 0.01
	inverseDistortionMaxIters    = 1000
)

// NewPinholeRadial validates the construction-time invariants from spec
// §4.7: the principal point lies inside the image (via NewPinhole), the
// radial coefficients share one sign (or are all zero), and the forward
// distortion factor stays strictly positive across the full image (the
// numerical check for the negative-distortion case; the positive case is
// checked by confirming the inverse converges out to the image corner).
func NewPinholeRadial(width, height int, fi, fj, pi, pj float64, k [radialDegree]float64) (*PinholeRadial, error) {
	base, err := NewPinhole(width, height, fi, fj, pi, pj)
	if err != nil {
		return nil, err
	}

	sign := 0
	for _, kn := range k {
		if kn == 0 {
			continue
		}
		s := 1
		if kn < 0 {
			s = -1
		}
		if sign == 0 {
			sign = s
		} else if sign != s {
			return nil, fmt.Errorf("camera: radial coefficients must share one sign or be all zero, got %v", k)
		}
	}

	meanFocal := (fi + fj) / 2
	corner := Vec3{X: float64(width) - pi, Y: float64(height) - pj}
	rMaxUndistorted := math.Hypot(corner.X, corner.Y) / meanFocal

	c := &PinholeRadial{Pinhole: *base, K: k, RMax: rMaxUndistorted}

	for step := 0.0; step <= 1.0; step += 0.05 {
		rn := rMaxUndistorted * step
		factor := c.distortionFactor(rn)
		if sign < 0 && factor <= 0 {
			return nil, fmt.Errorf("camera: negative distortion drives factor non-positive at r=%g", rn)
		}
	}
	if sign > 0 {
		rDistAtCorner := c.distortionFactor(rMaxUndistorted) * rMaxUndistorted
		if _, ok := c.inverseDistortion(rDistAtCorner, meanFocal); !ok {
			return nil, fmt.Errorf("camera: positive distortion does not invert at the image corner")
		}
	}

	return c, nil
}

func (c *PinholeRadial) meanFocal() float64 { return (c.Fi + c.Fj) / 2 }

// distortionFactor evaluates C(R) = 1 + K0·R^0 + K1·R^1 + ... + K4·R^4 with
// rn already normalized by meanFocal, per spec §4.7's numerical-range
// guidance. K0 is a dimensionless offset, not a coefficient of R.
func (c *PinholeRadial) distortionFactor(rn float64) float64 {
	factor := 1.0
	pow := 1.0
	for _, kn := range c.K {
		factor += kn * pow
		pow *= rn
	}
	return factor
}

// inverseDistortion solves C(R)·R = rDistortedNorm for R, both normalized
// by meanFocal, via averaged fixed-point iteration (spec §4.7):
// R_{k+1} = ½(R_k + R'/C(R_k)). Returns (0, false) on non-convergence
// within the iteration cap.
func (c *PinholeRadial) inverseDistortion(rDistortedNorm, meanFocal float64) (float64, bool) {
	r := rDistortedNorm
	tolNormalized := inverseDistortionTolerancePx / meanFocal
	for iter := 0; iter < inverseDistortionMaxIters; iter++ {
		factor := c.distortionFactor(r)
		if factor == 0 {
			return 0, false
		}
		next := 0.5 * (r + rDistortedNorm/factor)
		if math.Abs(next-r) < tolNormalized {
			return next, true
		}
		r = next
	}
	return 0, false
}

func (c *PinholeRadial) Project(r Vec3) (float64, float64, bool) {
	i, j, ok := c.Pinhole.Project(r)
	if !ok {
		return 0, 0, false
	}
	meanFocal := c.meanFocal()
	dx, dy := i-c.Pi, j-c.Pj
	rUndistNorm := math.Hypot(dx, dy) / meanFocal
	if rUndistNorm > c.RMax {
		return 0, 0, false
	}
	factor := c.distortionFactor(rUndistNorm)
	iDist := dx*factor + c.Pi
	jDist := dy*factor + c.Pj
	return iDist, jDist, true
}

func (c *PinholeRadial) Deproject(i, j float64) (Vec3, bool) {
	meanFocal := c.meanFocal()
	dx, dy := i-c.Pi, j-c.Pj
	rDistNorm := math.Hypot(dx, dy) / meanFocal
	if rDistNorm == 0 {
		return c.Pinhole.Deproject(i, j)
	}
	rUndistNorm, ok := c.inverseDistortion(rDistNorm, meanFocal)
	if !ok {
		return Vec3{}, false
	}
	factor := rUndistNorm / rDistNorm
	iUndist := dx*factor + c.Pi
	jUndist := dy*factor + c.Pj
	return c.Pinhole.Deproject(iUndist, jUndist)
}

func (c *PinholeRadial) Parameters() []float64 {
	p := c.Pinhole.Parameters()
	for _, kn := range c.K {
		p = append(p, kn)
	}
	return p
}

func (c *PinholeRadial) SetParameters(p []float64) error {
	if len(p) != 4+radialDegree {
		return fmt.Errorf("camera: pinhole-radial expects %d parameters, got %d", 4+radialDegree, len(p))
	}
	if err := c.Pinhole.SetParameters(p[:4]); err != nil {
		return err
	}
	copy(c.K[:], p[4:])
	return nil
}
