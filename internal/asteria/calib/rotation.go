// Rotation, time, and reference-star projection utilities for the
// calibration engine (spec §4.5, §4.8). Grounded on the original
// implementation's TimeUtil::epochToGmst (util/timeutil.cpp) for the GMST
// polynomial, and on CoordinateUtil's declared frame chain (BCRF -> ECEF ->
// SEZ -> CAM, util/coordinateutil.h) for the rotation composition; that
// reference implementation left the rotation-matrix bodies themselves
// unimplemented, so the matrix entries here follow the standard spherical-
// astronomy conventions its call sites assume (Z-axis rotation by GMST,
// a south-east-zenith local tangent frame). Rotation composition uses
// gonum/mat, the same matrix-algebra library lmfit uses for the normal
// equations, rather than hand-rolled 3x3 arithmetic.
package calib

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// unixEpochJD is the Julian Date of the Unix epoch (1970-01-01T00:00:00Z).
const unixEpochJD = 2440587.5

// microsPerDay is the number of microseconds in a day.
const microsPerDay = 86_400_000_000.0

// EpochToJulianDate converts an epoch in microseconds since the Unix epoch
// to a Julian Date (spec §4.8).
func EpochToJulianDate(epochMicros int64) float64 {
	return unixEpochJD + float64(epochMicros)/microsPerDay
}

// EpochToGMST computes the Greenwich Mean Sidereal Time, in decimal hours,
// for the given epoch using the IAU 1982/2000 polynomial in Julian
// centuries from J2000 (spec §4.5).
func EpochToGMST(epochMicros int64) float64 {
	t := (EpochToJulianDate(epochMicros) - 2451545.0) / 36525.0

	gmstSec := 67310.54841 +
		(876600.0*3600.0+8640184.812866)*t +
		0.093104*t*t -
		0.0000062*t*t*t

	gmstSec = math.Mod(gmstSec, 86400.0)
	if gmstSec < 0 {
		gmstSec += 86400.0
	}

	return gmstSec / 3600.0
}

// GMSTToLST converts GMST (decimal hours) plus a site longitude (degrees,
// east-positive) to Local Sidereal Time in decimal hours (spec §4.8).
func GMSTToLST(gmstHours, lonDeg float64) float64 {
	return gmstHours + lonDeg/15.0
}

// Vec3 is a Euclidean 3-vector in one of the frames enumerated in spec
// GLOSSARY (BCRF, ECEF, SEZ, CAM).
type Vec3 struct {
	X, Y, Z float64
}

func vecToDense(v Vec3) *mat.VecDense {
	return mat.NewVecDense(3, []float64{v.X, v.Y, v.Z})
}

func denseToVec(v *mat.VecDense) Vec3 {
	return Vec3{X: v.AtVec(0), Y: v.AtVec(1), Z: v.AtVec(2)}
}

// rotMulVec applies a 3x3 rotation matrix to a vector.
func rotMulVec(m *mat.Dense, v Vec3) Vec3 {
	var out mat.VecDense
	out.MulVec(m, vecToDense(v))
	return denseToVec(&out)
}

// mul3 composes two 3x3 rotation matrices, left-multiplying b by a (i.e.
// a*b, applied to a vector as a.mul(b.mul(v))).
func mul3(a, b *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Mul(a, b)
	return &out
}

// bcrfToEcefRot is the rotation from the barycentric celestial reference
// frame to the Earth-centered-Earth-fixed frame: a right-handed rotation
// about the Z (polar) axis by GMST (spec §4.5).
func bcrfToEcefRot(gmstHours float64) *mat.Dense {
	theta := gmstHours / 24.0 * 2 * math.Pi
	c, s := math.Cos(theta), math.Sin(theta)
	return mat.NewDense(3, 3, []float64{
		c, s, 0,
		-s, c, 0,
		0, 0, 1,
	})
}

// ecefToSezRot is the rotation from ECEF into the local topocentric
// South-East-Zenith frame at geodetic longitude/latitude (radians).
func ecefToSezRot(lon, lat float64) *mat.Dense {
	sinLat, cosLat := math.Sin(lat), math.Cos(lat)
	sinLon, cosLon := math.Sin(lon), math.Cos(lon)
	return mat.NewDense(3, 3, []float64{
		sinLat * cosLon, sinLat * sinLon, -cosLat,
		-sinLon, cosLon, 0,
		cosLat * cosLon, cosLat * sinLon, sinLat,
	})
}

// quaternionToRot converts a unit quaternion (w, x, y, z) to its rotation
// matrix. This implements R_sez->cam from the inventory's orientation
// quaternion (spec §4.5).
func quaternionToRot(qw, qx, qy, qz float64) *mat.Dense {
	n := math.Sqrt(qw*qw + qx*qx + qy*qy + qz*qz)
	if n == 0 {
		return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	}
	qw, qx, qy, qz = qw/n, qx/n, qy/n, qz/n

	return mat.NewDense(3, 3, []float64{
		1 - 2*(qy*qy+qz*qz), 2 * (qx*qy - qz*qw), 2 * (qx*qz + qy*qw),
		2 * (qx*qy + qz*qw), 1 - 2*(qx*qx+qz*qz), 2 * (qy*qz - qx*qw),
		2 * (qx*qz - qy*qw), 2 * (qy*qz + qx*qw), 1 - 2*(qx*qx+qy*qy),
	})
}

// raDecToBCRF converts right ascension and declination (radians) to a unit
// vector in the BCRF frame.
func raDecToBCRF(ra, dec float64) Vec3 {
	cosDec := math.Cos(dec)
	return Vec3{
		X: cosDec * math.Cos(ra),
		Y: cosDec * math.Sin(ra),
		Z: math.Sin(dec),
	}
}

// Quaternion is the orientation of the CAM frame with respect to the SEZ
// frame (spec §3's CalibrationInventory.q_sez_cam).
type Quaternion struct {
	W, X, Y, Z float64
}

// Normalize returns q scaled to unit norm.
func (q Quaternion) Normalize() Quaternion {
	n := math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if n == 0 {
		return Quaternion{W: 1}
	}
	return Quaternion{q.W / n, q.X / n, q.Y / n, q.Z / n}
}

func (q Quaternion) rotationMatrix() *mat.Dense {
	return quaternionToRot(q.W, q.X, q.Y, q.Z)
}

// bcrfToCamRot composes the full R_bcrf->cam rotation from GMST, site
// longitude/latitude (radians), and the SEZ->CAM orientation quaternion
// (spec §4.5).
func bcrfToCamRot(gmstHours, lon, lat float64, qSezCam Quaternion) *mat.Dense {
	rBcrfEcef := bcrfToEcefRot(gmstHours)
	rEcefSez := ecefToSezRot(lon, lat)
	rSezCam := qSezCam.rotationMatrix()
	return mul3(mul3(rSezCam, rEcefSez), rBcrfEcef)
}
