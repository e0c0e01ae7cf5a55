package camera

import (
	"math"
	"testing"
)

func TestPinholeProjectDeprojectRoundTrip(t *testing.T) {
	c, err := NewPinhole(720, 720, 600, 600, 360, 360)
	if err != nil {
		t.Fatalf("NewPinhole: %v", err)
	}

	for i := 10; i < 710; i += 50 {
		for j := 10; j < 710; j += 50 {
			r, ok := c.Deproject(float64(i), float64(j))
			if !ok {
				t.Fatalf("Deproject(%d,%d) failed", i, j)
			}
			gotI, gotJ, ok := c.Project(r)
			if !ok {
				t.Fatalf("Project failed for deprojected ray of (%d,%d)", i, j)
			}
			if math.Abs(gotI-float64(i)) > 1e-9 || math.Abs(gotJ-float64(j)) > 1e-9 {
				t.Errorf("round trip (%d,%d) -> (%g,%g), want <1e-9 error", i, j, gotI, gotJ)
			}
		}
	}
}

func TestNewPinholeRejectsPrincipalPointOutsideImage(t *testing.T) {
	if _, err := NewPinhole(100, 100, 50, 50, 500, 50); err == nil {
		t.Fatal("expected error for principal point outside image")
	}
}

// TestDistortionRoundTrip is scenario E4 from spec §8.
func TestDistortionRoundTrip(t *testing.T) {
	for _, k2 := range []float64{1e-7, -1e-7, 0} {
		k2 := k2
		t.Run("", func(t *testing.T) {
			var k [radialDegree]float64
			k[2] = k2
			c, err := NewPinholeRadial(720, 720, 600, 600, 360, 360, k)
			if err != nil {
				t.Fatalf("NewPinholeRadial(K2=%g): %v", k2, err)
			}

			for i := 110; i <= 610; i += 125 {
				for j := 110; j <= 610; j += 125 {
					r, ok := c.Deproject(float64(i), float64(j))
					if !ok {
						t.Fatalf("Deproject(%d,%d) failed for K2=%g", i, j, k2)
					}
					gotI, gotJ, ok := c.Project(r)
					if !ok {
						t.Fatalf("Project failed for K2=%g at (%d,%d)", k2, i, j)
					}
					if math.Abs(gotI-float64(i)) > 1e-3 || math.Abs(gotJ-float64(j)) > 1e-3 {
						t.Errorf("K2=%g round trip (%d,%d) -> (%g,%g), want <1e-3 error", k2, i, j, gotI, gotJ)
					}
				}
			}
		})
	}
}

func TestPinholeRadialRejectsMixedSignCoefficients(t *testing.T) {
	var k [radialDegree]float64
	k[0] = 1e-7
	k[1] = -1e-7
	if _, err := NewPinholeRadial(720, 720, 600, 600, 360, 360, k); err == nil {
		t.Fatal("expected error for mixed-sign radial coefficients")
	}
}
