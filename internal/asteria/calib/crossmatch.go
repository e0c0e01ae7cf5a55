// Mutual-nearest-neighbor cross-matching between detected Sources and
// projected ReferenceStars, grounded on the covariance-weighted distance
// loop in the original implementation's CalibrationWorker::process
// (infra/calibrationworker.cpp): a hot pixel or duplicate source is
// rejected by requiring the match to be nearest in both directions.
package calib

import (
	"math"

	"github.com/starwatch-station/asteria/internal/asteria/source"
)

// CrossMatch pairs a detected Source with its matched ReferenceStar and the
// covariance-weighted separation that earned the match.
type CrossMatch struct {
	Source     source.Source
	Star       ReferenceStar
	Separation float64
}

// DefaultMaxSeparation is the hard sigma threshold for an acceptable
// cross-match (spec §4.5).
const DefaultMaxSeparation = 20.0

// covWeightedSeparation computes d(s,r) = sqrt((Δi,Δj) · Σ⁻¹ · (Δi,Δj)ᵀ)
// where Σ is the source's 2x2 flux-weighted dispersion matrix. A
// non-invertible (degenerate) dispersion matrix is treated as infinitely
// far, since no meaningful weighting exists.
func covWeightedSeparation(s source.Source, r ReferenceStar) float64 {
	di := s.CI - r.I
	dj := s.CJ - r.J

	det := s.Cii*s.Cjj - s.Cij*s.Cij
	if det <= 0 {
		return math.Inf(1)
	}

	// Inverse of [[cii,cij],[cij,cjj]].
	invII := s.Cjj / det
	invIJ := -s.Cij / det
	invJJ := s.Cii / det

	quad := di*(invII*di+invIJ*dj) + dj*(invIJ*di+invJJ*dj)
	if quad < 0 {
		return math.Inf(1)
	}
	return math.Sqrt(quad)
}

// CrossMatchSourcesAndStars finds mutual nearest neighbors between sources
// and visible reference stars within maxSeparation (spec §4.5).
func CrossMatchSourcesAndStars(sources []source.Source, stars []ReferenceStar, maxSeparation float64) []CrossMatch {
	if len(sources) == 0 || len(stars) == 0 {
		return nil
	}

	sep := make([][]float64, len(sources))
	for i, s := range sources {
		sep[i] = make([]float64, len(stars))
		for j, r := range stars {
			sep[i][j] = covWeightedSeparation(s, r)
		}
	}

	var matches []CrossMatch
	for i := range sources {
		closestStar := -1
		minSep := math.Inf(1)
		for j := range stars {
			if sep[i][j] < minSep {
				minSep = sep[i][j]
				closestStar = j
			}
		}
		if closestStar == -1 || minSep > maxSeparation {
			continue
		}

		closestSource := -1
		minSep2 := math.Inf(1)
		for k := range sources {
			if sep[k][closestStar] < minSep2 {
				minSep2 = sep[k][closestStar]
				closestSource = k
			}
		}

		if closestSource == i {
			matches = append(matches, CrossMatch{
				Source:     sources[i],
				Star:       stars[closestStar],
				Separation: minSep,
			})
		}
	}
	diagf("cross-matched %d of %d sources against %d visible reference stars", len(matches), len(sources), len(stars))
	return matches
}
