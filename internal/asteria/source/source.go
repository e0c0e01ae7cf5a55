// Package source implements SourceDetector (spec §4.6): descending-
// brightness connected-component labeling of the stacked signal image into
// candidate stellar sources, with flux, centroid, dispersion, and
// eigenstructure computed per source.
package source

import (
	"math"
	"sort"

	"github.com/starwatch-station/asteria/internal/asteria/frame"
)

// Source is a detected stellar blob (spec §3).
type Source struct {
	Pixels        []int
	ADU           float64
	SigmaADU      float64
	CI, CJ        float64
	Cii, Cij, Cjj float64
	L1, L2        float64
	Orientation   float64
}

// Params configures extraction.
type Params struct {
	SigmaThreshold float64
}

// Detect labels signal by descending brightness, groups pixels into
// candidate sources, computes per-source statistics, and retains only
// sources with valid (non-negative, non-complex) eigenstructure and flux
// significance above SigmaThreshold (spec §4.6).
func Detect(signal, background, noise *frame.ImageF64, p Params) []Source {
	w, h := signal.Width, signal.Height
	n := w * h

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return signal.Samples[order[a]] > signal.Samples[order[b]]
	})

	labels := make([]int, n)
	nextLabel := 1

	for _, idx := range order {
		x, y := signal.XY(idx)
		neighborLabels := map[int]struct{}{}
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				nx, ny := x+dx, y+dy
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				if l := labels[signal.Index(nx, ny)]; l != 0 {
					neighborLabels[l] = struct{}{}
				}
			}
		}
		switch len(neighborLabels) {
		case 0:
			labels[idx] = nextLabel
			nextLabel++
		case 1:
			for l := range neighborLabels {
				labels[idx] = l
			}
		default:
			// Saddle point between two or more brighter sources: leave
			// unlabeled, per spec §4.6.
		}
	}

	byLabel := map[int][]int{}
	for idx, l := range labels {
		if l == 0 {
			continue
		}
		byLabel[l] = append(byLabel[l], idx)
	}

	out := make([]Source, 0, len(byLabel))
	rejected := 0
	for _, pixels := range byLabel {
		s, ok := buildSource(pixels, signal, background, noise)
		if !ok {
			rejected++
			continue
		}
		if s.SigmaADU <= 0 || s.ADU/s.SigmaADU <= p.SigmaThreshold {
			rejected++
			continue
		}
		out = append(out, s)
	}
	diagf("extracted %d sources, rejected %d candidates", len(out), rejected)
	return out
}

func buildSource(pixels []int, signal, background, noise *frame.ImageF64) (Source, bool) {
	var adu, sigmaAduSq float64
	var sumWI, sumWJ float64
	for _, idx := range pixels {
		x, y := signal.XY(idx)
		flux := signal.Samples[idx] - background.Samples[idx]
		adu += flux
		sigmaAduSq += noise.Samples[idx] * noise.Samples[idx]
		sumWI += flux * (float64(x) + 0.5)
		sumWJ += flux * (float64(y) + 0.5)
	}
	if adu <= 0 {
		return Source{}, false
	}
	ci := sumWI / adu
	cj := sumWJ / adu

	var cii, cij, cjj float64
	for _, idx := range pixels {
		x, y := signal.XY(idx)
		flux := signal.Samples[idx] - background.Samples[idx]
		di := float64(x) + 0.5 - ci
		dj := float64(y) + 0.5 - cj
		cii += flux * di * di
		cij += flux * di * dj
		cjj += flux * dj * dj
	}
	cii /= adu
	cij /= adu
	cjj /= adu

	trace := cii + cjj
	discriminant := (cii-cjj)*(cii-cjj) + 4*cij*cij
	if discriminant < 0 {
		return Source{}, false
	}
	sqrtDisc := math.Sqrt(discriminant)
	l1 := (trace + sqrtDisc) / 2
	l2 := (trace - sqrtDisc) / 2
	if l1 < 0 || l2 < 0 {
		return Source{}, false
	}

	var orientation float64
	if cij != 0 {
		orientation = math.Atan2(l1-cii, cij)
	} else if cii > cjj {
		orientation = math.Pi / 2
	}

	return Source{
		Pixels:      pixels,
		ADU:         adu,
		SigmaADU:    math.Sqrt(sigmaAduSq),
		CI:          ci,
		CJ:          cj,
		Cii:         cii,
		Cij:         cij,
		Cjj:         cjj,
		L1:          l1,
		L2:          l2,
		Orientation: orientation,
	}, true
}
