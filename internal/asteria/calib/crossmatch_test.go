package calib

import (
	"testing"

	"github.com/starwatch-station/asteria/internal/asteria/source"
)

func TestCrossMatchMutualNearestNeighbor(t *testing.T) {
	sources := []source.Source{
		{CI: 100, CJ: 100, Cii: 1, Cjj: 1, Cij: 0},
		{CI: 200, CJ: 200, Cii: 1, Cjj: 1, Cij: 0},
	}
	stars := []ReferenceStar{
		{I: 100.5, J: 100.2, Visible: true},
		{I: 199.8, J: 200.3, Visible: true},
		{I: 500, J: 500, Visible: true}, // unmatched, far away
	}

	matches := CrossMatchSourcesAndStars(sources, stars, 20)
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	for _, m := range matches {
		if m.Source.CI == 100 && m.Star.I != 100.5 {
			t.Errorf("source at (100,100) matched wrong star: %+v", m.Star)
		}
		if m.Source.CI == 200 && m.Star.I != 199.8 {
			t.Errorf("source at (200,200) matched wrong star: %+v", m.Star)
		}
	}
}

func TestCrossMatchRejectsBeyondThreshold(t *testing.T) {
	sources := []source.Source{{CI: 0, CJ: 0, Cii: 1, Cjj: 1, Cij: 0}}
	stars := []ReferenceStar{{I: 1000, J: 1000, Visible: true}}

	matches := CrossMatchSourcesAndStars(sources, stars, 20)
	if len(matches) != 0 {
		t.Fatalf("got %d matches, want 0 (beyond threshold)", len(matches))
	}
}

func TestCrossMatchRejectsNonMutualMatch(t *testing.T) {
	// Two sources both have the same single star as their nearest star, but
	// only the source at (10,10) is that star's nearest source, so only that
	// pair is mutual and matches.
	sources := []source.Source{
		{CI: 10, CJ: 10, Cii: 1, Cjj: 1, Cij: 0},
		{CI: 10.1, CJ: 10.1, Cii: 1, Cjj: 1, Cij: 0},
	}
	stars := []ReferenceStar{{I: 10, J: 10, Visible: true}}

	matches := CrossMatchSourcesAndStars(sources, stars, 20)
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1 (only the closer source should win)", len(matches))
	}
	if matches[0].Source.CI != 10 {
		t.Errorf("matched source CI=%v, want 10 (the closer one)", matches[0].Source.CI)
	}
}
