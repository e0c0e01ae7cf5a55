package catalog

import (
	"strings"
	"testing"
)

func TestLoadSkipsCommentsAndBlanksAndMalformedLines(t *testing.T) {
	input := strings.NewReader(`# ra_deg dec_deg mag
183.8583 57.0325 3.31

310.3583	45.2803	1.25
this is not a star
101.2 -16.7 -1.46
`)
	stars, err := Load(input)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(stars) != 3 {
		t.Fatalf("got %d stars, want 3", len(stars))
	}
	if stars[0].RaDeg != 183.8583 || stars[0].DecDeg != 57.0325 || stars[0].Mag != 3.31 {
		t.Errorf("stars[0] = %+v, unexpected", stars[0])
	}
	if stars[1].Mag != 1.25 {
		t.Errorf("stars[1].Mag = %v, want 1.25 (tab-separated line)", stars[1].Mag)
	}
	if stars[2].Mag != -1.46 {
		t.Errorf("stars[2].Mag = %v, want -1.46", stars[2].Mag)
	}
}
