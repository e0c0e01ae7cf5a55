package clip

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

func TestLocalisationXMLRoundTrip(t *testing.T) {
	in := []LocationMeasurement{
		{EpochMicros: 100, Success: true, XMin: 1, XMax: 5, YMin: 2, YMax: 6, CX: 3.5, CY: 4.5},
		{EpochMicros: 200, Success: false},
	}

	var buf bytes.Buffer
	if err := WriteLocalisationXML(&buf, in); err != nil {
		t.Fatalf("WriteLocalisationXML: %v", err)
	}

	got, err := ReadLocalisationXML(&buf)
	if err != nil {
		t.Fatalf("ReadLocalisationXML: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d measurements, want 2", len(got))
	}
	if !reflect.DeepEqual(got[0], in[0]) {
		t.Errorf("got[0] = %+v, want %+v", got[0], in[0])
	}
	if got[1].EpochMicros != 200 || got[1].Success {
		t.Errorf("got[1] = %+v, want epoch 200, success false", got[1])
	}
}

func TestReadLocalisationXMLToleratesMissingSuccessElement(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<coarse_localisations>
  <coarse_localisation>
    <epochTimeUs>555</epochTimeUs>
  </coarse_localisation>
</coarse_localisations>`

	got, err := ReadLocalisationXML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ReadLocalisationXML: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d measurements, want 1", len(got))
	}
	if got[0].EpochMicros != 555 {
		t.Errorf("EpochMicros = %d, want 555", got[0].EpochMicros)
	}
	if got[0].Success {
		t.Error("Success should default false when element is absent")
	}
}
