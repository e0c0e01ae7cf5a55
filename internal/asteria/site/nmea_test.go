package site

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseGGAValidFix(t *testing.T) {
	fix, err := parseSentence("$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47", "")
	require.NoError(t, err)
	require.NotNil(t, fix)
	require.InDelta(t, 48.1173, fix.LatitudeDeg, 1e-3)
	require.InDelta(t, 11.516667, fix.LongitudeDeg, 1e-3)
	require.InDelta(t, 545.4, fix.AltitudeM, 1e-6)
	require.True(t, fix.HasAltitude)
}

func TestParseGGANoFixReturnsError(t *testing.T) {
	_, err := parseSentence("$GPGGA,123519,4807.038,N,01131.000,E,0,00,,,M,,M,,*66", "")
	require.Error(t, err)
}

func TestParseRMCValidFix(t *testing.T) {
	fix, err := parseSentence("$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A", "")
	require.NoError(t, err)
	require.NotNil(t, fix)
	require.InDelta(t, 48.1173, fix.LatitudeDeg, 1e-3)
	require.False(t, fix.HasAltitude)
	require.Equal(t, 1994, fix.UTC.Year())
}

func TestParseSouthAndWestHemispheresNegate(t *testing.T) {
	fix, err := parseSentence("$GPGGA,123519,4807.038,S,01131.000,W,1,08,0.9,10.0,M,0,M,,*00", "")
	require.NoError(t, err)
	require.Less(t, fix.LatitudeDeg, 0.0)
	require.Less(t, fix.LongitudeDeg, 0.0)
}

func TestParseSentenceIgnoresUnrelatedSentenceTypes(t *testing.T) {
	fix, err := parseSentence("$GPGSV,3,1,11,10,63,137,17,07,61,098,15,05,59,290,20,08,54,157,30*70", "")
	require.NoError(t, err)
	require.Nil(t, fix)
}

func TestParseSentenceRejectsNonNMEALine(t *testing.T) {
	fix, err := parseSentence("not a sentence", "")
	require.NoError(t, err)
	require.Nil(t, fix)
}
