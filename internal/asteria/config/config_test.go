package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadPartialOverrideKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "station.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"detection_head": 7}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 7, cfg.GetDetectionHead())
	require.Equal(t, 2, cfg.GetDetectionTail()) // untouched field falls back
}

func TestLoadRejectsNonJSONExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "station.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsOutOfRangeValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "station.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"site_latitude_deg": 95}`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateWithinLimitsAcceptsBoundaryValues(t *testing.T) {
	require.NoError(t, ValidateWithinLimits(0, 0, 10))
	require.NoError(t, ValidateWithinLimits(10, 0, 10))
	require.Error(t, ValidateWithinLimits(-0.001, 0, 10))
	require.Error(t, ValidateWithinLimits(10.001, 0, 10))
}

func TestValidateOneOfExactMatchOnly(t *testing.T) {
	options := []string{"pinhole", "pinhole_radial"}
	require.NoError(t, ValidateOneOf("pinhole", options))
	require.Error(t, ValidateOneOf("Pinhole", options))
	require.Error(t, ValidateOneOf("fisheye", options))
}

func TestConfigDefaultsWithNoFieldsSet(t *testing.T) {
	cfg := EmptyConfig()
	require.Equal(t, "pinhole", cfg.GetCameraModel())
	require.Equal(t, 20.0, cfg.GetMaxCrossMatchSeparation())
	require.NoError(t, cfg.Validate())
}
