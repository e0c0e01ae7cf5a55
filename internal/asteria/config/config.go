// Package config loads the single JSON configuration file a station reads
// once at startup (spec §10.2, SPEC_FULL.md §10.2): a flat struct of
// pointer-typed optional fields so a partial file overrides only the
// fields present, the rest falling back to documented defaults. Grounded
// on internal/config/tuning.go's TuningConfig pattern.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration for one station (spec §10.2). Every
// field is optional; a nil field falls back to its Get* method's default.
type Config struct {
	// Camera / acquisition.
	CameraPath                *string  `json:"camera_path,omitempty"`
	DetectionHead             *int     `json:"detection_head,omitempty"`
	DetectionTail             *int     `json:"detection_tail,omitempty"`
	PixelDifferenceThreshold  *int64   `json:"pixel_difference_threshold,omitempty"`
	NChangedPixelsForTrigger  *int     `json:"n_changed_pixels_for_trigger,omitempty"`
	ClipMaxLengthMinutes      *float64 `json:"clip_max_length_minutes,omitempty"`

	// Calibration.
	BkgMedianFilterHalfWidth      *int     `json:"bkg_median_filter_half_width,omitempty"`
	SourceDetectionThresholdSigma *float64 `json:"source_detection_threshold_sigmas,omitempty"`
	RefStarFaintMagLimit          *float64 `json:"ref_star_faint_mag_limit,omitempty"`
	MaxCrossMatchSeparation       *float64 `json:"max_cross_match_separation,omitempty"`
	CatalogPath                   *string `json:"catalog_path,omitempty"`

	// Site.
	SiteLongitudeDeg *float64 `json:"site_longitude_deg,omitempty"`
	SiteLatitudeDeg  *float64 `json:"site_latitude_deg,omitempty"`
	SiteAltitudeM    *float64 `json:"site_altitude_m,omitempty"`
	GPSDevicePath    *string  `json:"gps_device_path,omitempty"`

	// Storage.
	ClipRoot        *string `json:"clip_root,omitempty"`
	CalibrationRoot *string `json:"calibration_root,omitempty"`
	IndexDBPath     *string `json:"index_db_path,omitempty"`

	// Camera model selection (spec §9's multiple-choice parameter,
	// Open Question 1).
	CameraModel *string `json:"camera_model,omitempty"`
}

// SupportedCameraModels are the camera_model option strings
// ValidateOneOf accepts (spec §4.7's Pinhole and PinholeRadial models).
var SupportedCameraModels = []string{"pinhole", "pinhole_radial"}

// EmptyConfig returns a Config with every field nil.
func EmptyConfig() *Config {
	return &Config{}
}

const maxConfigFileSize = 1 * 1024 * 1024 // 1MB

// Load reads and parses a JSON configuration file, validating that it has
// a .json extension, is under the max file size, and that all set fields
// pass Validate (spec §7's "configuration errors are fatal at startup").
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks every set field against its documented bounds, using
// ValidateWithinLimits and ValidateOneOf (spec §9 Open Questions 1 and 3).
func (c *Config) Validate() error {
	if c.DetectionHead != nil {
		if err := ValidateWithinLimits(float64(*c.DetectionHead), 0, 1<<20); err != nil {
			return fmt.Errorf("detection_head: %w", err)
		}
	}
	if c.DetectionTail != nil {
		if err := ValidateWithinLimits(float64(*c.DetectionTail), 0, 1<<20); err != nil {
			return fmt.Errorf("detection_tail: %w", err)
		}
	}
	if c.NChangedPixelsForTrigger != nil {
		if err := ValidateWithinLimits(float64(*c.NChangedPixelsForTrigger), 0, 1<<30); err != nil {
			return fmt.Errorf("n_changed_pixels_for_trigger: %w", err)
		}
	}
	if c.ClipMaxLengthMinutes != nil {
		if err := ValidateWithinLimits(*c.ClipMaxLengthMinutes, 0, 1440); err != nil {
			return fmt.Errorf("clip_max_length_minutes: %w", err)
		}
	}
	if c.BkgMedianFilterHalfWidth != nil {
		if err := ValidateWithinLimits(float64(*c.BkgMedianFilterHalfWidth), 0, 256); err != nil {
			return fmt.Errorf("bkg_median_filter_half_width: %w", err)
		}
	}
	if c.SourceDetectionThresholdSigma != nil {
		if err := ValidateWithinLimits(*c.SourceDetectionThresholdSigma, 0, 1000); err != nil {
			return fmt.Errorf("source_detection_threshold_sigmas: %w", err)
		}
	}
	if c.RefStarFaintMagLimit != nil {
		if err := ValidateWithinLimits(*c.RefStarFaintMagLimit, -5, 20); err != nil {
			return fmt.Errorf("ref_star_faint_mag_limit: %w", err)
		}
	}
	if c.MaxCrossMatchSeparation != nil {
		if err := ValidateWithinLimits(*c.MaxCrossMatchSeparation, 0, 10000); err != nil {
			return fmt.Errorf("max_cross_match_separation: %w", err)
		}
	}
	if c.SiteLongitudeDeg != nil {
		if err := ValidateWithinLimits(*c.SiteLongitudeDeg, -180, 180); err != nil {
			return fmt.Errorf("site_longitude_deg: %w", err)
		}
	}
	if c.SiteLatitudeDeg != nil {
		if err := ValidateWithinLimits(*c.SiteLatitudeDeg, -90, 90); err != nil {
			return fmt.Errorf("site_latitude_deg: %w", err)
		}
	}
	if c.CameraModel != nil {
		if err := ValidateOneOf(*c.CameraModel, SupportedCameraModels); err != nil {
			return fmt.Errorf("camera_model: %w", err)
		}
	}
	return nil
}

// ValidateWithinLimits accepts v iff lower <= v <= upper (closed interval,
// spec §9 Open Question 3: the source's strict inequalities rejected
// boundary values; this implementation treats boundary values as valid).
func ValidateWithinLimits(v, lower, upper float64) error {
	if v < lower || v > upper {
		return fmt.Errorf("value %v outside [%v, %v]", v, lower, upper)
	}
	return nil
}

// ValidateOneOf accepts candidate iff it equals one of options via ==
// (spec §9 Open Question 1: the source's ParameterMultipleChoice inverted
// a strings.Compare result so every candidate matched; this implementation
// follows the spec's stated contract instead).
func ValidateOneOf(candidate string, options []string) error {
	for _, opt := range options {
		if candidate == opt {
			return nil
		}
	}
	return fmt.Errorf("value %q is not one of %v", candidate, options)
}

// GetDetectionHead returns DetectionHead or its default (spec §8 scenario
// E1/E2 use small values; 3 matches the example scenarios).
func (c *Config) GetDetectionHead() int {
	if c.DetectionHead == nil {
		return 3
	}
	return *c.DetectionHead
}

// GetDetectionTail returns DetectionTail or its default.
func (c *Config) GetDetectionTail() int {
	if c.DetectionTail == nil {
		return 2
	}
	return *c.DetectionTail
}

// GetPixelDifferenceThreshold returns PixelDifferenceThreshold or its default.
func (c *Config) GetPixelDifferenceThreshold() int64 {
	if c.PixelDifferenceThreshold == nil {
		return 10
	}
	return *c.PixelDifferenceThreshold
}

// GetNChangedPixelsForTrigger returns NChangedPixelsForTrigger or its default.
func (c *Config) GetNChangedPixelsForTrigger() int {
	if c.NChangedPixelsForTrigger == nil {
		return 5
	}
	return *c.NChangedPixelsForTrigger
}

// GetClipMaxLength returns ClipMaxLengthMinutes as a time.Duration,
// or its default.
func (c *Config) GetClipMaxLength() time.Duration {
	if c.ClipMaxLengthMinutes == nil {
		return 5 * time.Minute
	}
	return time.Duration(*c.ClipMaxLengthMinutes * float64(time.Minute))
}

// GetBkgMedianFilterHalfWidth returns BkgMedianFilterHalfWidth or its default.
func (c *Config) GetBkgMedianFilterHalfWidth() int {
	if c.BkgMedianFilterHalfWidth == nil {
		return 15
	}
	return *c.BkgMedianFilterHalfWidth
}

// GetSourceDetectionThresholdSigma returns SourceDetectionThresholdSigma or its default.
func (c *Config) GetSourceDetectionThresholdSigma() float64 {
	if c.SourceDetectionThresholdSigma == nil {
		return 5.0
	}
	return *c.SourceDetectionThresholdSigma
}

// GetRefStarFaintMagLimit returns RefStarFaintMagLimit or its default.
func (c *Config) GetRefStarFaintMagLimit() float64 {
	if c.RefStarFaintMagLimit == nil {
		return 6.0
	}
	return *c.RefStarFaintMagLimit
}

// GetMaxCrossMatchSeparation returns MaxCrossMatchSeparation or its default
// (spec §4.5's hardcoded 20-pixel mutual-nearest-neighbor threshold).
func (c *Config) GetMaxCrossMatchSeparation() float64 {
	if c.MaxCrossMatchSeparation == nil {
		return 20.0
	}
	return *c.MaxCrossMatchSeparation
}

// GetClipRoot returns ClipRoot or its default.
func (c *Config) GetClipRoot() string {
	if c.ClipRoot == nil {
		return "clips"
	}
	return *c.ClipRoot
}

// GetCalibrationRoot returns CalibrationRoot or its default.
func (c *Config) GetCalibrationRoot() string {
	if c.CalibrationRoot == nil {
		return "calibration"
	}
	return *c.CalibrationRoot
}

// GetIndexDBPath returns IndexDBPath or its default.
func (c *Config) GetIndexDBPath() string {
	if c.IndexDBPath == nil {
		return "asteria.db"
	}
	return *c.IndexDBPath
}

// GetCameraModel returns CameraModel or its default.
func (c *Config) GetCameraModel() string {
	if c.CameraModel == nil {
		return "pinhole"
	}
	return *c.CameraModel
}

// GetGPSDevicePath returns GPSDevicePath or "" if no GPS is configured.
// The calibration site position always comes from SiteLongitudeDeg/
// LatitudeDeg/AltitudeM, whether or not a GPS device is configured.
func (c *Config) GetGPSDevicePath() string {
	if c.GPSDevicePath == nil {
		return ""
	}
	return *c.GPSDevicePath
}

// GetSiteLongitudeDeg returns SiteLongitudeDeg or its default.
func (c *Config) GetSiteLongitudeDeg() float64 {
	if c.SiteLongitudeDeg == nil {
		return 0
	}
	return *c.SiteLongitudeDeg
}

// GetSiteLatitudeDeg returns SiteLatitudeDeg or its default.
func (c *Config) GetSiteLatitudeDeg() float64 {
	if c.SiteLatitudeDeg == nil {
		return 0
	}
	return *c.SiteLatitudeDeg
}

// GetSiteAltitudeM returns SiteAltitudeM or its default.
func (c *Config) GetSiteAltitudeM() float64 {
	if c.SiteAltitudeM == nil {
		return 0
	}
	return *c.SiteAltitudeM
}

// GetCatalogPath returns CatalogPath or its default.
func (c *Config) GetCatalogPath() string {
	if c.CatalogPath == nil {
		return "catalog.txt"
	}
	return *c.CatalogPath
}

// GetCameraPath returns CameraPath or "" if unset.
func (c *Config) GetCameraPath() string {
	if c.CameraPath == nil {
		return ""
	}
	return *c.CameraPath
}
