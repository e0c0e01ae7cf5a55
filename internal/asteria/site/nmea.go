package site

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Fix is one parsed position/time reading from the GPS receiver.
type Fix struct {
	LatitudeDeg  float64
	LongitudeDeg float64
	AltitudeM    float64
	UTC          time.Time
	HasAltitude  bool
}

// parseSentence dispatches an NMEA line to the GGA or RMC parser,
// returning (nil, nil) for sentence types this package doesn't need.
func parseSentence(line string, prevDate string) (*Fix, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return nil, nil
	}
	if idx := strings.IndexByte(line, '*'); idx >= 0 {
		line = line[:idx]
	}
	fields := strings.Split(line, ",")
	if len(fields) == 0 {
		return nil, nil
	}

	switch {
	case strings.HasSuffix(fields[0], "GGA"):
		return parseGGA(fields)
	case strings.HasSuffix(fields[0], "RMC"):
		return parseRMC(fields, prevDate)
	default:
		return nil, nil
	}
}

// parseGGA parses a $--GGA fix sentence: time, lat, N/S, lon, E/W, fix
// quality, satellite count, HDOP, altitude, altitude units.
func parseGGA(fields []string) (*Fix, error) {
	if len(fields) < 10 {
		return nil, fmt.Errorf("site: GGA sentence has %d fields, want >= 10", len(fields))
	}
	if fields[6] == "0" {
		return nil, fmt.Errorf("site: GGA fix quality 0 (no fix)")
	}

	lat, err := parseLatLon(fields[2], fields[3])
	if err != nil {
		return nil, fmt.Errorf("site: GGA latitude: %w", err)
	}
	lon, err := parseLatLon(fields[4], fields[5])
	if err != nil {
		return nil, fmt.Errorf("site: GGA longitude: %w", err)
	}
	alt, err := strconv.ParseFloat(fields[9], 64)
	if err != nil {
		return nil, fmt.Errorf("site: GGA altitude %q: %w", fields[9], err)
	}

	utc, err := parseTimeOfDay(fields[1])
	if err != nil {
		return nil, fmt.Errorf("site: GGA time: %w", err)
	}

	return &Fix{LatitudeDeg: lat, LongitudeDeg: lon, AltitudeM: alt, UTC: utc, HasAltitude: true}, nil
}

// parseRMC parses a $--RMC recommended-minimum sentence: time, status,
// lat, N/S, lon, E/W, speed, track, date. RMC carries no altitude.
func parseRMC(fields []string, _ string) (*Fix, error) {
	if len(fields) < 10 {
		return nil, fmt.Errorf("site: RMC sentence has %d fields, want >= 10", len(fields))
	}
	if fields[2] != "A" {
		return nil, fmt.Errorf("site: RMC status %q (not active)", fields[2])
	}

	lat, err := parseLatLon(fields[3], fields[4])
	if err != nil {
		return nil, fmt.Errorf("site: RMC latitude: %w", err)
	}
	lon, err := parseLatLon(fields[5], fields[6])
	if err != nil {
		return nil, fmt.Errorf("site: RMC longitude: %w", err)
	}

	utc, err := parseDateTime(fields[9], fields[1])
	if err != nil {
		return nil, fmt.Errorf("site: RMC date/time: %w", err)
	}

	return &Fix{LatitudeDeg: lat, LongitudeDeg: lon, UTC: utc}, nil
}

// parseLatLon parses an NMEA ddmm.mmmm (or dddmm.mmmm) coordinate plus its
// hemisphere letter into signed decimal degrees.
func parseLatLon(raw, hemisphere string) (float64, error) {
	if raw == "" || hemisphere == "" {
		return 0, fmt.Errorf("empty coordinate field")
	}
	dotIdx := strings.IndexByte(raw, '.')
	if dotIdx < 2 {
		return 0, fmt.Errorf("malformed coordinate %q", raw)
	}
	degDigits := dotIdx - 2
	degrees, err := strconv.ParseFloat(raw[:degDigits], 64)
	if err != nil {
		return 0, fmt.Errorf("parse degrees from %q: %w", raw, err)
	}
	minutes, err := strconv.ParseFloat(raw[degDigits:], 64)
	if err != nil {
		return 0, fmt.Errorf("parse minutes from %q: %w", raw, err)
	}
	value := degrees + minutes/60.0

	switch hemisphere {
	case "S", "W":
		value = -value
	case "N", "E":
	default:
		return 0, fmt.Errorf("unrecognized hemisphere %q", hemisphere)
	}
	return value, nil
}

// parseTimeOfDay parses an NMEA hhmmss(.ss) field against today's UTC date.
func parseTimeOfDay(raw string) (time.Time, error) {
	return parseDateTime(time.Now().UTC().Format("020106"), raw)
}

// parseDateTime parses NMEA ddmmyy date and hhmmss(.ss) time fields into a
// single UTC timestamp.
func parseDateTime(dateField, timeField string) (time.Time, error) {
	if len(dateField) < 6 || len(timeField) < 6 {
		return time.Time{}, fmt.Errorf("malformed date %q / time %q", dateField, timeField)
	}
	layout := "020106 150405"
	combined := dateField[:6] + " " + timeField[:6]
	t, err := time.Parse(layout, combined)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", combined, err)
	}
	return t.UTC(), nil
}
