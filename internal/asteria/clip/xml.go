package clip

import (
	"encoding/xml"
	"io"
)

// locationMeasurementsXML is the on-disk schema for localisation.xml. Field
// names match spec §6's element names so that readers tolerant of missing
// elements (e.g. coarse_localisation_success on a failed measurement) can
// still unmarshal partial documents.
type locationMeasurementsXML struct {
	XMLName      xml.Name                `xml:"coarse_localisations"`
	Measurements []locationMeasurementXML `xml:"coarse_localisation"`
}

type locationMeasurementXML struct {
	EpochTimeUs int64   `xml:"epochTimeUs"`
	Success     *bool   `xml:"coarse_localisation_success"`
	XMin        *int    `xml:"x_min"`
	XMax        *int    `xml:"x_max"`
	YMin        *int    `xml:"y_min"`
	YMax        *int    `xml:"y_max"`
	CX          *float64 `xml:"centroid_x"`
	CY          *float64 `xml:"centroid_y"`
}

// WriteLocalisationXML serializes measurements to w in the document shape
// read by ReadLocalisationXML.
func WriteLocalisationXML(w io.Writer, measurements []LocationMeasurement) error {
	doc := locationMeasurementsXML{
		Measurements: make([]locationMeasurementXML, len(measurements)),
	}
	for i, m := range measurements {
		success := m.Success
		entry := locationMeasurementXML{
			EpochTimeUs: m.EpochMicros,
			Success:     &success,
		}
		if m.Success {
			xMin, xMax, yMin, yMax := m.XMin, m.XMax, m.YMin, m.YMax
			cx, cy := m.CX, m.CY
			entry.XMin, entry.XMax = &xMin, &xMax
			entry.YMin, entry.YMax = &yMin, &yMax
			entry.CX, entry.CY = &cx, &cy
		}
		doc.Measurements[i] = entry
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(doc)
}

// ReadLocalisationXML parses a localisation.xml document. Per spec §9's
// resolution, documents missing coarse_localisation_success (or any of the
// bounding-box/centroid elements) unmarshal with those fields left at their
// zero value rather than failing — only Success is semantically meaningful
// on a zero-valued read, since its absence means Go's decoder left a nil
// pointer, which is treated the same as an explicit false.
func ReadLocalisationXML(r io.Reader) ([]LocationMeasurement, error) {
	var doc locationMeasurementsXML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}

	out := make([]LocationMeasurement, len(doc.Measurements))
	for i, e := range doc.Measurements {
		m := LocationMeasurement{EpochMicros: e.EpochTimeUs}
		if e.Success != nil {
			m.Success = *e.Success
		}
		if e.XMin != nil {
			m.XMin = *e.XMin
		}
		if e.XMax != nil {
			m.XMax = *e.XMax
		}
		if e.YMin != nil {
			m.YMin = *e.YMin
		}
		if e.YMax != nil {
			m.YMax = *e.YMax
		}
		if e.CX != nil {
			m.CX = *e.CX
		}
		if e.CY != nil {
			m.CY = *e.CY
		}
		out[i] = m
	}
	return out, nil
}
