// Package export writes routes in the supported output formats
package export

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/kass/track2route/pkg/gpxio"
	"github.com/kass/track2route/pkg/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/twpayne/go-kml"
	"github.com/twpayne/go-polyline"
)

// Format names an output encoding
type Format string

const (
	FormatGPX      Format = "gpx"
	FormatKML      Format = "kml"
	FormatGeoJSON  Format = "geojson"
	FormatPolyline Format = "polyline"
)

// ErrUnknownFormat is returned for format names and file extensions that have no writer
var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists every supported format
var Formats = []Format{FormatGPX, FormatKML, FormatGeoJSON, FormatPolyline}

// ParseFormat resolves a format name, case-insensitively
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gpx":
		return FormatGPX, nil
	case "kml":
		return FormatKML, nil
	case "geojson", "json":
		return FormatGeoJSON, nil
	case "polyline":
		return FormatPolyline, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// DetectFormat picks the format from the file extension of path
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gpx":
		return FormatGPX, nil
	case ".kml":
		return FormatKML, nil
	case ".geojson", ".json":
		return FormatGeoJSON, nil
	case ".polyline", ".txt":
		return FormatPolyline, nil
	}
	return "", fmt.Errorf("%w: cannot infer from %q", ErrUnknownFormat, path)
}

// Write encodes routes to w in format f
func Write(w io.Writer, f Format, routes []models.Route) error {
	switch f {
	case FormatGPX:
		return WriteGPX(w, routes)
	case FormatKML:
		return WriteKML(w, routes)
	case FormatGeoJSON:
		return WriteGeoJSON(w, routes)
	case FormatPolyline:
		return WritePolyline(w, routes)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// WriteGPX writes a routes-only GPX document
func WriteGPX(w io.Writer, routes []models.Route) error {
	doc := gpxio.NewDocument()
	for _, r := range routes {
		doc.AddRoute(r)
	}
	return doc.Write(w)
}

// WriteKML writes one LineString placemark per route
func WriteKML(w io.Writer, routes []models.Route) error {
	placemarks := make([]kml.Element, 0, len(routes))
	for _, r := range routes {
		coords := make([]kml.Coordinate, len(r.Points))
		for i, p := range r.Points {
			coords[i] = kml.Coordinate{Lon: p.Lon, Lat: p.Lat}
			if p.Elevation != nil {
				coords[i].Alt = *p.Elevation
			}
		}

		children := []kml.Element{kml.Name(r.Name)}
		if r.Description != "" {
			children = append(children, kml.Description(r.Description))
		}
		children = append(children, kml.LineString(kml.Coordinates(coords...)))
		placemarks = append(placemarks, kml.Placemark(children...))
	}

	if err := kml.KML(kml.Document(placemarks...)).WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("encode KML: %w", err)
	}
	return nil
}

// WriteGeoJSON writes a FeatureCollection with one LineString feature per route
func WriteGeoJSON(w io.Writer, routes []models.Route) error {
	fc := geojson.NewFeatureCollection()
	for _, r := range routes {
		f := geojson.NewFeature(LineString(r.Points))
		f.Properties["name"] = r.Name
		if r.Description != "" {
			f.Properties["description"] = r.Description
		}
		f.Properties["points"] = len(r.Points)
		fc.Append(f)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode GeoJSON: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write GeoJSON: %w", err)
	}
	return nil
}

// WritePolyline writes one encoded polyline per line, in route order
func WritePolyline(w io.Writer, routes []models.Route) error {
	for _, r := range routes {
		if _, err := fmt.Fprintf(w, "%s\n", EncodePolyline(r.Points)); err != nil {
			return fmt.Errorf("write polyline: %w", err)
		}
	}
	return nil
}

// EncodePolyline returns the encoded polyline of points at 1e-5 precision
func EncodePolyline(points []models.TrackPoint) string {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Lat, p.Lon}
	}
	return string(polyline.EncodeCoords(coords))
}

// LineString converts points into an orb geometry (lon, lat order)
func LineString(points []models.TrackPoint) orb.LineString {
	ls := make(orb.LineString, len(points))
	for i, p := range points {
		ls[i] = orb.Point{p.Lon, p.Lat}
	}
	return ls
}
