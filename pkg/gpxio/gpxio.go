// Package gpxio converts between GPX documents and the track and route models
package gpxio

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/kass/track2route/pkg/models"
	"github.com/tkrajina/gpxgo/gpx"
)

// Creator is written to documents created by this package
const Creator = "track2route"

// Document is a parsed GPX file that routes can be appended to
type Document struct {
	gpx *gpx.GPX
}

// NewDocument returns an empty GPX 1.1 document
func NewDocument() *Document {
	return &Document{gpx: &gpx.GPX{Version: "1.1", Creator: Creator}}
}

// Load reads and parses a GPX file
func Load(path string) (*Document, error) {
	g, err := gpx.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("read GPX file %s: %w", path, err)
	}
	return &Document{gpx: g}, nil
}

// Parse reads a GPX document from r
func Parse(r io.Reader) (*Document, error) {
	g, err := gpx.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse GPX: %w", err)
	}
	return &Document{gpx: g}, nil
}

// Tracks returns every track in the document. The points of all segments
// of a track are concatenated in document order.
func (d *Document) Tracks() []models.Track {
	tracks := make([]models.Track, 0, len(d.gpx.Tracks))
	for _, trk := range d.gpx.Tracks {
		track := models.Track{Name: trk.Name, Description: trk.Description}
		for _, seg := range trk.Segments {
			for _, p := range seg.Points {
				track.Points = append(track.Points, fromGPX(p))
			}
		}
		tracks = append(tracks, track)
	}
	return tracks
}

// Routes returns the routes already present in the document
func (d *Document) Routes() []models.Route {
	routes := make([]models.Route, 0, len(d.gpx.Routes))
	for _, rte := range d.gpx.Routes {
		route := models.Route{Name: rte.Name, Description: rte.Description}
		for _, p := range rte.Points {
			route.Points = append(route.Points, fromGPX(p))
		}
		routes = append(routes, route)
	}
	return routes
}

// AddTrack appends track as a single-segment <trk>
func (d *Document) AddTrack(track models.Track) {
	seg := gpx.GPXTrackSegment{Points: make([]gpx.GPXPoint, 0, len(track.Points))}
	for _, p := range track.Points {
		seg.Points = append(seg.Points, toGPX(p))
	}
	d.gpx.Tracks = append(d.gpx.Tracks, gpx.GPXTrack{
		Name:        track.Name,
		Description: track.Description,
		Segments:    []gpx.GPXTrackSegment{seg},
	})
}

// AddRoute appends route as a <rte>
func (d *Document) AddRoute(route models.Route) {
	rte := gpx.GPXRoute{
		Name:        route.Name,
		Description: route.Description,
		Points:      make([]gpx.GPXPoint, 0, len(route.Points)),
	}
	for _, p := range route.Points {
		rte.Points = append(rte.Points, toGPX(p))
	}
	d.gpx.Routes = append(d.gpx.Routes, rte)
}

// DropTracks removes all tracks, leaving waypoints and routes
func (d *Document) DropTracks() {
	d.gpx.Tracks = nil
}

// Write serialises the document as indented GPX 1.1
func (d *Document) Write(w io.Writer) error {
	data, err := d.gpx.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return fmt.Errorf("encode GPX: %w", err)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write GPX: %w", err)
	}
	return nil
}

// Save writes the document to path
func (d *Document) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := d.Write(file); err != nil {
		return err
	}
	return file.Close()
}

func fromGPX(p gpx.GPXPoint) models.TrackPoint {
	tp := models.TrackPoint{
		Location: models.Location{Lat: p.Latitude, Lon: p.Longitude},
		Time:     p.Timestamp,
	}
	if p.Elevation.NotNull() {
		ele := p.Elevation.Value()
		tp.Elevation = &ele
	}
	return tp
}

func toGPX(tp models.TrackPoint) gpx.GPXPoint {
	var p gpx.GPXPoint
	p.Latitude = tp.Lat
	p.Longitude = tp.Lon
	p.Timestamp = tp.Time
	if tp.Elevation != nil {
		p.Elevation = *gpx.NewNullableFloat64(*tp.Elevation)
	}
	return p
}
