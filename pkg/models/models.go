package models

import "time"

// Location represents a geographic location with latitude and longitude
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// TrackPoint is a single recorded position. Elevation and Time are optional:
// a nil Elevation or a zero Time means the recorder did not supply them.
type TrackPoint struct {
	Location
	Elevation *float64  `json:"ele,omitempty"`
	Time      time.Time `json:"time,omitempty"`
}

// Track is an ordered sequence of recorded points
type Track struct {
	Name        string       `json:"name,omitempty"`
	Description string       `json:"desc,omitempty"`
	Points      []TrackPoint `json:"points"`
}

// Route is an ordered subsequence of a Track's points
type Route struct {
	Name        string       `json:"name,omitempty"`
	Description string       `json:"desc,omitempty"`
	Points      []TrackPoint `json:"points"`
}

// BoundingBox represents a rectangular area defined by two corners
type BoundingBox struct {
	BottomLeft Location
	TopRight   Location
}

// Contains reports whether loc lies inside the box, edges included
func (b BoundingBox) Contains(loc Location) bool {
	return loc.Lat >= b.BottomLeft.Lat && loc.Lat <= b.TopRight.Lat &&
		loc.Lon >= b.BottomLeft.Lon && loc.Lon <= b.TopRight.Lon
}
