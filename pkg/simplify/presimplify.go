package simplify

import (
	"math"

	"github.com/kass/track2route/pkg/geo"
	"github.com/kass/track2route/pkg/models"
	"github.com/paulmach/orb"
	orbsimplify "github.com/paulmach/orb/simplify"
)

// DouglasPeucker thins a track with the Ramer-Douglas-Peucker algorithm
// before significance elimination. Points are projected onto a local
// equirectangular plane in meters, so maxDistance is in meters. Tracks with
// fewer than three points and non-positive distances are returned as is.
func DouglasPeucker(track models.Track, maxDistance float64) models.Track {
	if len(track.Points) < 3 || !(maxDistance > 0) {
		return track
	}

	_, kept := orbsimplify.DouglasPeucker(maxDistance).LineStringIndexMap(project(track.Points))

	// repeated fixes share coordinates, so survivors are taken by position
	points := make([]models.TrackPoint, len(kept))
	for i, idx := range kept {
		points[i] = track.Points[idx]
	}

	return models.Track{Name: track.Name, Description: track.Description, Points: points}
}

func project(points []models.TrackPoint) orb.LineString {
	lat0 := points[0].Lat * math.Pi / 180
	k := geo.EarthRadius * math.Pi / 180
	kx := k * math.Cos(lat0)

	ls := make(orb.LineString, len(points))
	for i, p := range points {
		ls[i] = orb.Point{p.Lon * kx, p.Lat * k}
	}
	return ls
}
