// Package report measures how faithfully a route follows the track it was
// derived from.
package report

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kass/track2route/pkg/geo"
	"github.com/kass/track2route/pkg/models"
	"github.com/kass/track2route/pkg/rtree"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultSearchRadius is the leg search radius in meters used when Options leaves it at zero
const DefaultSearchRadius = 250.0

var (
	ErrEmptyTrack = errors.New("track has no points")
	ErrEmptyRoute = errors.New("route has no points")
)

// Options controls report generation
type Options struct {
	Metric       geo.Metric
	Tolerance    float64
	SearchRadius float64
	Workers      int
}

// Report summarises the deviation of every track point from the route
type Report struct {
	Name            string  `json:"name,omitempty"`
	TrackPoints     int     `json:"track_points"`
	RoutePoints     int     `json:"route_points"`
	TrackLength     float64 `json:"track_length_m"`
	RouteLength     float64 `json:"route_length_m"`
	MaxDeviation    float64 `json:"max_deviation_m"`
	MeanDeviation   float64 `json:"mean_deviation_m"`
	P95Deviation    float64 `json:"p95_deviation_m"`
	WorstPoint      int     `json:"worst_point"`
	Tolerance       float64 `json:"tolerance_m"`
	BeyondTolerance int     `json:"beyond_tolerance"`

	// Deviations is aligned with the track points
	Deviations []float64 `json:"-"`
	// Legs holds the nearest route leg of each track point
	Legs []int `json:"-"`
}

// Build compares track with route
func Build(track models.Track, route models.Route, opts Options) (Report, error) {
	if len(track.Points) == 0 {
		return Report{}, ErrEmptyTrack
	}
	if len(route.Points) == 0 {
		return Report{}, ErrEmptyRoute
	}

	metric := opts.Metric
	if metric == nil {
		metric = geo.Spherical{}
	}
	radius := opts.SearchRadius
	if radius <= 0 {
		radius = DefaultSearchRadius
	}

	index := rtree.NewLegIndex(metric)
	if err := index.IndexRoute(route.Points); err != nil {
		return Report{}, fmt.Errorf("index route: %w", err)
	}

	locations := make([]models.Location, len(track.Points))
	for i, p := range track.Points {
		locations[i] = p.Location
	}
	matches := index.NearestAll(locations, radius, opts.Workers)

	deviations := make([]float64, len(matches))
	legs := make([]int, len(matches))
	beyond := 0
	for i, m := range matches {
		deviations[i] = m.Deviation
		legs[i] = m.Leg
		if m.Deviation > opts.Tolerance {
			beyond++
		}
	}

	sorted := make([]float64, len(deviations))
	copy(sorted, deviations)
	sort.Float64s(sorted)

	worst := floats.MaxIdx(deviations)

	return Report{
		Name:            track.Name,
		TrackPoints:     len(track.Points),
		RoutePoints:     len(route.Points),
		TrackLength:     geo.PathLength(metric, track.Points),
		RouteLength:     geo.PathLength(metric, route.Points),
		MaxDeviation:    deviations[worst],
		MeanDeviation:   stat.Mean(deviations, nil),
		P95Deviation:    stat.Quantile(0.95, stat.Empirical, sorted, nil),
		WorstPoint:      worst,
		Tolerance:       opts.Tolerance,
		BeyondTolerance: beyond,
		Deviations:      deviations,
		Legs:            legs,
	}, nil
}
