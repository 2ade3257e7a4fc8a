// Package simplify turns a dense recorded track into a sparse route by
// repeatedly eliminating the least significant interior point.
//
// A point's significance is its geodesic deviation from the segment joining
// its current surviving neighbours. Points are eliminated while the smallest
// significance is at most the tolerance (a point with score == tolerance is
// removed, so tolerance 0 still drops exactly collinear points). Equal scores
// are eliminated in ascending track order, which makes the output
// deterministic.
package simplify

import (
	"fmt"
	"math"

	"github.com/kass/track2route/pkg/geo"
	"github.com/kass/track2route/pkg/models"
	"github.com/kass/track2route/pkg/queue"
)

// StopReason records why elimination ended
type StopReason string

const (
	// StopShortTrack means the track had fewer than three points
	StopShortTrack StopReason = "short_track"
	// StopExhausted means only the two endpoints remain
	StopExhausted StopReason = "exhausted"
	// StopTolerance means every remaining point deviates more than the tolerance
	StopTolerance StopReason = "tolerance"
	// StopMaxPoints means the route shrank to Options.MaxPoints
	StopMaxPoints StopReason = "max_points"
)

// Options controls a simplification run
type Options struct {
	// Tolerance is the largest deviation in meters a point may have and
	// still be eliminated. Must be >= 0; +Inf eliminates by MaxPoints only.
	Tolerance float64

	// MaxPoints stops elimination once the route has this many points.
	// Zero disables the cap; otherwise it must be at least 2.
	MaxPoints int

	// Metric defaults to geo.Spherical{}
	Metric geo.Metric
}

// Stats describes a simplification run
type Stats struct {
	OriginalPoints  int        `json:"original_points"`
	FinalPoints     int        `json:"final_points"`
	PointsRemoved   int        `json:"points_removed"`
	PointsPercent   float64    `json:"points_removed_percent"`
	MaxRemovedScore float64    `json:"max_removed_score_m"`
	StopReason      StopReason `json:"stop_reason"`
}

// Result holds the route and the original track positions of its points
type Result struct {
	Route   models.Route
	Indices []int
	Stats   Stats
}

// node links a track position to its surviving neighbours
type node struct {
	left, right int
}

// Simplify reduces track to a route. The track is never modified; the route
// holds copies of the surviving points in their original order and always
// keeps the first and last point.
func Simplify(track models.Track, opts Options) (Result, error) {
	if err := validate(track.Points, opts); err != nil {
		return Result{}, err
	}

	metric := opts.Metric
	if metric == nil {
		metric = geo.Spherical{}
	}

	points := track.Points
	n := len(points)
	if n < 3 {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = i
		}
		return buildResult(track, indices, 0, StopShortTrack), nil
	}

	nodes := make([]node, n)
	for i := range nodes {
		nodes[i] = node{left: i - 1, right: i + 1}
	}

	score := func(i int) float64 {
		nd := nodes[i]
		return metric.SegmentDeviation(points[i].Location, points[nd.left].Location, points[nd.right].Location)
	}

	candidates := queue.New(n - 2)
	for i := 1; i < n-1; i++ {
		if err := candidates.Insert(i, score(i)); err != nil {
			return Result{}, fmt.Errorf("seed candidates: %w", err)
		}
	}

	alive := n
	maxRemoved := 0.0
	stop := StopExhausted
	for !candidates.IsEmpty() {
		if opts.MaxPoints > 0 && alive <= opts.MaxPoints {
			stop = StopMaxPoints
			break
		}
		if _, s, _ := candidates.Peek(); s > opts.Tolerance {
			stop = StopTolerance
			break
		}

		id, s, _ := candidates.PopMin()
		left, right := nodes[id].left, nodes[id].right
		nodes[left].right = right
		nodes[right].left = left
		alive--
		maxRemoved = math.Max(maxRemoved, s)

		for _, nb := range [2]int{left, right} {
			if nb == 0 || nb == n-1 {
				continue
			}
			if err := candidates.UpdateScore(nb, score(nb)); err != nil {
				return Result{}, fmt.Errorf("rescore %d: %w", nb, err)
			}
		}
	}

	indices := make([]int, 0, alive)
	for i := 0; i != -1 && i < n; i = nodes[i].right {
		indices = append(indices, i)
	}

	return buildResult(track, indices, maxRemoved, stop), nil
}

func buildResult(track models.Track, indices []int, maxRemoved float64, stop StopReason) Result {
	routePoints := make([]models.TrackPoint, len(indices))
	for i, idx := range indices {
		routePoints[i] = track.Points[idx]
	}

	original := len(track.Points)
	removed := original - len(indices)
	percent := 0.0
	if original > 0 {
		percent = float64(removed) / float64(original) * 100
	}

	return Result{
		Route: models.Route{
			Name:        track.Name,
			Description: track.Description,
			Points:      routePoints,
		},
		Indices: indices,
		Stats: Stats{
			OriginalPoints:  original,
			FinalPoints:     len(indices),
			PointsRemoved:   removed,
			PointsPercent:   percent,
			MaxRemovedScore: maxRemoved,
			StopReason:      stop,
		},
	}
}

func validate(points []models.TrackPoint, opts Options) error {
	if math.IsNaN(opts.Tolerance) || opts.Tolerance < 0 {
		return invalidOption("tolerance", "must be a non-negative number of meters, got %v", opts.Tolerance)
	}
	if opts.MaxPoints < 0 || opts.MaxPoints == 1 {
		return invalidOption("max points", "must be 0 (no cap) or at least 2, got %d", opts.MaxPoints)
	}
	for i, p := range points {
		if !geo.ValidLocation(p.Location) {
			return invalidPoint(i, "coordinate (%v, %v) out of range", p.Lat, p.Lon)
		}
	}
	return nil
}
