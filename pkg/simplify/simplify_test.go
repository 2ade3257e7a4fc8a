package simplify

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/kass/track2route/pkg/geo"
	"github.com/kass/track2route/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pt(lat, lon float64) models.TrackPoint {
	return models.TrackPoint{Location: models.Location{Lat: lat, Lon: lon}}
}

func track(points ...models.TrackPoint) models.Track {
	return models.Track{Name: "test", Points: points}
}

// wiggle builds a noisy walk heading roughly north-east
func wiggle(seed int64, n int) models.Track {
	r := rand.New(rand.NewSource(seed))
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	points := make([]models.TrackPoint, n)
	lat, lon := 46.0, 7.0
	for i := range points {
		ele := 500 + float64(i)
		points[i] = models.TrackPoint{
			Location:  models.Location{Lat: lat, Lon: lon},
			Elevation: &ele,
			Time:      start.Add(time.Duration(i) * 5 * time.Second),
		}
		lat += 0.0001 + (r.Float64()-0.5)*0.0003
		lon += 0.0001 + (r.Float64()-0.5)*0.0003
	}
	return models.Track{Name: fmt.Sprintf("wiggle-%d", seed), Description: "synthetic", Points: points}
}

func locations(points []models.TrackPoint) []models.Location {
	out := make([]models.Location, len(points))
	for i, p := range points {
		out[i] = p.Location
	}
	return out
}

func isSubsequence(sub, of []int) bool {
	j := 0
	for _, v := range of {
		if j < len(sub) && sub[j] == v {
			j++
		}
	}
	return j == len(sub)
}

func TestNearCollinearMiddlePointRemoved(t *testing.T) {
	res, err := Simplify(track(pt(0, 0), pt(0, 0.0001), pt(0, 1)), Options{Tolerance: 50})
	require.NoError(t, err)

	want := []models.Location{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}}
	if diff := cmp.Diff(want, locations(res.Route.Points)); diff != "" {
		t.Errorf("route mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []int{0, 2}, res.Indices)
	assert.Equal(t, StopExhausted, res.Stats.StopReason)
}

func TestSharpPeakRetained(t *testing.T) {
	in := track(pt(0, 0), pt(1, 1), pt(0, 2))
	res, err := Simplify(in, Options{Tolerance: 1})
	require.NoError(t, err)

	if diff := cmp.Diff(locations(in.Points), locations(res.Route.Points)); diff != "" {
		t.Errorf("route mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, StopTolerance, res.Stats.StopReason)
	assert.Equal(t, 0, res.Stats.PointsRemoved)
}

func TestZeroToleranceRemovesExactlyCollinear(t *testing.T) {
	in := track(pt(0, 0), pt(0, 0.25), pt(0, 0.5), pt(0, 0.75), pt(0, 1))
	res, err := Simplify(in, Options{Tolerance: 0})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 4}, res.Indices)
	assert.Equal(t, 3, res.Stats.PointsRemoved)
	assert.Equal(t, 0.0, res.Stats.MaxRemovedScore)
}

func TestZeroToleranceRemovesCollinearAwayFromAxes(t *testing.T) {
	for _, lon := range []float64{0, 7.3, 10, 45, -122.4194} {
		t.Run(fmt.Sprintf("meridian %v", lon), func(t *testing.T) {
			in := track(pt(40, lon), pt(41, lon), pt(42, lon), pt(43, lon), pt(44, lon))
			res, err := Simplify(in, Options{Tolerance: 0})
			require.NoError(t, err)
			assert.Equal(t, []int{0, 4}, res.Indices)
		})
	}

	t.Run("oblique great circle", func(t *testing.T) {
		m := geo.Spherical{}
		start := models.Location{Lat: -33.86, Lon: 151.21}
		points := make([]models.TrackPoint, 6)
		for i := range points {
			points[i] = models.TrackPoint{Location: m.Destination(start, 118, float64(i)*750)}
		}
		res, err := Simplify(track(points...), Options{Tolerance: 0})
		require.NoError(t, err)
		assert.Equal(t, []int{0, 5}, res.Indices)
		assert.Equal(t, 0.0, res.Stats.MaxRemovedScore)
	})
}

func TestZeroToleranceKeepsDeviatingPoints(t *testing.T) {
	in := track(pt(0, 0), pt(0, 0.5), pt(0.001, 1), pt(0, 1.5), pt(0, 2))
	res, err := Simplify(in, Options{Tolerance: 0})
	require.NoError(t, err)

	assert.Contains(t, res.Indices, 2)
	assert.Equal(t, 0, res.Indices[0])
	assert.Equal(t, 4, res.Indices[len(res.Indices)-1])
}

func TestShortTracks(t *testing.T) {
	testCases := []struct {
		name   string
		points []models.TrackPoint
	}{
		{"empty", nil},
		{"single point", []models.TrackPoint{pt(10, 10)}},
		{"two points", []models.TrackPoint{pt(10, 10), pt(10.5, 10.5)}},
		{"two identical points", []models.TrackPoint{pt(10, 10), pt(10, 10)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Simplify(track(tc.points...), Options{Tolerance: 1e9})
			require.NoError(t, err)
			assert.Len(t, res.Route.Points, len(tc.points))
			assert.Equal(t, StopShortTrack, res.Stats.StopReason)
			assert.Equal(t, 0, res.Stats.PointsRemoved)
		})
	}
}

func TestEndpointsAndOrderPreserved(t *testing.T) {
	in := wiggle(1, 500)
	for _, tol := range []float64{0, 1, 5, 20, 100, 1e6} {
		res, err := Simplify(in, Options{Tolerance: tol})
		require.NoError(t, err)

		require.GreaterOrEqual(t, len(res.Indices), 2)
		assert.Equal(t, 0, res.Indices[0], "tolerance %v", tol)
		assert.Equal(t, len(in.Points)-1, res.Indices[len(res.Indices)-1], "tolerance %v", tol)

		for i := 1; i < len(res.Indices); i++ {
			assert.Less(t, res.Indices[i-1], res.Indices[i], "indices must be strictly increasing")
		}
		for i, idx := range res.Indices {
			assert.Equal(t, in.Points[idx], res.Route.Points[i])
		}
		assert.LessOrEqual(t, res.Stats.MaxRemovedScore, tol)
	}
}

func TestLargeToleranceLeavesEndpoints(t *testing.T) {
	res, err := Simplify(wiggle(2, 300), Options{Tolerance: math.Inf(1)})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 299}, res.Indices)
	assert.Equal(t, StopExhausted, res.Stats.StopReason)
}

func TestMonotonicInTolerance(t *testing.T) {
	in := wiggle(3, 800)
	tolerances := []float64{0, 0.5, 2, 5, 10, 25, 60, 200}

	var prev []int
	for _, tol := range tolerances {
		res, err := Simplify(in, Options{Tolerance: tol})
		require.NoError(t, err)
		if prev != nil {
			assert.LessOrEqual(t, len(res.Indices), len(prev))
			assert.True(t, isSubsequence(res.Indices, prev),
				"route at %v m must be a subsequence of the previous route", tol)
		}
		prev = res.Indices
	}
}

func TestIdempotent(t *testing.T) {
	in := wiggle(4, 400)
	for _, opts := range []Options{{Tolerance: 0}, {Tolerance: 8}, {Tolerance: 40}, {Tolerance: math.Inf(1), MaxPoints: 25}} {
		first, err := Simplify(in, opts)
		require.NoError(t, err)

		second, err := Simplify(models.Track{Name: in.Name, Points: first.Route.Points}, opts)
		require.NoError(t, err)

		if diff := cmp.Diff(first.Route.Points, second.Route.Points); diff != "" {
			t.Errorf("second pass changed the route for %+v (-first +second):\n%s", opts, diff)
		}
		assert.Equal(t, 0, second.Stats.PointsRemoved)
	}
}

func TestMaxPoints(t *testing.T) {
	in := wiggle(5, 200)

	t.Run("caps the route size", func(t *testing.T) {
		res, err := Simplify(in, Options{Tolerance: math.Inf(1), MaxPoints: 12})
		require.NoError(t, err)
		assert.Len(t, res.Indices, 12)
		assert.Equal(t, StopMaxPoints, res.Stats.StopReason)
		assert.Equal(t, 0, res.Indices[0])
		assert.Equal(t, 199, res.Indices[11])
	})

	t.Run("tolerance stops first", func(t *testing.T) {
		byTol, err := Simplify(in, Options{Tolerance: 3})
		require.NoError(t, err)
		capped, err := Simplify(in, Options{Tolerance: 3, MaxPoints: 2})
		require.NoError(t, err)
		assert.Equal(t, byTol.Indices, capped.Indices)
		assert.Equal(t, StopTolerance, capped.Stats.StopReason)
	})

	t.Run("cap above track length", func(t *testing.T) {
		res, err := Simplify(in, Options{Tolerance: math.Inf(1), MaxPoints: 500})
		require.NoError(t, err)
		assert.Len(t, res.Indices, 200)
		assert.Equal(t, StopMaxPoints, res.Stats.StopReason)
	})

	t.Run("smaller cap is a subsequence", func(t *testing.T) {
		big, err := Simplify(in, Options{Tolerance: math.Inf(1), MaxPoints: 40})
		require.NoError(t, err)
		small, err := Simplify(in, Options{Tolerance: math.Inf(1), MaxPoints: 10})
		require.NoError(t, err)
		assert.True(t, isSubsequence(small.Indices, big.Indices))
	})
}

func TestTiesRemoveLowerIndexFirst(t *testing.T) {
	in := track(pt(0, 0), pt(0, 1), pt(0, 2), pt(0, 3), pt(0, 4))
	res, err := Simplify(in, Options{Tolerance: 0, MaxPoints: 3})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3, 4}, res.Indices)
}

func TestStats(t *testing.T) {
	in := track(pt(0, 0), pt(0, 0.25), pt(0, 0.5), pt(0, 0.75), pt(0, 1))
	res, err := Simplify(in, Options{Tolerance: 1})
	require.NoError(t, err)

	want := Stats{
		OriginalPoints:  5,
		FinalPoints:     2,
		PointsRemoved:   3,
		PointsPercent:   60,
		MaxRemovedScore: 0,
		StopReason:      StopExhausted,
	}
	if diff := cmp.Diff(want, res.Stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "test", res.Route.Name)
}

func TestInvalidInput(t *testing.T) {
	good := track(pt(0, 0), pt(0.5, 0.5), pt(1, 1))

	testCases := []struct {
		name  string
		track models.Track
		opts  Options
		field string
		index int
	}{
		{"negative tolerance", good, Options{Tolerance: -1}, "tolerance", -1},
		{"NaN tolerance", good, Options{Tolerance: math.NaN()}, "tolerance", -1},
		{"max points of one", good, Options{Tolerance: 1, MaxPoints: 1}, "max points", -1},
		{"negative max points", good, Options{Tolerance: 1, MaxPoints: -3}, "max points", -1},
		{"latitude out of range", track(pt(0, 0), pt(0, 1), pt(91, 1)), Options{Tolerance: 1}, "point", 2},
		{"longitude out of range", track(pt(0, 0), pt(0, 181)), Options{Tolerance: 1}, "point", 1},
		{"NaN coordinate", track(pt(math.NaN(), 0)), Options{Tolerance: 1}, "point", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Simplify(tc.track, tc.opts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))

			var inputErr *InvalidInputError
			require.True(t, errors.As(err, &inputErr))
			assert.Equal(t, tc.field, inputErr.Field)
			assert.Equal(t, tc.index, inputErr.Index)
		})
	}
}

func TestInputNotModified(t *testing.T) {
	in := wiggle(6, 150)
	snapshot := make([]models.TrackPoint, len(in.Points))
	copy(snapshot, in.Points)

	res, err := Simplify(in, Options{Tolerance: 15})
	require.NoError(t, err)
	require.Less(t, len(res.Route.Points), len(in.Points))

	if diff := cmp.Diff(snapshot, in.Points); diff != "" {
		t.Errorf("input track modified (-before +after):\n%s", diff)
	}

	res.Route.Points[0].Lat = 89
	assert.Equal(t, snapshot[0].Lat, in.Points[0].Lat, "route must not alias the track slice")
}

// countingMetric records how often the simplifier asks for a deviation
type countingMetric struct {
	geo.Metric
	mu    sync.Mutex
	calls int
}

func (c *countingMetric) SegmentDeviation(p, left, right models.Location) float64 {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.Metric.SegmentDeviation(p, left, right)
}

func TestCustomMetric(t *testing.T) {
	in := wiggle(7, 100)
	m := &countingMetric{Metric: geo.Spherical{}}

	withMetric, err := Simplify(in, Options{Tolerance: 10, Metric: m})
	require.NoError(t, err)
	plain, err := Simplify(in, Options{Tolerance: 10})
	require.NoError(t, err)

	assert.Equal(t, plain.Indices, withMetric.Indices)
	assert.GreaterOrEqual(t, m.calls, 98, "every interior point is scored at least once")
}

func TestSimplifyAllMatchesSequential(t *testing.T) {
	tracks := make([]models.Track, 16)
	for i := range tracks {
		tracks[i] = wiggle(int64(100+i), 200+i*10)
	}
	opts := Options{Tolerance: 12}

	got, err := SimplifyAll(tracks, opts, 4)
	require.NoError(t, err)
	require.Len(t, got, len(tracks))

	for i, tr := range tracks {
		want, err := Simplify(tr, opts)
		require.NoError(t, err)
		if diff := cmp.Diff(want, got[i]); diff != "" {
			t.Errorf("track %d differs (-sequential +concurrent):\n%s", i, diff)
		}
	}
}

func TestSimplifyAllReportsFirstFailure(t *testing.T) {
	tracks := []models.Track{
		wiggle(1, 50),
		{Name: "broken", Points: []models.TrackPoint{pt(0, 0), pt(95, 0)}},
		wiggle(2, 50),
	}

	_, err := SimplifyAll(tracks, Options{Tolerance: 5}, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "broken")

	res, err := SimplifyAll(nil, Options{Tolerance: 5}, 3)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func BenchmarkSimplify(b *testing.B) {
	sizes := []int{1000, 10000, 100000}

	for _, size := range sizes {
		in := wiggle(42, size)
		b.Run(fmt.Sprintf("%d_points", size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := Simplify(in, Options{Tolerance: 10}); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
