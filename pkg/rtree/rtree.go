// Package rtree indexes the legs of a route in an R-Tree so the deviation of
// every recorded point from the route can be measured without scanning all
// legs for each point.
package rtree

import (
	"errors"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/dhconnelly/rtreego"
	"github.com/kass/track2route/pkg/geo"
	"github.com/kass/track2route/pkg/models"
)

const (
	minChildren = 25
	maxChildren = 50
	dimensions  = 2

	// padding in degrees added around each leg; rtreego rejects zero-size rects
	legPadding = 1e-6
	// query boxes are widened so the degree conversion never clips a leg
	boxSlack = 1.5
)

// ErrEmptyRoute is returned when indexing a route without points
var ErrEmptyRoute = errors.New("route has no points")

// leg wraps one route segment to implement rtreego.Spatial
type leg struct {
	index    int
	from, to models.Location
	rect     *rtreego.Rect
}

func (l *leg) Bounds() *rtreego.Rect {
	return l.rect
}

// Match is the closest leg found for a point
type Match struct {
	Leg       int     `json:"leg"`
	Deviation float64 `json:"deviation_m"`
}

// LegIndex is a thread-safe R-Tree over the legs of a single route
type LegIndex struct {
	tree   *rtreego.Rtree
	legs   []*leg
	metric geo.Metric
	mu     sync.RWMutex
	count  atomic.Int64
}

// NewLegIndex creates an empty index measuring with metric (geo.Spherical{} if nil)
func NewLegIndex(metric geo.Metric) *LegIndex {
	if metric == nil {
		metric = geo.Spherical{}
	}
	return &LegIndex{
		tree:   rtreego.NewTree(dimensions, minChildren, maxChildren),
		metric: metric,
	}
}

// IndexRoute replaces the index content with the legs between consecutive
// route points. A single-point route is indexed as one degenerate leg.
func (x *LegIndex) IndexRoute(points []models.TrackPoint) error {
	if len(points) == 0 {
		return ErrEmptyRoute
	}

	var legs []*leg
	if len(points) == 1 {
		legs = []*leg{newLeg(0, points[0].Location, points[0].Location)}
	} else {
		legs = make([]*leg, 0, len(points)-1)
		for i := 1; i < len(points); i++ {
			legs = append(legs, newLeg(i-1, points[i-1].Location, points[i].Location))
		}
	}

	tree := rtreego.NewTree(dimensions, minChildren, maxChildren)
	for _, l := range legs {
		tree.Insert(l)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	x.tree = tree
	x.legs = legs
	x.count.Store(int64(len(legs)))
	return nil
}

func newLeg(index int, from, to models.Location) *leg {
	// the arc may bend poleward past both endpoints
	minLat, maxLat := geo.ArcLatitudeRange(from, to)
	minLon, maxLon := math.Min(from.Lon, to.Lon), math.Max(from.Lon, to.Lon)

	rect, _ := rtreego.NewRect(
		rtreego.Point{minLat - legPadding, minLon - legPadding},
		[]float64{maxLat - minLat + 2*legPadding, maxLon - minLon + 2*legPadding},
	)
	return &leg{index: index, from: from, to: to, rect: rect}
}

// QueryBox returns the indices of legs whose bounds intersect box, in route order
func (x *LegIndex) QueryBox(box models.BoundingBox) ([]int, error) {
	bounds, err := rtreego.NewRect(
		rtreego.Point{box.BottomLeft.Lat, box.BottomLeft.Lon},
		[]float64{
			math.Max(box.TopRight.Lat-box.BottomLeft.Lat, legPadding),
			math.Max(box.TopRight.Lon-box.BottomLeft.Lon, legPadding),
		},
	)
	if err != nil {
		return nil, err
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	results := x.tree.SearchIntersect(bounds)
	seen := make([]bool, len(x.legs))
	for _, r := range results {
		if l, ok := r.(*leg); ok {
			seen[l.index] = true
		}
	}

	var indices []int
	for i, ok := range seen {
		if ok {
			indices = append(indices, i)
		}
	}
	return indices, nil
}

// Nearest returns the leg closest to p. Legs within radius meters are found
// through the tree; when none is that close every leg is measured. ok is
// false only for an empty index.
func (x *LegIndex) Nearest(p models.Location, radius float64) (Match, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.legs) == 0 {
		return Match{}, false
	}

	if radius > 0 {
		if bounds, err := searchRect(p, radius); err == nil {
			best, found := x.closest(p, x.tree.SearchIntersect(bounds))
			if found && best.Deviation <= radius {
				return best, true
			}
		}
	}

	items := make([]rtreego.Spatial, len(x.legs))
	for i, l := range x.legs {
		items[i] = l
	}
	return x.closest(p, items)
}

// NearestAll runs Nearest for every point using up to workers goroutines.
// The result is aligned with points; workers <= 0 uses NumCPU.
func (x *LegIndex) NearestAll(points []models.Location, radius float64, workers int) []Match {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	matches := make([]Match, len(points))
	if len(points) == 0 {
		return matches
	}

	chunk := (len(points) + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < len(points); start += chunk {
		end := min(start+chunk, len(points))
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				matches[i], _ = x.Nearest(points[i], radius)
			}
		}(start, end)
	}
	wg.Wait()

	return matches
}

// Count returns the number of indexed legs
func (x *LegIndex) Count() int64 {
	return x.count.Load()
}

// Clear removes all legs from the index
func (x *LegIndex) Clear() {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.tree = rtreego.NewTree(dimensions, minChildren, maxChildren)
	x.legs = nil
	x.count.Store(0)
}

// closest picks the lowest deviation, ties going to the earlier leg
func (x *LegIndex) closest(p models.Location, candidates []rtreego.Spatial) (Match, bool) {
	best := Match{Leg: -1, Deviation: math.Inf(1)}
	for _, c := range candidates {
		l, ok := c.(*leg)
		if !ok {
			continue
		}
		d := x.metric.SegmentDeviation(p, l.from, l.to)
		if d < best.Deviation || (d == best.Deviation && l.index < best.Leg) {
			best = Match{Leg: l.index, Deviation: d}
		}
	}
	return best, best.Leg >= 0
}

// searchRect converts a radius in meters into a lat/lon box around p. The
// longitude span is sized at the poleward edge of the box, where degrees of
// longitude are shortest.
func searchRect(p models.Location, radius float64) (*rtreego.Rect, error) {
	latDeg := radius / geo.EarthRadius * 180 / math.Pi * boxSlack

	edge := math.Abs(p.Lat) + latDeg
	lonDeg := 360.0
	if edge < 89 {
		lonDeg = math.Min(latDeg/math.Cos(edge*math.Pi/180), 360)
	}

	return rtreego.NewRect(
		rtreego.Point{p.Lat - latDeg, p.Lon - lonDeg},
		[]float64{2 * latDeg, 2 * lonDeg},
	)
}
