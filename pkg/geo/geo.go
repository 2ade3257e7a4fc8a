// Package geo provides the geodesic distance functions shared by the
// simplifier, the route index and the route report. All distances are in
// meters on a spherical Earth model.
package geo

import (
	"math"

	"github.com/kass/track2route/pkg/models"
)

const (
	// EarthRadius is the mean Earth radius in meters
	EarthRadius = 6371000.0

	degToRad = math.Pi / 180.0
	radToDeg = 180.0 / math.Pi

	// below this the great-circle normal of a segment is numerically unusable
	minNormal = 1e-12

	// CollinearEpsilon is the cross-track distance in meters below which a
	// point counts as lying on the great circle. Rounding in the vector
	// products leaves residues around 1e-9 m off the equator and the prime
	// meridian; GPS fixes are never more precise than a few centimeters.
	CollinearEpsilon = 1e-6
)

// Metric measures distances between locations. The simplifier only compares
// distances against each other and against a tolerance, so every caller in a
// run must use the same Metric.
type Metric interface {
	// PointDistance returns the geodesic distance between a and b
	PointDistance(a, b models.Location) float64
	// SegmentDeviation returns how far p lies from the geodesic between left and right
	SegmentDeviation(p, left, right models.Location) float64
}

// Spherical implements Metric with the haversine formula and great-circle
// cross-track distances. The zero value uses EarthRadius.
type Spherical struct {
	Radius float64
}

// NewSpherical returns a spherical metric; non-positive radii fall back to EarthRadius
func NewSpherical(radius float64) Spherical {
	if radius <= 0 {
		radius = EarthRadius
	}
	return Spherical{Radius: radius}
}

func (s Spherical) radius() float64 {
	if s.Radius > 0 {
		return s.Radius
	}
	return EarthRadius
}

// PointDistance calculates the haversine distance between two locations
func (s Spherical) PointDistance(a, b models.Location) float64 {
	if a == b {
		return 0
	}

	lat1 := a.Lat * degToRad
	lat2 := b.Lat * degToRad
	dLat := (b.Lat - a.Lat) * degToRad
	dLon := (b.Lon - a.Lon) * degToRad

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return s.radius() * c
}

// SegmentDeviation projects p onto the great-circle arc from left to right
// and returns the cross-track distance. Projections outside the arc fall back
// to the nearer endpoint; coincident endpoints reduce to a point distance.
// Cross-track distances under CollinearEpsilon are reported as exactly 0.
func (s Spherical) SegmentDeviation(p, left, right models.Location) float64 {
	if left == right {
		return s.PointDistance(p, left)
	}

	a, b, v := toVec(left), toVec(right), toVec(p)
	normal := a.cross(b)
	n := normal.length()
	if n < minNormal {
		// antipodal or the same position written differently
		return math.Min(s.PointDistance(p, left), s.PointDistance(p, right))
	}

	if a.cross(v).dot(normal) < 0 || v.cross(b).dot(normal) < 0 {
		return math.Min(s.PointDistance(p, left), s.PointDistance(p, right))
	}

	sinXT := v.dot(normal) / n
	sinXT = math.Max(-1, math.Min(1, sinXT))
	d := math.Abs(math.Asin(sinXT)) * s.radius()
	if d < CollinearEpsilon {
		return 0
	}
	return d
}

// Destination returns the location reached from start after travelling
// meters along the given initial bearing (degrees clockwise from north)
func (s Spherical) Destination(start models.Location, bearing, meters float64) models.Location {
	delta := meters / s.radius()
	theta := bearing * degToRad
	lat1 := start.Lat * degToRad
	lon1 := start.Lon * degToRad

	sinLat2 := math.Sin(lat1)*math.Cos(delta) + math.Cos(lat1)*math.Sin(delta)*math.Cos(theta)
	lat2 := math.Asin(math.Max(-1, math.Min(1, sinLat2)))
	lon2 := lon1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(lat1),
		math.Cos(delta)-math.Sin(lat1)*sinLat2,
	)

	return models.Location{
		Lat: lat2 * radToDeg,
		Lon: normalizeLon(lon2 * radToDeg),
	}
}

// Bearing returns the initial bearing from a to b in degrees [0, 360)
func Bearing(a, b models.Location) float64 {
	lat1 := a.Lat * degToRad
	lat2 := b.Lat * degToRad
	dLon := (b.Lon - a.Lon) * degToRad

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	return math.Mod(math.Atan2(y, x)*radToDeg+360, 360)
}

// PathLength sums the distances between consecutive points
func PathLength(m Metric, points []models.TrackPoint) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += m.PointDistance(points[i-1].Location, points[i].Location)
	}
	return total
}

// ArcLatitudeRange returns the lowest and highest latitude reached on the
// great-circle arc from a to b. Long arcs bend toward the pole, so the range
// can exceed the endpoint latitudes.
func ArcLatitudeRange(a, b models.Location) (lo, hi float64) {
	lo, hi = math.Min(a.Lat, b.Lat), math.Max(a.Lat, b.Lat)

	va, vb := toVec(a), toVec(b)
	normal := va.cross(vb)
	n := normal.length()
	if n < minNormal {
		return lo, hi
	}
	normal = normal.scale(1 / n)

	// the northernmost point of the full great circle
	vertex := vec3{0, 0, 1}.sub(normal.scale(normal[2]))
	if vertex.length() < minNormal {
		return lo, hi
	}
	vertex = vertex.scale(1 / vertex.length())
	vertexLat := math.Asin(math.Max(-1, math.Min(1, vertex[2]))) * radToDeg

	if onArc(vertex, va, vb, normal) {
		hi = math.Max(hi, vertexLat)
	}
	if onArc(vertex.scale(-1), va, vb, normal) {
		lo = math.Min(lo, -vertexLat)
	}
	return lo, hi
}

func onArc(v, a, b, normal vec3) bool {
	return a.cross(v).dot(normal) >= 0 && v.cross(b).dot(normal) >= 0
}

// ValidLocation reports whether loc is a finite coordinate inside
// [-90, 90] latitude and [-180, 180] longitude
func ValidLocation(loc models.Location) bool {
	return loc.Lat >= -90 && loc.Lat <= 90 &&
		loc.Lon >= -180 && loc.Lon <= 180
}

func normalizeLon(lon float64) float64 {
	lon = math.Mod(lon+540, 360) - 180
	if lon == -180 {
		return 180
	}
	return lon
}

type vec3 [3]float64

func toVec(loc models.Location) vec3 {
	lat := loc.Lat * degToRad
	lon := loc.Lon * degToRad
	return vec3{
		math.Cos(lat) * math.Cos(lon),
		math.Cos(lat) * math.Sin(lon),
		math.Sin(lat),
	}
}

func (a vec3) cross(b vec3) vec3 {
	return vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func (a vec3) dot(b vec3) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func (a vec3) length() float64 {
	return math.Sqrt(a.dot(a))
}

func (a vec3) scale(k float64) vec3 {
	return vec3{a[0] * k, a[1] * k, a[2] * k}
}

func (a vec3) sub(b vec3) vec3 {
	return vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}
